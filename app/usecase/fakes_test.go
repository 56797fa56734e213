package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/app/domain"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// fakeDB is an in-memory stand-in for Postgres. Transactions are fully
// serialized, which is at least as strict as the row locks the real
// repositories take, and are rolled back by restoring a snapshot.
type fakeDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	stores       map[uuid.UUID]domain.Store
	inventory    []domain.StoreInventory
	reservations map[uuid.UUID]domain.Reservation
	orders       map[uuid.UUID]domain.Order
	items        []domain.OrderItem
	addresses    map[uuid.UUID]domain.ShippingAddress
	sequences    map[string]int64
	payments     map[uuid.UUID]domain.Payment
	events       map[string]domain.ProcessedEvent
	variants     map[string]domain.ProductVariant

	failPaymentCreate error
	clock             int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		stores:       map[uuid.UUID]domain.Store{},
		reservations: map[uuid.UUID]domain.Reservation{},
		orders:       map[uuid.UUID]domain.Order{},
		addresses:    map[uuid.UUID]domain.ShippingAddress{},
		sequences:    map[string]int64{},
		payments:     map[uuid.UUID]domain.Payment{},
		events:       map[string]domain.ProcessedEvent{},
		variants:     map[string]domain.ProductVariant{},
	}
}

type fakeSnapshot struct {
	inventory    []domain.StoreInventory
	reservations map[uuid.UUID]domain.Reservation
	orders       map[uuid.UUID]domain.Order
	items        []domain.OrderItem
	addresses    map[uuid.UUID]domain.ShippingAddress
	sequences    map[string]int64
	payments     map[uuid.UUID]domain.Payment
	events       map[string]domain.ProcessedEvent
}

func (db *fakeDB) snapshot() fakeSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fakeSnapshot{
		inventory:    slices.Clone(db.inventory),
		reservations: maps.Clone(db.reservations),
		orders:       maps.Clone(db.orders),
		items:        slices.Clone(db.items),
		addresses:    maps.Clone(db.addresses),
		sequences:    maps.Clone(db.sequences),
		payments:     maps.Clone(db.payments),
		events:       maps.Clone(db.events),
	}
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.inventory = s.inventory
	db.reservations = s.reservations
	db.orders = s.orders
	db.items = s.items
	db.addresses = s.addresses
	db.sequences = s.sequences
	db.payments = s.payments
	db.events = s.events
}

func (db *fakeDB) withTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(ctx, nil); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// tick returns strictly increasing timestamps so insertion order is stable.
func (db *fakeDB) tick() time.Time {
	db.clock++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(db.clock) * time.Millisecond)
}

func (db *fakeDB) addStore(name string, quantity int64, sku string) domain.Store {
	db.mu.Lock()
	defer db.mu.Unlock()

	store := domain.Store{
		ID:                 uuid.Must(uuid.NewV4()),
		Name:               name,
		Code:               strings.ToUpper(strings.ReplaceAll(name, " ", "_")),
		FulfillmentEnabled: true,
		Active:             true,
	}
	db.stores[store.ID] = store
	db.inventory = append(db.inventory, domain.StoreInventory{
		ID:       uuid.Must(uuid.NewV4()),
		StoreID:  store.ID,
		SKU:      sku,
		Quantity: quantity,
	})
	return store
}

func (db *fakeDB) addVariant(sku, name string, price string) domain.ProductVariant {
	db.mu.Lock()
	defer db.mu.Unlock()

	size := "M"
	variant := domain.ProductVariant{
		ID:          uuid.Must(uuid.NewV4()),
		ProductID:   uuid.Must(uuid.NewV4()),
		ProductName: name,
		SKU:         sku,
		SizeCode:    &size,
		Price:       decimal.RequireFromString(price),
	}
	db.variants[sku] = variant
	return variant
}

func (db *fakeDB) reservationsBySession(sessionID string) []domain.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.Reservation
	for _, r := range db.reservations {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out
}

func sortReservations(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}

type fakeInventoryRepo struct{ db *fakeDB }

func (r fakeInventoryRepo) GetBySKU(ctx context.Context, sku string, storeID *uuid.UUID) ([]domain.StoreInventory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.StoreInventory
	for _, inv := range r.db.inventory {
		store := r.db.stores[inv.StoreID]
		if inv.SKU != sku || !store.Active || !store.FulfillmentEnabled {
			continue
		}
		if storeID != nil && inv.StoreID != *storeID {
			continue
		}
		inv.StoreName = store.Name
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].StoreID.String() < out[j].StoreID.String()
	})
	return out, nil
}

func (r fakeInventoryRepo) LockCandidatesForUpdate(ctx context.Context, sku string, tx *sql.Tx) ([]domain.StoreInventory, error) {
	return r.GetBySKU(ctx, sku, nil)
}

func (r fakeInventoryRepo) ListSKUs(ctx context.Context) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	seen := map[string]bool{}
	var skus []string
	for _, inv := range r.db.inventory {
		if !seen[inv.SKU] {
			seen[inv.SKU] = true
			skus = append(skus, inv.SKU)
		}
	}
	sort.Strings(skus)
	return skus, nil
}

func (r fakeInventoryRepo) CountFulfillmentStores(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, s := range r.db.stores {
		if s.Active && s.FulfillmentEnabled {
			n++
		}
	}
	return n, nil
}

func (r fakeInventoryRepo) MarkSynced(ctx context.Context, syncedAt time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for i, inv := range r.db.inventory {
		if r.db.stores[inv.StoreID].Active {
			r.db.inventory[i].LastSyncedAt = &syncedAt
			n++
		}
	}
	return n, nil
}

type fakeReservationRepo struct{ db *fakeDB }

func (r fakeReservationRepo) withStoreName(res domain.Reservation) domain.Reservation {
	res.StoreName = r.db.stores[res.StoreID].Name
	return res
}

func (r fakeReservationRepo) Create(ctx context.Context, res *domain.Reservation, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res.CreatedAt = r.db.tick()
	res.UpdatedAt = res.CreatedAt
	r.db.reservations[res.ID] = *res
	return nil
}

func (r fakeReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r.withStoreName(res), nil
}

func (r fakeReservationRepo) SumActiveReserved(ctx context.Context, sku string, storeID uuid.UUID, now time.Time, tx *sql.Tx) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var total int64
	for _, res := range r.db.reservations {
		if res.SKU == sku && res.StoreID == storeID && res.Status == domain.ReservationStatusActive && res.ExpiresAt.After(now) {
			total += res.Quantity
		}
	}
	return total, nil
}

func (r fakeReservationRepo) SumActiveReservedByStore(ctx context.Context, sku string, now time.Time) (map[uuid.UUID]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := map[uuid.UUID]int64{}
	for _, res := range r.db.reservations {
		if res.SKU == sku && res.Status == domain.ReservationStatusActive && res.ExpiresAt.After(now) {
			out[res.StoreID] += res.Quantity
		}
	}
	return out, nil
}

func (r fakeReservationRepo) UpdateStatusIfActive(ctx context.Context, id uuid.UUID, status domain.ReservationStatus, tx *sql.Tx) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok || res.Status != domain.ReservationStatusActive {
		return false, nil
	}
	res.Status = status
	r.db.reservations[id] = res
	return true, nil
}

func (r fakeReservationRepo) update(match func(domain.Reservation) bool, apply func(*domain.Reservation)) []domain.Reservation {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var changed []domain.Reservation
	for id, res := range r.db.reservations {
		if !match(res) {
			continue
		}
		apply(&res)
		r.db.reservations[id] = res
		changed = append(changed, r.withStoreName(res))
	}
	sortReservations(changed)
	return changed
}

func (r fakeReservationRepo) LinkToOrder(ctx context.Context, sessionID string, orderID uuid.UUID, tx *sql.Tx) (int64, error) {
	changed := r.update(func(res domain.Reservation) bool {
		return res.SessionID == sessionID && res.Status == domain.ReservationStatusActive
	}, func(res *domain.Reservation) {
		res.OrderID = uuid.NullUUID{UUID: orderID, Valid: true}
	})
	return int64(len(changed)), nil
}

func (r fakeReservationRepo) LinkByIDs(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID, tx *sql.Tx) (int64, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	changed := r.update(func(res domain.Reservation) bool {
		return wanted[res.ID] && res.Status == domain.ReservationStatusActive
	}, func(res *domain.Reservation) {
		res.OrderID = uuid.NullUUID{UUID: orderID, Valid: true}
	})
	return int64(len(changed)), nil
}

func (r fakeReservationRepo) ExpireActive(ctx context.Context, now time.Time) ([]string, error) {
	changed := r.update(func(res domain.Reservation) bool {
		return res.Status == domain.ReservationStatusActive && res.ExpiresAt.Before(now)
	}, func(res *domain.Reservation) {
		res.Status = domain.ReservationStatusExpired
	})
	return reservationSKUs(changed), nil
}

func (r fakeReservationRepo) ConvertByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]string, error) {
	changed := r.update(func(res domain.Reservation) bool {
		return res.OrderID.Valid && res.OrderID.UUID == orderID && res.Status == domain.ReservationStatusActive
	}, func(res *domain.Reservation) {
		res.Status = domain.ReservationStatusConverted
	})
	return reservationSKUs(changed), nil
}

func (r fakeReservationRepo) CancelByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]domain.Reservation, error) {
	return r.update(func(res domain.Reservation) bool {
		return res.OrderID.Valid && res.OrderID.UUID == orderID && res.Status == domain.ReservationStatusActive
	}, func(res *domain.Reservation) {
		res.Status = domain.ReservationStatusCancelled
	}), nil
}

func (r fakeReservationRepo) CancelBySession(ctx context.Context, sessionID string, tx *sql.Tx) ([]domain.Reservation, error) {
	return r.update(func(res domain.Reservation) bool {
		return res.SessionID == sessionID && res.Status == domain.ReservationStatusActive
	}, func(res *domain.Reservation) {
		res.Status = domain.ReservationStatusCancelled
	}), nil
}

func (r fakeReservationRepo) LockActiveBySessionForUpdate(ctx context.Context, sessionID string, tx *sql.Tx) ([]domain.Reservation, error) {
	return r.ListActiveBySession(ctx, sessionID)
}

func (r fakeReservationRepo) ListActiveBySession(ctx context.Context, sessionID string) ([]domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Reservation
	for _, res := range r.db.reservations {
		if res.SessionID == sessionID && res.Status == domain.ReservationStatusActive {
			out = append(out, r.withStoreName(res))
		}
	}
	sortReservations(out)
	return out, nil
}

func (r fakeReservationRepo) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return r.db.withTransaction(ctx, fn)
}

type fakeOrderRepo struct{ db *fakeDB }

func (r fakeOrderRepo) NextSequence(ctx context.Context, day time.Time, tx *sql.Tx) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := day.UTC().Format(time.DateOnly)
	r.db.sequences[key]++
	return r.db.sequences[key], nil
}

func (r fakeOrderRepo) Create(ctx context.Context, order *domain.Order, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, o := range r.db.orders {
		if o.OrderNumber == order.OrderNumber {
			return fmt.Errorf("duplicate order number %s", order.OrderNumber)
		}
	}
	if !order.Total.Equal(order.Subtotal.Add(order.TaxAmount).Add(order.ShippingCost)) {
		return fmt.Errorf("order total check violated")
	}
	order.CreatedAt = r.db.tick()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items, stored.ShippingAddress, stored.Payment = nil, nil, nil
	r.db.orders[order.ID] = stored
	return nil
}

func (r fakeOrderRepo) CreateItems(ctx context.Context, items []domain.OrderItem, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.items = append(r.db.items, items...)
	return nil
}

func (r fakeOrderRepo) CreateShippingAddress(ctx context.Context, addr *domain.ShippingAddress, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.addresses[addr.OrderID] = *addr
	return nil
}

func (r fakeOrderRepo) LockByIDForUpdate(ctx context.Context, id uuid.UUID, tx *sql.Tx) (domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	order, ok := r.db.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	r.db.orders[id] = order
	return nil
}

func (r fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	order, ok := r.db.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (r fakeOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, o := range r.db.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (r fakeOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.OrderItem
	for _, item := range r.db.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r fakeOrderRepo) GetShippingAddress(ctx context.Context, orderID uuid.UUID) (domain.ShippingAddress, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	addr, ok := r.db.addresses[orderID]
	if !ok {
		return domain.ShippingAddress{}, domain.ErrNotFound
	}
	return addr, nil
}

func (r fakeOrderRepo) filtered(param domain.ListOrdersRequest) []domain.Order {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Order
	for _, o := range r.db.orders {
		if param.Status == "" || string(o.Status) == param.Status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r fakeOrderRepo) List(ctx context.Context, param domain.ListOrdersRequest) ([]domain.Order, error) {
	all := r.filtered(param)
	start := int((param.Page - 1) * param.Limit)
	if start >= len(all) {
		return nil, nil
	}
	end := min(start+int(param.Limit), len(all))
	return all[start:end], nil
}

func (r fakeOrderRepo) Count(ctx context.Context, param domain.ListOrdersRequest) (int64, error) {
	return int64(len(r.filtered(param))), nil
}

func (r fakeOrderRepo) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return r.db.withTransaction(ctx, fn)
}

type fakePaymentRepo struct{ db *fakeDB }

func (r fakePaymentRepo) Create(ctx context.Context, p *domain.Payment, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.failPaymentCreate != nil {
		return r.db.failPaymentCreate
	}
	p.CreatedAt = r.db.tick()
	p.UpdatedAt = p.CreatedAt
	r.db.payments[p.ID] = *p
	return nil
}

func (r fakePaymentRepo) LockByIntentIDForUpdate(ctx context.Context, intentID string, tx *sql.Tx) (domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.payments {
		if p.PaymentIntentID == intentID {
			return p, nil
		}
	}
	return domain.Payment{}, fmt.Errorf("%w: payment intent %s", domain.ErrNotFound, intentID)
}

func (r fakePaymentRepo) UpdateSettlement(ctx context.Context, p *domain.Payment, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.payments[p.ID] = *p
	return nil
}

func (r fakePaymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return domain.Payment{}, domain.ErrNotFound
}

func (r fakePaymentRepo) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return r.db.withTransaction(ctx, fn)
}

type fakeLedgerRepo struct{ db *fakeDB }

func (r fakeLedgerRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, ok := r.db.events[eventID]
	return ok, nil
}

func (r fakeLedgerRepo) Insert(ctx context.Context, e *domain.ProcessedEvent, tx *sql.Tx) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[e.EventID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEvent, e.EventID)
	}
	e.ProcessedAt = r.db.tick()
	r.db.events[e.EventID] = *e
	return nil
}

func (r fakeLedgerRepo) GetByEventID(ctx context.Context, eventID string) (domain.ProcessedEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.events[eventID]
	if !ok {
		return domain.ProcessedEvent{}, domain.ErrNotFound
	}
	return e, nil
}

type fakeCatalogRepo struct{ db *fakeDB }

func (r fakeCatalogRepo) FindVariantBySKU(ctx context.Context, sku string, tx *sql.Tx) (domain.ProductVariant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.variants[sku]
	if !ok {
		return domain.ProductVariant{}, fmt.Errorf("%w: variant %s", domain.ErrNotFound, sku)
	}
	return v, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type fakePublisher struct {
	mu          sync.Mutex
	orderEvents []domain.OrderEventMessage
	stockEvents []domain.StockMessage
}

func (p *fakePublisher) PublishOrderEvent(ctx context.Context, data domain.OrderEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderEvents = append(p.orderEvents, data)
	return nil
}

func (p *fakePublisher) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stockEvents = append(p.stockEvents, data)
	return nil
}

func (p *fakePublisher) orderEventTypes() []domain.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	var types []domain.OrderEventType
	for _, e := range p.orderEvents {
		types = append(types, e.Type)
	}
	return types
}

func testConfig() *config.Config {
	return &config.Config{
		Redis: config.RedisConfig{StockCacheTTLSeconds: 5},
		Business: config.BusinessConfig{
			ReservationWindowMinutes: 10,
			SafetyBuffer:             1,
			VatRate:                  decimal.RequireFromString("0.125"),
			Currency:                 "GHS",
			CountryCode:              "GH",
			FreeShippingThreshold:    decimal.NewFromInt(500),
			FlatShippingFee:          decimal.NewFromInt(25),
		},
		Payment: config.PaymentConfig{
			Provider:        "polar",
			CheckoutBaseURL: "http://localhost:3000/checkout/payment",
			WebhookSecret:   "whsec_test",
			SignatureHeader: "X-Webhook-Signature",
		},
	}
}

// harness wires every usecase to one fakeDB.
type harness struct {
	db        *fakeDB
	cache     *fakeCache
	publisher *fakePublisher
	cfg       *config.Config

	stock       *stockUsecase
	reservation *reservationUsecase
	checkout    *checkoutUsecase
	payment     *paymentUsecase
	inventory   *inventoryUsecase
	order       *orderUsecase
}

func newHarness() *harness {
	h := &harness{
		db:        newFakeDB(),
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
		cfg:       testConfig(),
	}

	inventoryRepo := fakeInventoryRepo{h.db}
	reservationRepo := fakeReservationRepo{h.db}
	orderRepo := fakeOrderRepo{h.db}
	paymentRepo := fakePaymentRepo{h.db}

	h.stock = NewStockUsecase(inventoryRepo, reservationRepo, h.cache, h.cfg).(*stockUsecase)
	h.reservation = NewReservationUsecase(reservationRepo, inventoryRepo, h.stock, h.cache, h.publisher, h.cfg).(*reservationUsecase)
	h.checkout = NewCheckoutUsecase(reservationRepo, orderRepo, paymentRepo, fakeCatalogRepo{h.db}, h.publisher, h.cfg).(*checkoutUsecase)
	h.payment = NewPaymentUsecase(paymentRepo, orderRepo, reservationRepo, fakeLedgerRepo{h.db}, h.stock, h.cache, h.publisher, h.cfg).(*paymentUsecase)
	h.inventory = NewInventoryUsecase(inventoryRepo, h.stock).(*inventoryUsecase)
	h.order = NewOrderUsecase(orderRepo, paymentRepo).(*orderUsecase)
	return h
}

// setNow pins the clock of every usecase.
func (h *harness) setNow(now time.Time) {
	clock := func() time.Time { return now }
	h.stock.now = clock
	h.reservation.now = clock
	h.checkout.now = clock
	h.payment.now = clock
	h.inventory.now = clock
}
