package worker

import (
	"context"
	"log/slog"
	"time"

	"storefront-service/app/domain"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs the periodic maintenance jobs: expiring lapsed
// reservations and the inventory sync.
type Scheduler struct {
	reservationUsecase domain.ReservationUsecase
	inventoryUsecase   domain.InventoryUsecase
	expiryInterval     time.Duration
	syncInterval       time.Duration
}

func NewScheduler(reservationUsecase domain.ReservationUsecase, inventoryUsecase domain.InventoryUsecase, expiryInterval, syncInterval time.Duration) *Scheduler {
	return &Scheduler{
		reservationUsecase: reservationUsecase,
		inventoryUsecase:   inventoryUsecase,
		expiryInterval:     expiryInterval,
		syncInterval:       syncInterval,
	}
}

// Run blocks until ctx is cancelled. A failed run is logged and retried on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(ctx, s.expiryInterval, "expireReservations", func(ctx context.Context) error {
			_, err := s.reservationUsecase.ExpireReservations(ctx)
			return err
		})
	})
	g.Go(func() error {
		return every(ctx, s.syncInterval, "syncInventory", func(ctx context.Context) error {
			_, err := s.inventoryUsecase.SyncInventory(ctx)
			return err
		})
	})

	return g.Wait()
}

func every(ctx context.Context, interval time.Duration, job string, fn func(context.Context) error) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "[scheduler] stopping", "job", job)
			return nil
		case <-t.C:
			if err := fn(ctx); err != nil {
				slog.ErrorContext(ctx, "[scheduler] "+job, "error", err)
			}
		}
	}
}
