package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationStatusTransitions(t *testing.T) {
	for _, next := range []ReservationStatus{ReservationStatusConverted, ReservationStatusExpired, ReservationStatusCancelled} {
		assert.True(t, ReservationStatusActive.CanTransitionTo(next), next)
		assert.True(t, next.IsTerminal(), next)
		assert.False(t, next.CanTransitionTo(ReservationStatusActive), next)
	}
	assert.False(t, ReservationStatusActive.IsTerminal())
	assert.False(t, ReservationStatusExpired.CanTransitionTo(ReservationStatusCancelled))
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))

	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPending))
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusSucceeded))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.True(t, PaymentStatusSucceeded.CanTransitionTo(PaymentStatusRefunded))

	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusSucceeded))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded))
	assert.True(t, PaymentStatusRefunded.IsTerminal())
}

func TestReservationIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Reservation{ExpiresAt: now}.IsExpired(now))
	assert.True(t, Reservation{ExpiresAt: now.Add(-time.Second)}.IsExpired(now))
	assert.False(t, Reservation{ExpiresAt: now.Add(time.Second)}.IsExpired(now))
}
