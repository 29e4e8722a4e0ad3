package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/reservation/model"
	repo "library-backend/pkg/repository"
)

// ServiceInterface: giữ chỗ sách
//
//	pending  → approved (trừ stock) | rejected | expired | canceled
//	approved → completed | canceled (cộng lại stock)
type ServiceInterface interface {
	// Create records a pending reservation with a generated code. Stock is
	// not touched until Approve.
	Create(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error)

	// Approve takes Quantity copies from stock under a row lock.
	// Returns ErrInsufficientStock (unprocessable_entity), ErrReservationExpired.
	Approve(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	// Cancel gives copies back when the reservation was approved.
	Cancel(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	Reject(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	Expire(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	// Complete: member đã nhận sách, stock đã trừ lúc approve nên không đổi.
	Complete(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	// ExpireOverdue expires up to limit pending reservations whose expires_at
	// has passed, each in its own transaction. Returns how many it expired.
	ExpireOverdue(ctx context.Context, limit int) (int, error)

	Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	List(ctx context.Context, req model.ListReservationsRequest) (*repo.Page[model.ReservationView], error)
}

// ExpiryScheduler enqueues the delayed expire task of a new reservation.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, id uuid.UUID, at time.Time) error
}
