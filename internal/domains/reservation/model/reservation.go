package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus
//
//	pending  → approved | rejected | expired | canceled
//	approved → completed | canceled
//	rejected, expired, completed, canceled: terminal
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusRejected  ReservationStatus = "rejected"
	StatusExpired   ReservationStatus = "expired"
	StatusCompleted ReservationStatus = "completed"
	StatusCanceled  ReservationStatus = "canceled"
)

var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusExpired, StatusCanceled},
	StatusApproved: {StatusCompleted, StatusCanceled},
}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// HoldsStock: chỉ reservation approved đang giữ bản sách (stock đã bị trừ).
func (s ReservationStatus) HoldsStock() bool {
	return s == StatusApproved
}

func (s ReservationStatus) String() string {
	return string(s)
}

// Reservation giữ chỗ Quantity bản của một đầu sách cho member.
type Reservation struct {
	ID       uuid.UUID         `json:"id" db:"id"`
	Code     string            `json:"code" db:"code"`
	MemberID uuid.UUID         `json:"member_id" db:"member_id"`
	BookID   uuid.UUID         `json:"book_id" db:"book_id"`
	Quantity int               `json:"quantity" db:"quantity"`
	Status   ReservationStatus `json:"status" db:"status"`
	Notes    *string           `json:"notes" db:"notes"`

	ReservedAt  time.Time  `json:"reserved_at" db:"reserved_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	ApprovedAt  *time.Time `json:"approved_at" db:"approved_at"`
	CanceledAt  *time.Time `json:"canceled_at" db:"canceled_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsOverdue: pending reservation đã qua expires_at.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.Status == StatusPending && !now.Before(r.ExpiresAt)
}

// ReservationView is a reservation joined with its book title.
type ReservationView struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	Code       string            `json:"code" db:"code"`
	MemberID   uuid.UUID         `json:"member_id" db:"member_id"`
	BookID     uuid.UUID         `json:"book_id" db:"book_id"`
	Quantity   int               `json:"quantity" db:"quantity"`
	Status     ReservationStatus `json:"status" db:"status"`
	ReservedAt time.Time         `json:"reserved_at" db:"reserved_at"`
	ExpiresAt  time.Time         `json:"expires_at" db:"expires_at"`
	BookTitle  string            `json:"book_title" db:"book_title"`
}
