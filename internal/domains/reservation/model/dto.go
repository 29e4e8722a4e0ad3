package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/shared/utils"
)

type CreateReservationRequest struct {
	MemberID  uuid.UUID  `json:"member_id"`
	BookID    uuid.UUID  `json:"book_id"`
	Quantity  int        `json:"quantity"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // default: now + RESERVATION_TTL
	Notes     *string    `json:"notes,omitempty"`
}

func (r CreateReservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MemberID, utils.RequiredUUID),
		validation.Field(&r.BookID, utils.RequiredUUID),
		validation.Field(&r.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be at least 1"),
		),
		validation.Field(&r.Notes, validation.Length(0, 500)),
	)
}

// ExpiryOrDefault trả về expires_at; ngày hết hạn không sau now là lỗi.
func (r CreateReservationRequest) ExpiryOrDefault(now time.Time, ttl time.Duration) (time.Time, error) {
	if r.ExpiresAt == nil {
		return now.Add(ttl), nil
	}

	expiresAt := r.ExpiresAt.UTC()
	if !expiresAt.After(now) {
		return time.Time{}, validationError("expires_at", "must be in the future")
	}
	return expiresAt, nil
}

type ListReservationsRequest struct {
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
	MemberID *uuid.UUID         `json:"member_id,omitempty"`
	BookID   *uuid.UUID         `json:"book_id,omitempty"`
	Status   *ReservationStatus `json:"status,omitempty"`
	Search   string             `json:"search,omitempty"`
	OrderBy  string             `json:"order_by,omitempty"`
	OrderDir string             `json:"order_dir,omitempty"`
}

func (r ListReservationsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.In(
			StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusCompleted, StatusCanceled,
		).Error("invalid reservation status")),
	)
}

func validationError(field, msg string) error {
	return validation.Errors{field: validation.NewError("validation_"+field, msg)}
}
