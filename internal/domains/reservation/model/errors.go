package model

import (
	"errors"
	"fmt"

	"library-backend/pkg/apperror"
)

var (
	ErrReservationNotFound = apperror.NotFound("RESERVATION_NOT_FOUND", "reservation not found")
	ErrInvalidTransition   = apperror.Unprocessable("INVALID_STATUS_TRANSITION", "invalid reservation status transition")
	ErrReservationExpired  = apperror.Unprocessable("RESERVATION_EXPIRED", "reservation has passed its expiry time")
)

// NewInvalidTransitionError: chuyển trạng thái không hợp lệ không bao giờ là no-op.
func NewInvalidTransitionError(from, to ReservationStatus) error {
	return apperror.Wrap(apperror.KindUnprocessableEntity, ErrInvalidTransition.Code,
		fmt.Sprintf("cannot move reservation from %s to %s", from, to), ErrInvalidTransition)
}

func IsReservationNotFound(err error) bool {
	return errors.Is(err, ErrReservationNotFound)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
