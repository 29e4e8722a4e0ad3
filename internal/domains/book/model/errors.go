package model

import (
	"errors"
	"fmt"

	"library-backend/pkg/apperror"
)

var (
	ErrBookNotFound      = apperror.NotFound("BOOK_NOT_FOUND", "book not found")
	ErrInsufficientStock = apperror.BadRequest("INSUFFICIENT_STOCK", "insufficient stock")
)

// NewInsufficientStockError ghi rõ số lượng. kind khác nhau tuỳ workflow:
// loan → bad_request, reservation approve → unprocessable_entity.
func NewInsufficientStockError(kind apperror.Kind, available, requested int) error {
	return apperror.Wrap(kind, ErrInsufficientStock.Code,
		fmt.Sprintf("insufficient stock: %d available, %d requested", available, requested),
		ErrInsufficientStock)
}

func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

func IsBookNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound)
}
