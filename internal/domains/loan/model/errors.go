package model

import (
	"errors"
	"fmt"
	"time"

	"library-backend/pkg/apperror"
)

var (
	ErrLoanNotFound        = apperror.NotFound("LOAN_NOT_FOUND", "loan not found")
	ErrLoanAlreadyReturned = apperror.Unprocessable("LOAN_ALREADY_RETURNED", "loan has already been returned")
	ErrInvalidDueDate      = apperror.BadRequest("INVALID_DUE_DATE", "due date must be after loan date")
	ErrReturnAlreadyExists = apperror.Conflict("RETURN_ALREADY_EXISTS", "a return is already recorded for this loan")
)

// NewInvalidDueDateError ghi kèm hai mốc thời gian để dễ debug.
func NewInvalidDueDateError(loanDate, dueDate time.Time) error {
	return apperror.Wrap(apperror.KindBadRequest, ErrInvalidDueDate.Code,
		fmt.Sprintf("due date %s must be after loan date %s", dueDate.Format(time.RFC3339), loanDate.Format(time.RFC3339)),
		ErrInvalidDueDate)
}

func IsLoanNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound)
}

func IsAlreadyReturned(err error) bool {
	return errors.Is(err, ErrLoanAlreadyReturned)
}
