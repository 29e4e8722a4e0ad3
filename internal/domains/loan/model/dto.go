package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/shared/utils"
)

// ========================================
// LOAN DTOs
// ========================================

type CreateLoanRequest struct {
	MemberID uuid.UUID  `json:"member_id"`
	BookID   uuid.UUID  `json:"book_id"`
	Quantity int        `json:"quantity"`
	LoanDate *time.Time `json:"loan_date,omitempty"` // default: now
	DueDate  *time.Time `json:"due_date,omitempty"`  // default: loan_date + LOAN_DEFAULT_DAYS
}

func (r CreateLoanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MemberID, utils.RequiredUUID),
		validation.Field(&r.BookID, utils.RequiredUUID),
		validation.Field(&r.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be at least 1"),
		),
	)
}

// ResolveDates applies the defaults and checks dueDate > loanDate.
func (r CreateLoanRequest) ResolveDates(now time.Time, defaultDays int) (time.Time, time.Time, error) {
	loanDate := now
	if r.LoanDate != nil {
		loanDate = r.LoanDate.UTC()
	}

	dueDate := loanDate.AddDate(0, 0, defaultDays)
	if r.DueDate != nil {
		dueDate = r.DueDate.UTC()
	}

	if !dueDate.After(loanDate) {
		return time.Time{}, time.Time{}, NewInvalidDueDateError(loanDate, dueDate)
	}
	return loanDate, dueDate, nil
}

type ListLoansRequest struct {
	Page     int         `json:"page"`
	Limit    int         `json:"limit"`
	MemberID *uuid.UUID  `json:"member_id,omitempty"`
	BookID   *uuid.UUID  `json:"book_id,omitempty"`
	Status   *LoanStatus `json:"status,omitempty"` // late được hiểu là borrowed + quá hạn
	Search   string      `json:"search,omitempty"`
	OrderBy  string      `json:"order_by,omitempty"`
	OrderDir string      `json:"order_dir,omitempty"`
}

func (r ListLoansRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status,
			validation.In(LoanStatusBorrowed, LoanStatusReturned, LoanStatusLate, LoanStatusLost).Error("invalid loan status"),
		),
	)
}

// ========================================
// RETURN DTOs
// ========================================

type CreateReturnRequest struct {
	LoanID    uuid.UUID       `json:"loan_id"`
	Condition ReturnCondition `json:"condition,omitempty"` // default: good
	Notes     *string         `json:"notes,omitempty"`
}

func (r CreateReturnRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LoanID, utils.RequiredUUID),
		validation.Field(&r.Condition,
			validation.In(ConditionGood, ConditionDamaged, ConditionLost).Error("condition must be good, damaged or lost"),
		),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

// ConditionOrDefault trả về good khi client không gửi condition.
func (r CreateReturnRequest) ConditionOrDefault() ReturnCondition {
	if r.Condition == "" {
		return ConditionGood
	}
	return r.Condition
}
