package model

import (
	"time"

	"github.com/google/uuid"
)

// LoanStatus là trạng thái lưu trong DB.
//
//	borrowed → returned (chỉ qua ReturnService.Create)
//	lost: thao tác hành chính, ngoài workflow
//	late: không bao giờ được ghi xuống DB, xem EffectiveStatus
type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusLate     LoanStatus = "late"
	LoanStatusLost     LoanStatus = "lost"
)

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusBorrowed, LoanStatusReturned, LoanStatusLate, LoanStatusLost:
		return true
	}
	return false
}

func (s LoanStatus) String() string {
	return string(s)
}

// Loan is one member borrowing Quantity copies of a book.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"member_id" db:"member_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	Quantity   int        `json:"quantity" db:"quantity"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date" db:"return_date"`
	Status     LoanStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsReturned is true once a return has been recorded, whichever of the two
// markers got set.
func (l *Loan) IsReturned() bool {
	return l.ReturnDate != nil || l.Status == LoanStatusReturned
}

// EffectiveStatus derives "late" at read time: a borrowed loan past its due
// date. Every other status is reported as stored.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status == LoanStatusBorrowed && now.After(l.DueDate) {
		return LoanStatusLate
	}
	return l.Status
}

// LoanView is a loan row joined with its book and member, used by listings.
type LoanView struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"member_id" db:"member_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	Quantity   int        `json:"quantity" db:"quantity"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date" db:"return_date"`
	Status     LoanStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	BookTitle  string `json:"book_title" db:"book_title"`
	MemberName string `json:"member_name" db:"member_name"`
}

// Derive replaces the stored status with EffectiveStatus(now).
func (v *LoanView) Derive(now time.Time) {
	loan := Loan{Status: v.Status, DueDate: v.DueDate}
	v.Status = loan.EffectiveStatus(now)
}
