package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FineStatus string

const (
	FineStatusNone   FineStatus = "none"
	FineStatusPaid   FineStatus = "paid"
	FineStatusUnpaid FineStatus = "unpaid"
)

// ReturnCondition là tình trạng sách khi trả. Chỉ để ghi nhận: stock luôn
// được cộng lại theo quantity của loan, kể cả damaged/lost.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "good"
	ConditionDamaged ReturnCondition = "damaged"
	ConditionLost    ReturnCondition = "lost"
)

func (c ReturnCondition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

// Return records the return of a loan. One per loan (UNIQUE loan_id).
type Return struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	ReturnedAt time.Time       `json:"returned_at" db:"returned_at"`
	LateDays   int             `json:"late_days" db:"late_days"`
	FineAmount decimal.Decimal `json:"fine_amount" db:"fine_amount"`
	FineStatus FineStatus      `json:"fine_status" db:"fine_status"`
	Condition  ReturnCondition `json:"condition" db:"condition"`
	Notes      *string         `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const day = 24 * time.Hour

// CalculateFine tính số ngày trễ (làm tròn lên theo từng 24h) và tiền phạt.
//
//	lateDays = max(0, ceil((returnedAt - dueDate) / 24h))
//	fine     = lateDays × finePerDay
func CalculateFine(dueDate, returnedAt time.Time, finePerDay decimal.Decimal) (int, decimal.Decimal) {
	late := returnedAt.Sub(dueDate)
	if late <= 0 {
		return 0, decimal.Zero
	}

	lateDays := int((late + day - 1) / day)
	return lateDays, finePerDay.Mul(decimal.NewFromInt(int64(lateDays)))
}

// FineStatusFor: có tiền phạt → unpaid, không → paid.
func FineStatusFor(fine decimal.Decimal) FineStatus {
	if fine.IsPositive() {
		return FineStatusUnpaid
	}
	return FineStatusPaid
}
