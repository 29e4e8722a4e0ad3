package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"library-backend/internal/domains/loan/model"
	"library-backend/internal/repository"
	"library-backend/pkg/actor"
	"library-backend/pkg/apperror"
	"library-backend/pkg/clock"
	"library-backend/pkg/database"
	"library-backend/pkg/logger"
	"library-backend/pkg/query"
	repo "library-backend/pkg/repository"
)

type ReturnService struct {
	tx         *repository.TxManager
	clock      clock.Clock
	finePerDay decimal.Decimal
}

func NewReturnService(tx *repository.TxManager, c clock.Clock, finePerDay decimal.Decimal) ReturnServiceInterface {
	return &ReturnService{
		tx:         tx,
		clock:      c,
		finePerDay: finePerDay,
	}
}

// Create implements ReturnServiceInterface.Create
//
//	BEGIN
//	SELECT loans ... FOR UPDATE   (hai request trả cùng loan: request sau thấy returned)
//	INSERT returns                (UNIQUE loan_id chặn nốt trường hợp còn lại)
//	UPDATE loans SET status = returned, return_date = now
//	UPDATE books SET stock = stock + quantity
//	COMMIT
//
// Stock luôn được cộng lại theo quantity, condition chỉ để ghi nhận.
func (s *ReturnService) Create(ctx context.Context, req model.CreateReturnRequest) (*model.Return, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	ret, err := database.RunResult(ctx, s.tx, func(ctx context.Context, repos *repository.Repositories) (*model.Return, error) {
		// === STEP 1: Lock loan ===
		loan, err := repos.Loans.LockByPk(ctx, req.LoanID)
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, model.ErrLoanNotFound
		}
		if loan.IsReturned() {
			return nil, model.ErrLoanAlreadyReturned
		}

		// === STEP 2: Fine ===
		now := s.clock.Now()
		lateDays, fine := model.CalculateFine(loan.DueDate, now, s.finePerDay)

		// === STEP 3: Insert return ===
		ret, err := repos.Returns.InsertOne(ctx, repo.Values{
			"id":          uuid.New(),
			"loan_id":     loan.ID,
			"returned_at": now,
			"late_days":   lateDays,
			"fine_amount": fine,
			"fine_status": string(model.FineStatusFor(fine)),
			"condition":   string(req.ConditionOrDefault()),
			"notes":       req.Notes,
		})
		if err != nil {
			if apperror.IsKind(err, apperror.KindConflict) {
				return nil, apperror.Wrap(apperror.KindConflict, model.ErrReturnAlreadyExists.Code,
					model.ErrReturnAlreadyExists.Message, errors.Join(model.ErrReturnAlreadyExists, err))
			}
			return nil, err
		}

		// === STEP 4: Close loan ===
		if _, err := repos.Loans.UpdateByPk(ctx, loan.ID, repo.Values{
			"status":      string(model.LoanStatusReturned),
			"return_date": now,
		}); err != nil {
			return nil, err
		}

		// === STEP 5: Cộng lại stock ===
		affected, err := repos.Books.Increment(ctx, "stock", loan.Quantity, query.Eq(repos.Books.Column("id"), loan.BookID))
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// sách đã bị soft delete trong lúc loan còn mở
			logger.Warn("Returned copies of a deleted book", map[string]interface{}{
				"loan_id": loan.ID,
				"book_id": loan.BookID,
			})
		}

		return ret, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan returned", actor.LogFields(ctx, map[string]interface{}{
		"loan_id":     ret.LoanID,
		"late_days":   ret.LateDays,
		"fine_amount": ret.FineAmount.String(),
		"fine_status": ret.FineStatus,
		"condition":   ret.Condition,
	}))

	return ret, nil
}
