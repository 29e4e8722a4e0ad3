package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/loan/model"
	memberModel "library-backend/internal/domains/member/model"
	"library-backend/internal/repository"
	"library-backend/pkg/actor"
	"library-backend/pkg/apperror"
	"library-backend/pkg/clock"
	"library-backend/pkg/database"
	"library-backend/pkg/logger"
	"library-backend/pkg/query"
	repo "library-backend/pkg/repository"
)

type LoanService struct {
	repos           *repository.Repositories
	tx              *repository.TxManager
	clock           clock.Clock
	defaultLoanDays int
}

func NewLoanService(repos *repository.Repositories, tx *repository.TxManager, c clock.Clock, defaultLoanDays int) LoanServiceInterface {
	return &LoanService{
		repos:           repos,
		tx:              tx,
		clock:           c,
		defaultLoanDays: defaultLoanDays,
	}
}

// Create implements LoanServiceInterface.Create
//
//	BEGIN
//	SELECT books ... FOR UPDATE            (các loan/approve khác trên cùng sách phải chờ)
//	member exists?
//	stock >= quantity?
//	INSERT loans (status = borrowed)
//	UPDATE books SET stock = stock - quantity
//	COMMIT
func (s *LoanService) Create(ctx context.Context, req model.CreateLoanRequest) (*model.Loan, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	loanDate, dueDate, err := req.ResolveDates(s.clock.Now(), s.defaultLoanDays)
	if err != nil {
		return nil, err
	}

	loan, err := database.RunResult(ctx, s.tx, func(ctx context.Context, repos *repository.Repositories) (*model.Loan, error) {
		// === STEP 1: Lock book ===
		book, err := repos.Books.LockByPk(ctx, req.BookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, bookModel.ErrBookNotFound
		}

		// === STEP 2: Member phải tồn tại ===
		exists, err := repos.Members.Exists(ctx, query.Eq(repos.Members.Column("id"), req.MemberID))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, memberModel.ErrMemberNotFound
		}

		// === STEP 3: Stock ===
		if !book.CanSupply(req.Quantity) {
			return nil, bookModel.NewInsufficientStockError(apperror.KindBadRequest, book.Stock, req.Quantity)
		}

		// === STEP 4: Insert loan ===
		loan, err := repos.Loans.InsertOne(ctx, repo.Values{
			"id":        uuid.New(),
			"member_id": req.MemberID,
			"book_id":   book.ID,
			"quantity":  req.Quantity,
			"loan_date": loanDate,
			"due_date":  dueDate,
			"status":    string(model.LoanStatusBorrowed),
		})
		if err != nil {
			return nil, err
		}

		// === STEP 5: Trừ stock ===
		if _, err := repos.Books.Decrement(ctx, "stock", req.Quantity, query.Eq(repos.Books.Column("id"), book.ID)); err != nil {
			return nil, err
		}

		return loan, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan created", actor.LogFields(ctx, map[string]interface{}{
		"loan_id":   loan.ID,
		"book_id":   loan.BookID,
		"member_id": loan.MemberID,
		"quantity":  loan.Quantity,
		"due_date":  loan.DueDate,
	}))

	return loan, nil
}

// Get implements LoanServiceInterface.Get
func (s *LoanService) Get(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	loan, err := s.repos.Loans.FindByPk(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, model.ErrLoanNotFound
	}

	loan.Status = loan.EffectiveStatus(s.clock.Now())
	return loan, nil
}

// List implements LoanServiceInterface.List
func (s *LoanService) List(ctx context.Context, req model.ListLoansRequest) (*repo.Page[model.LoanView], error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	now := s.clock.Now()
	page, err := s.repos.LoanViews.Paginate(ctx, loanPageRequest(req, now))
	if err != nil {
		return nil, err
	}

	for i := range page.Data {
		page.Data[i].Derive(now)
	}
	return page, nil
}

func loanPageRequest(req model.ListLoansRequest, now time.Time) repo.PageRequest {
	where := query.And{}
	if req.MemberID != nil {
		where = append(where, query.Eq("l.member_id", *req.MemberID))
	}
	if req.BookID != nil {
		where = append(where, query.Eq("l.book_id", *req.BookID))
	}
	if req.Status != nil {
		where = append(where, statusCondition(*req.Status, now))
	}

	return repo.PageRequest{
		Page:  req.Page,
		Limit: req.Limit,
		Where: where,
		Joins: []query.Join{
			{Type: query.InnerJoin, Table: "books", Alias: "b", On: query.ColumnEq("b.id", "l.book_id")},
			{Type: query.InnerJoin, Table: "members", Alias: "m", On: query.ColumnEq("m.id", "l.member_id")},
		},
		Select:     []string{"l.*", "b.title AS book_title", "m.name AS member_name"},
		Search:     req.Search,
		Searchable: []string{"b.title", "m.name", "m.email"},
		Sortable:   []string{"l.loan_date", "l.due_date", "l.created_at", "b.title", "m.name"},
		OrderBy:    req.OrderBy,
		OrderDir:   req.OrderDir,
	}
}

// statusCondition: late không có trong DB, late = borrowed + due_date < now.
// borrowed vì vậy chỉ gồm các loan chưa quá hạn.
func statusCondition(status model.LoanStatus, now time.Time) query.Condition {
	switch status {
	case model.LoanStatusLate:
		return query.And{
			query.Eq("l.status", string(model.LoanStatusBorrowed)),
			query.Lt("l.due_date", now),
		}
	case model.LoanStatusBorrowed:
		return query.And{
			query.Eq("l.status", string(model.LoanStatusBorrowed)),
			query.Gte("l.due_date", now),
		}
	default:
		return query.Eq("l.status", string(status))
	}
}
