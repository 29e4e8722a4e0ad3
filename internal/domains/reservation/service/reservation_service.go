package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	bookModel "library-backend/internal/domains/book/model"
	memberModel "library-backend/internal/domains/member/model"
	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/repository"
	"library-backend/pkg/actor"
	"library-backend/pkg/apperror"
	"library-backend/pkg/clock"
	"library-backend/pkg/database"
	"library-backend/pkg/logger"
	"library-backend/pkg/query"
	repo "library-backend/pkg/repository"
)

const defaultExpireBatch = 500

type ReservationService struct {
	repos     *repository.Repositories
	tx        *repository.TxManager
	clock     clock.Clock
	codes     *CodeGenerator
	ttl       time.Duration
	scheduler ExpiryScheduler
}

type Option func(*ReservationService)

// WithExpiryScheduler: enqueue task expire ngay khi tạo reservation.
// Không có scheduler thì chỉ dựa vào job quét định kỳ.
func WithExpiryScheduler(s ExpiryScheduler) Option {
	return func(svc *ReservationService) {
		svc.scheduler = s
	}
}

func NewService(
	repos *repository.Repositories,
	tx *repository.TxManager,
	c clock.Clock,
	codes *CodeGenerator,
	ttl time.Duration,
	opts ...Option,
) ServiceInterface {
	s := &ReservationService{
		repos: repos,
		tx:    tx,
		clock: c,
		codes: codes,
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ========================================
// CREATE
// ========================================

func (s *ReservationService) Create(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	now := s.clock.Now()
	expiresAt, err := req.ExpiryOrDefault(now, s.ttl)
	if err != nil {
		return nil, apperror.FromValidation(err)
	}

	code := s.codes.Next(ctx)

	reservation, err := database.RunResult(ctx, s.tx, func(ctx context.Context, repos *repository.Repositories) (*model.Reservation, error) {
		bookExists, err := repos.Books.Exists(ctx, query.Eq(repos.Books.Column("id"), req.BookID))
		if err != nil {
			return nil, err
		}
		if !bookExists {
			return nil, bookModel.ErrBookNotFound
		}

		memberExists, err := repos.Members.Exists(ctx, query.Eq(repos.Members.Column("id"), req.MemberID))
		if err != nil {
			return nil, err
		}
		if !memberExists {
			return nil, memberModel.ErrMemberNotFound
		}

		return repos.Reservations.InsertOne(ctx, repo.Values{
			"id":          uuid.New(),
			"code":        code,
			"member_id":   req.MemberID,
			"book_id":     req.BookID,
			"quantity":    req.Quantity,
			"status":      string(model.StatusPending),
			"notes":       req.Notes,
			"reserved_at": now,
			"expires_at":  expiresAt,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Reservation created", actor.LogFields(ctx, map[string]interface{}{
		"reservation_id": reservation.ID,
		"code":           reservation.Code,
		"book_id":        reservation.BookID,
		"quantity":       reservation.Quantity,
		"expires_at":     reservation.ExpiresAt,
	}))

	// Sau commit. Lỗi enqueue không rollback reservation, job quét định kỳ sẽ xử lý.
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleExpiry(ctx, reservation.ID, reservation.ExpiresAt); err != nil {
			logger.Warn("Failed to schedule reservation expiry", map[string]interface{}{
				"reservation_id": reservation.ID,
				"error":          err.Error(),
			})
		}
	}

	return reservation, nil
}

// ========================================
// STATUS TRANSITIONS
// ========================================

// transitionFunc chạy trong transaction sau khi reservation đã bị lock và
// transition đã hợp lệ; trả về các cột cần update thêm ngoài status.
type transitionFunc func(ctx context.Context, repos *repository.Repositories, r *model.Reservation, now time.Time) (repo.Values, error)

// Approve: pending → approved, trừ stock
func (s *ReservationService) Approve(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusApproved, func(ctx context.Context, repos *repository.Repositories, r *model.Reservation, now time.Time) (repo.Values, error) {
		if r.IsOverdue(now) {
			return nil, model.ErrReservationExpired
		}

		book, err := repos.Books.LockByPk(ctx, r.BookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, bookModel.ErrBookNotFound
		}
		if !book.CanSupply(r.Quantity) {
			return nil, bookModel.NewInsufficientStockError(apperror.KindUnprocessableEntity, book.Stock, r.Quantity)
		}

		if _, err := repos.Books.Decrement(ctx, "stock", r.Quantity, query.Eq(repos.Books.Column("id"), book.ID)); err != nil {
			return nil, err
		}
		return repo.Values{"approved_at": now}, nil
	})
}

// Cancel: approved → canceled (cộng lại stock), pending → canceled
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusCanceled, func(ctx context.Context, repos *repository.Repositories, r *model.Reservation, now time.Time) (repo.Values, error) {
		if r.Status.HoldsStock() {
			book, err := repos.Books.LockByPk(ctx, r.BookID)
			if err != nil {
				return nil, err
			}
			if book == nil {
				return nil, bookModel.ErrBookNotFound
			}
			if _, err := repos.Books.Increment(ctx, "stock", r.Quantity, query.Eq(repos.Books.Column("id"), book.ID)); err != nil {
				return nil, err
			}
		}
		return repo.Values{"canceled_at": now}, nil
	})
}

func (s *ReservationService) Reject(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusRejected, nil)
}

func (s *ReservationService) Expire(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusExpired, nil)
}

func (s *ReservationService) Complete(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusCompleted, func(_ context.Context, _ *repository.Repositories, _ *model.Reservation, now time.Time) (repo.Values, error) {
		return repo.Values{"completed_at": now}, nil
	})
}

// transition: lock → check state machine → apply → update status, một transaction
func (s *ReservationService) transition(ctx context.Context, id uuid.UUID, to model.ReservationStatus, apply transitionFunc) (*model.Reservation, error) {
	var from model.ReservationStatus

	updated, err := database.RunResult(ctx, s.tx, func(ctx context.Context, repos *repository.Repositories) (*model.Reservation, error) {
		r, err := repos.Reservations.LockByPk(ctx, id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, model.ErrReservationNotFound
		}
		if !r.Status.CanTransitionTo(to) {
			return nil, model.NewInvalidTransitionError(r.Status, to)
		}
		from = r.Status

		values := repo.Values{}
		if apply != nil {
			extra, err := apply(ctx, repos, r, s.clock.Now())
			if err != nil {
				return nil, err
			}
			for k, v := range extra {
				values[k] = v
			}
		}
		values["status"] = string(to)

		updated, err := repos.Reservations.UpdateByPk(ctx, r.ID, values)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, model.ErrReservationNotFound
		}
		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Reservation status changed", actor.LogFields(ctx, map[string]interface{}{
		"reservation_id": updated.ID,
		"code":           updated.Code,
		"from":           from,
		"to":             updated.Status,
		"quantity":       updated.Quantity,
	}))

	return updated, nil
}

// ========================================
// BATCH EXPIRY
// ========================================

// ExpireOverdue implements ServiceInterface.ExpireOverdue
func (s *ReservationService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultExpireBatch
	}

	overdue, err := s.repos.Reservations.FindMany(ctx, repo.FindOptions{
		Select: []string{"rv.id"},
		Where: query.And{
			query.Eq("rv.status", string(model.StatusPending)),
			query.Lte("rv.expires_at", s.clock.Now()),
		},
		OrderBy: []repo.Order{{Column: "rv.expires_at"}},
		Limit:   limit,
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, r := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		if _, err := s.Expire(ctx, r.ID); err != nil {
			// đã được approve / cancel giữa lúc quét và lúc lock
			if model.IsInvalidTransition(err) || model.IsReservationNotFound(err) {
				continue
			}
			return expired, err
		}
		expired++
	}

	return expired, nil
}

// ========================================
// QUERIES
// ========================================

func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := s.repos.Reservations.FindByPk(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.ErrReservationNotFound
	}
	return r, nil
}

func (s *ReservationService) List(ctx context.Context, req model.ListReservationsRequest) (*repo.Page[model.ReservationView], error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}
	return s.repos.ReservationViews.Paginate(ctx, reservationPageRequest(req))
}

// ReservationView không có đủ cột của reservations nên không dùng rv.*
var reservationViewColumns = []string{
	"rv.id", "rv.code", "rv.member_id", "rv.book_id", "rv.quantity",
	"rv.status", "rv.reserved_at", "rv.expires_at", "b.title AS book_title",
}

func reservationPageRequest(req model.ListReservationsRequest) repo.PageRequest {
	where := query.And{}
	if req.MemberID != nil {
		where = append(where, query.Eq("rv.member_id", *req.MemberID))
	}
	if req.BookID != nil {
		where = append(where, query.Eq("rv.book_id", *req.BookID))
	}
	if req.Status != nil {
		where = append(where, query.Eq("rv.status", string(*req.Status)))
	}

	return repo.PageRequest{
		Page:  req.Page,
		Limit: req.Limit,
		Where: where,
		Joins: []query.Join{
			{Type: query.InnerJoin, Table: "books", Alias: "b", On: query.ColumnEq("b.id", "rv.book_id")},
		},
		Select:     reservationViewColumns,
		Search:     req.Search,
		Searchable: []string{"rv.code", "b.title"},
		Sortable:   []string{"rv.reserved_at", "rv.expires_at", "rv.created_at", "rv.code"},
		OrderBy:    req.OrderBy,
		OrderDir:   req.OrderDir,
	}
}
