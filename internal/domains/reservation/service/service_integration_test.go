package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/repository"
	"library-backend/internal/testutil"
	"library-backend/pkg/apperror"
	"library-backend/pkg/clock"
)

var reservedAt = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type recordingScheduler struct {
	mu    sync.Mutex
	calls map[uuid.UUID]time.Time
	err   error
}

func (s *recordingScheduler) ScheduleExpiry(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[uuid.UUID]time.Time{}
	}
	s.calls[id] = at
	return s.err
}

type reservationEnv struct {
	pool      *pgxpool.Pool
	repos     *repository.Repositories
	tx        *repository.TxManager
	scheduler *recordingScheduler
}

func newReservationEnv(t *testing.T) (*reservationEnv, context.Context) {
	t.Helper()
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	repos, err := repository.NewRepositories(pool)
	require.NoError(t, err)

	return &reservationEnv{
		pool:      pool,
		repos:     repos,
		tx:        repository.NewTxManager(pool, repos),
		scheduler: &recordingScheduler{},
	}, ctx
}

// serviceAt trả về service với đồng hồ cố định tại now
func (e *reservationEnv) serviceAt(now time.Time) ServiceInterface {
	c := clock.NewFixed(now)
	return NewService(e.repos, e.tx, c, NewCodeGenerator(newFakeCounter(), "RSV", c), 48*time.Hour,
		WithExpiryScheduler(e.scheduler))
}

func TestReservationService_ApproveThenCancelRestoresStock(t *testing.T) {
	env, ctx := newReservationEnv(t)
	svc := env.serviceAt(reservedAt)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Nhà giả kim", 3)
	memberID := testutil.InsertMember(t, ctx, env.pool, "Hoa")

	created, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, "RSV-20260510-000001", created.Code)
	assert.True(t, created.ExpiresAt.Equal(reservedAt.Add(48*time.Hour)))
	assert.True(t, env.scheduler.calls[created.ID].Equal(created.ExpiresAt))

	// pending không giữ stock
	assert.Equal(t, 3, testutil.BookStock(t, ctx, env.pool, bookID))

	approved, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, 1, testutil.BookStock(t, ctx, env.pool, bookID))

	canceled, err := svc.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, 3, testutil.BookStock(t, ctx, env.pool, bookID))

	t.Run("terminal states reject every transition", func(t *testing.T) {
		for _, fn := range []func(context.Context, uuid.UUID) (*model.Reservation, error){
			svc.Approve, svc.Cancel, svc.Reject, svc.Expire, svc.Complete,
		} {
			_, err := fn(ctx, created.ID)
			assert.True(t, model.IsInvalidTransition(err), "got %v", err)
		}
		assert.Equal(t, 3, testutil.BookStock(t, ctx, env.pool, bookID))
	})
}

func TestReservationService_CompleteKeepsStockTaken(t *testing.T) {
	env, ctx := newReservationEnv(t)
	svc := env.serviceAt(reservedAt)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Cho tôi xin một vé đi tuổi thơ", 2)
	memberID := testutil.InsertMember(t, ctx, env.pool, "An")

	r, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, r.ID)
	assert.True(t, model.IsInvalidTransition(err), "pending cannot complete")

	_, err = svc.Approve(ctx, r.ID)
	require.NoError(t, err)

	done, err := svc.Complete(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, 1, testutil.BookStock(t, ctx, env.pool, bookID))
}

func TestReservationService_ApproveNeedsStock(t *testing.T) {
	env, ctx := newReservationEnv(t)
	svc := env.serviceAt(reservedAt)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Mắt biếc", 1)
	memberID := testutil.InsertMember(t, ctx, env.pool, "Ngạn")

	r, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, r.ID)
	require.Error(t, err)
	assert.True(t, bookModel.IsInsufficientStock(err))
	assert.Equal(t, apperror.KindUnprocessableEntity, apperror.KindOf(err))

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "failed approve leaves the reservation untouched")
	assert.Equal(t, 1, testutil.BookStock(t, ctx, env.pool, bookID))

	rejected, err := svc.Reject(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
}

func TestReservationService_ConcurrentApprovalsNeverOversell(t *testing.T) {
	env, ctx := newReservationEnv(t)
	svc := env.serviceAt(reservedAt)

	const (
		stock   = 3
		workers = 6
	)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Đất rừng phương Nam", stock)
	memberID := testutil.InsertMember(t, ctx, env.pool, "An")

	ids := make([]uuid.UUID, workers)
	for i := range ids {
		r, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1})
		require.NoError(t, err)
		ids[i] = r.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Approve(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	approved := 0
	for err := range errs {
		if err == nil {
			approved++
			continue
		}
		assert.True(t, bookModel.IsInsufficientStock(err), "unexpected error: %v", err)
	}
	assert.Equal(t, stock, approved)
	assert.Zero(t, testutil.BookStock(t, ctx, env.pool, bookID))
}

func TestReservationService_Create(t *testing.T) {
	env, ctx := newReservationEnv(t)
	svc := env.serviceAt(reservedAt)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Tôi thấy hoa vàng trên cỏ xanh", 1)
	memberID := testutil.InsertMember(t, ctx, env.pool, "Thiều")

	t.Run("unknown book or member", func(t *testing.T) {
		_, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: uuid.New(), Quantity: 1})
		assert.ErrorIs(t, err, bookModel.ErrBookNotFound)

		_, err = svc.Create(ctx, model.CreateReservationRequest{MemberID: uuid.New(), BookID: bookID, Quantity: 1})
		assert.Error(t, err)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})

	t.Run("scheduler failure does not undo the reservation", func(t *testing.T) {
		env.scheduler.err = errors.New("redis down")
		defer func() { env.scheduler.err = nil }()

		r, err := svc.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1})
		require.NoError(t, err)

		got, err := svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Code, got.Code)
	})

	t.Run("list joins the book title", func(t *testing.T) {
		page, err := svc.List(ctx, model.ListReservationsRequest{BookID: &bookID, Search: "hoa vàng"})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "Tôi thấy hoa vàng trên cỏ xanh", page.Data[0].BookTitle)
		assert.Equal(t, model.StatusPending, page.Data[0].Status)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := svc.Get(ctx, uuid.New())
		assert.True(t, model.IsReservationNotFound(err))
	})
}

func TestReservationService_ExpireOverdue(t *testing.T) {
	env, ctx := newReservationEnv(t)
	early := env.serviceAt(reservedAt)
	bookID := testutil.InsertBook(t, ctx, env.pool, "Bỉ vỏ", 5)
	memberID := testutil.InsertMember(t, ctx, env.pool, "Năm")

	soon := reservedAt.Add(time.Hour)
	due, err := early.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1, ExpiresAt: &soon})
	require.NoError(t, err)
	alsoDue, err := early.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1, ExpiresAt: &soon})
	require.NoError(t, err)
	notYet, err := early.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1})
	require.NoError(t, err)
	approved, err := early.Create(ctx, model.CreateReservationRequest{MemberID: memberID, BookID: bookID, Quantity: 1, ExpiresAt: &soon})
	require.NoError(t, err)
	_, err = early.Approve(ctx, approved.ID)
	require.NoError(t, err)

	later := env.serviceAt(reservedAt.Add(2 * time.Hour))

	t.Run("approve after expiry is refused", func(t *testing.T) {
		_, err := later.Approve(ctx, due.ID)
		assert.ErrorIs(t, err, model.ErrReservationExpired)
	})

	n, err := later.ExpireOverdue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[uuid.UUID]model.ReservationStatus{
		due.ID:      model.StatusExpired,
		alsoDue.ID:  model.StatusExpired,
		notYet.ID:   model.StatusPending,
		approved.ID: model.StatusApproved,
	} {
		got, err := later.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	// stock chỉ bị trừ bởi reservation đã approve
	assert.Equal(t, 4, testutil.BookStock(t, ctx, env.pool, bookID))

	n, err = later.ExpireOverdue(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep finds nothing")
}
