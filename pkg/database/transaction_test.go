package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/apperror"
)

// fakeTx records Commit/Rollback calls. Other pgx.Tx methods are never
// reached by the manager.
type fakeTx struct {
	pgx.Tx
	commits     int
	rollbacks   int
	commitErr   error
	rollbackCtx context.Context
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rollbacks++
	f.rollbackCtx = ctx
	if f.commits > 0 && f.commitErr == nil {
		return pgx.ErrTxClosed
	}
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	begins   int
	beginErr error
	opts     pgx.TxOptions
}

func (f *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.begins++
	f.opts = opts
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

// scoped stands in for the repository set: it remembers which handle it was
// built with.
type scoped struct {
	db Querier
}

func newManager(b *fakeBeginner, opts ...TxOption) *TxManager[scoped] {
	return NewTxManager(b, func(q Querier) scoped { return scoped{db: q} }, opts...)
}

func TestTxManager_CommitOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)

	err := m.Run(context.Background(), func(ctx context.Context, repos scoped) error {
		assert.Same(t, b.tx, repos.db, "repositories must be bound to the transaction")
		assert.Same(t, b.tx, TxFromContext(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, b.begins)
	assert.Equal(t, 1, b.tx.commits)
	assert.Equal(t, pgx.ReadCommitted, b.opts.IsoLevel)
}

func TestTxManager_RollbackReturnsErrorUnchanged(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)
	sentinel := apperror.BadRequest("INSUFFICIENT_STOCK", "insufficient stock")

	err := m.Run(context.Background(), func(ctx context.Context, repos scoped) error {
		return sentinel
	})

	assert.Same(t, sentinel, err)
	assert.Equal(t, 0, b.tx.commits)
	assert.Equal(t, 1, b.tx.rollbacks)
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)

	assert.PanicsWithValue(t, "boom", func() {
		_ = m.Run(context.Background(), func(ctx context.Context, repos scoped) error {
			panic("boom")
		})
	})
	assert.Equal(t, 0, b.tx.commits)
	assert.Equal(t, 1, b.tx.rollbacks)
}

func TestTxManager_RollbackSurvivesCanceledContext(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)
	ctx, cancel := context.WithCancel(context.Background())

	err := m.Run(ctx, func(ctx context.Context, repos scoped) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, b.tx.rollbacks)
	assert.NoError(t, b.tx.rollbackCtx.Err(), "rollback must not inherit the cancellation")
}

func TestTxManager_CommitFailure(t *testing.T) {
	commitErr := errors.New("serialization failure")
	b := &fakeBeginner{tx: &fakeTx{commitErr: commitErr}}
	m := newManager(b)

	err := m.Run(context.Background(), func(ctx context.Context, repos scoped) error { return nil })

	assert.ErrorIs(t, err, commitErr)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
	assert.Equal(t, 1, b.tx.rollbacks)
}

func TestTxManager_BeginFailure(t *testing.T) {
	beginErr := errors.New("pool exhausted")
	b := &fakeBeginner{beginErr: beginErr}
	m := newManager(b)
	called := false

	err := m.Run(context.Background(), func(ctx context.Context, repos scoped) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, beginErr)
	assert.False(t, called)
}

func TestTxManager_NestedRunReusesTransaction(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)

	err := m.Run(context.Background(), func(ctx context.Context, outer scoped) error {
		return m.Run(ctx, func(ctx context.Context, inner scoped) error {
			assert.Same(t, outer.db, inner.db)
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, b.begins, "nested run must not open a second transaction")
	assert.Equal(t, 1, b.tx.commits)
}

func TestTxManager_NestedErrorRollsBackOuter(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b)
	inner := errors.New("inner failed")

	err := m.Run(context.Background(), func(ctx context.Context, _ scoped) error {
		return m.Run(ctx, func(ctx context.Context, _ scoped) error { return inner })
	})

	assert.Same(t, inner, err)
	assert.Equal(t, 0, b.tx.commits)
	assert.Equal(t, 1, b.tx.rollbacks)
}

func TestRunResult(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := newManager(b, WithIsoLevel(pgx.Serializable))

	got, err := RunResult(context.Background(), m, func(ctx context.Context, _ scoped) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, pgx.Serializable, b.opts.IsoLevel)

	got, err = RunResult(context.Background(), m, func(ctx context.Context, _ scoped) (int, error) {
		return 7, errors.New("nope")
	})
	assert.Error(t, err)
	assert.Zero(t, got)
}
