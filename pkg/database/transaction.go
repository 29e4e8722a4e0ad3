package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"library-backend/pkg/apperror"
)

// TxManager chạy callback trong một transaction và đưa cho callback một bộ
// repositories đã bind vào transaction đó.
//
//	Begin transaction (dedicated connection từ pool)
//	Build repositories bằng factory(tx)
//	fn return error / panic → rollback, error trả về nguyên vẹn
//	fn success → commit
//
// Gọi Run lồng nhau (ctx đã chứa tx) sẽ dùng lại transaction hiện tại.
type TxManager[R any] struct {
	db      TxBeginner
	factory func(Querier) R
	opts    pgx.TxOptions
}

// TxOption tweaks the options used for BEGIN.
type TxOption func(*pgx.TxOptions)

// WithIsoLevel overrides the isolation level (default: read committed).
func WithIsoLevel(level pgx.TxIsoLevel) TxOption {
	return func(o *pgx.TxOptions) {
		o.IsoLevel = level
	}
}

// WithReadOnly opens the transaction in READ ONLY mode.
func WithReadOnly() TxOption {
	return func(o *pgx.TxOptions) {
		o.AccessMode = pgx.ReadOnly
	}
}

// NewTxManager creates a manager. factory is the same constructor used for
// pool-bound repositories, called with the transaction instead.
func NewTxManager[R any](db TxBeginner, factory func(Querier) R, opts ...TxOption) *TxManager[R] {
	m := &TxManager[R]{
		db:      db,
		factory: factory,
		opts:    pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite},
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

type txKey struct{}

// TxFromContext returns the transaction started by an enclosing Run, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// Run executes fn inside a transaction.
func (m *TxManager[R]) Run(ctx context.Context, fn func(ctx context.Context, repos R) error) error {
	// === NESTED CALL: reuse outer transaction ===
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx, m.factory(tx))
	}

	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return apperror.Internal("failed to begin transaction", err)
	}

	committed := false
	// Rollback chạy cả khi fn panic (panic tiếp tục propagate sau defer).
	// WithoutCancel: request bị cancel vẫn phải rollback để nhả row locks.
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("[DATABASE] Transaction rollback failed")
		}
	}()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx, m.factory(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.Internal("failed to commit transaction", err)
	}
	committed = true

	return nil
}

// RunResult wraps Run for callbacks that produce a value.
func RunResult[R, T any](ctx context.Context, m *TxManager[R], fn func(ctx context.Context, repos R) (T, error)) (T, error) {
	var result T

	err := m.Run(ctx, func(txCtx context.Context, repos R) error {
		var fnErr error
		result, fnErr = fn(txCtx, repos)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
