package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier là tập method chung của *pgxpool.Pool, *pgxpool.Conn và pgx.Tx.
// Repository chỉ phụ thuộc vào interface này nên cùng một constructor dùng
// được cho pool (auto-commit) lẫn transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a transaction on a dedicated connection.
// *pgxpool.Pool acquires the connection in BeginTx and hands it back to the
// pool when the transaction is committed or rolled back.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}
