// Package persist emits parsed blocks and domain snapshots into Postgres.
// It is the sole writer in the indexer: the batcher hands it whole batches,
// and the domain upsert workers hand it single rows.
package persist

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnParams composes the connection string accepted by pgx: hostaddr and
// port are always present; user, password, and dbname are each omitted
// entirely (not emitted blank) when unset.
type ConnParams struct {
	HostAddr string
	Port     int
	User     string
	Password string
	DBName   string
}

// String builds the `hostaddr=... port=...[ user=...][ password=...][ dbname=...]`
// connection string pgx's config parser accepts.
func (p ConnParams) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hostaddr=%s port=%d", p.HostAddr, p.Port)
	if p.User != "" {
		fmt.Fprintf(&b, " user=%s", p.User)
	}
	if p.Password != "" {
		fmt.Fprintf(&b, " password=%s", p.Password)
	}
	if p.DBName != "" {
		fmt.Fprintf(&b, " dbname=%s", p.DBName)
	}
	return b.String()
}

// Tx is the subset of pgx.Tx the batch inserter and upsert workers need.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool is the subset of *pgxpool.Pool this package depends on, narrowed so
// tests can supply a fake instead of a generated mock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// pgxPool adapts *pgxpool.Pool to Pool; pgxpool.Tx already satisfies Tx.
type pgxPool struct {
	*pgxpool.Pool
}

func (p pgxPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Open creates a connection pool for params.
func Open(ctx context.Context, params ConnParams) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(params.String())
	if err != nil {
		return nil, fmt.Errorf("persist: parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("persist: open pool: %w", err)
	}
	return pgxPool{pool}, nil
}
