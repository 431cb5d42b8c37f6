// Package database owns the Postgres pool that backs the completed-session
// archive.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/maeum-coach/coaching-server-go/internal/config"
)

// Querier is the query surface shared by the pool and a transaction.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

type DB struct {
	*sqlx.DB
}

// Connect opens the archive pool and verifies it answers within
// config.DBPingTimeout.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	pool.SetMaxOpenConns(config.DBMaxOpenConns)
	pool.SetMaxIdleConns(config.DBMaxIdleConns)
	pool.SetConnMaxLifetime(config.DBConnMaxLifetime)

	db := &DB{pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping archive database: %w", err)
	}
	return nil
}
