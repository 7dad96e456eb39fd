package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"where2meet/internal/retry"
)

const (
	postgresDriver      = "pgx"
	postgresPingBudget  = 15 * time.Second
	postgresPingTimeout = 2 * time.Second
)

// NewPostgres opens a pgx-backed pool and waits until the server answers,
// backing off between pings.
func NewPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), postgresPingBudget)
	defer cancel()

	err = retry.DoWithRetry(ctx, 6, 250*time.Millisecond, func() error {
		pingCtx, pingCancel := context.WithTimeout(ctx, postgresPingTimeout)
		defer pingCancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres not reachable: %w", err)
	}
	return db, nil
}
