package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Supported database/sql driver names.
const (
	DriverPGX = "pgx"
	DriverPQ  = "postgres"
)

type Options struct {
	Driver             string
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
}

// Open connects with the chosen driver, applies the pool settings and checks
// the connection.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	driver := opts.Driver
	switch driver {
	case "":
		driver = DriverPGX
	case DriverPGX, DriverPQ:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(opts.ConnMaxLifetimeMin) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return db, nil
}
