package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PoolOptions struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func defaultPool() PoolOptions {
	return PoolOptions{MaxOpenConns: 10, ConnMaxLifetime: 30 * time.Minute}
}

// Open connects to Postgres through the pgx stdlib driver and pings it.
func Open(databaseURL string, pool ...PoolOptions) (*sql.DB, error) {
	p := defaultPool()
	if len(pool) > 0 {
		if pool[0].MaxOpenConns > 0 {
			p.MaxOpenConns = pool[0].MaxOpenConns
		}
		if pool[0].ConnMaxLifetime > 0 {
			p.ConnMaxLifetime = pool[0].ConnMaxLifetime
		}
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxOpenConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return db, nil
}
