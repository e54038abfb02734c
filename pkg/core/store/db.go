// Package store implements the Metadata Store and Comparison Result
// Store: file-backed, per-identifier-locked record stores, modelled on
// the teacher's pkg/core/store/fsap_cache.go Hybrid Vault. InitDB can
// open an optional Postgres pool, but neither store reads or writes
// through it.
package store

import (
	"context"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"disclosurecore/pkg/core/logging"
)

var (
	pool     *pgxpool.Pool
	initOnce sync.Once
)

// InitDB opens the optional Postgres pool from DATABASE_URL. Absence of
// DATABASE_URL is not an error — the stores run file-only, which the
// spec treats as the baseline persistence model.
func InitDB(ctx context.Context) error {
	var err error
	initOnce.Do(func() {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			logging.Named("store").Infow("DATABASE_URL not set, running file-only")
			return
		}
		cfg, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = parseErr
			return
		}
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
	})
	return err
}

// GetPool returns the optional Postgres pool, or nil when running
// file-only.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close releases the pool, if one was opened.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
