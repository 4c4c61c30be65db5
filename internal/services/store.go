package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/beatclash/backend/internal/config"
)

// Clock is the time source of the battle engine
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Store wraps the database handle with the per-operation timeout and the
// conflict retry policy.
type Store struct {
	db      *sql.DB
	timeout time.Duration
	retries int
	backoff time.Duration
}

func NewStore(db *sql.DB, cfg *config.BattleConfig) *Store {
	return &Store{
		db:      db,
		timeout: cfg.OpTimeout,
		retries: cfg.ConflictRetries,
		backoff: cfg.RetryBackoff,
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTimeout bounds a single store operation.
func (s *Store) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// InTx runs fn inside one transaction. fn may be invoked again when the store
// reports a serialization failure or deadlock, so it must not have effects
// outside tx.
func (s *Store) InTx(ctx context.Context, name string, fn func(tx *sql.Tx) error) error {
	ctx, cancel := s.WithTimeout(ctx)
	defer cancel()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= s.retries {
			return err
		}

		log.Printf("[STORE] %s: conflict on attempt %d, retrying: %v", name, attempt+1, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(s.backoff * time.Duration(attempt+1)):
		}
	}
}

func (s *Store) runOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
