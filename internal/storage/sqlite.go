package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/logging"
	"rentdirect/pkg/database"
)

// SQLiteStore keeps key/value pairs in the kv table. Reads go straight to
// the pool; writes are serialized through one goroutine.
type SQLiteStore struct {
	db           *sql.DB
	writeTimeout time.Duration
	logger       hclog.Logger

	writeCh  chan writeOperation
	shutdown chan struct{}
	stopped  chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type writeOperation struct {
	ctx       context.Context
	operation func(ctx context.Context, db *sql.DB) error
	result    chan error
}

// NewSQLiteStore opens (and migrates) the database at cfg.Path.
func NewSQLiteStore(cfg *database.Config, writeTimeout time.Duration, logger hclog.Logger) (*SQLiteStore, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	s := &SQLiteStore{
		db:           db,
		writeTimeout: writeTimeout,
		logger:       logging.OrNull(logger),
		writeCh:      make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *SQLiteStore) writeLoop() {
	defer s.wg.Done()
	defer close(s.stopped)
	for {
		select {
		case <-s.shutdown:
			s.rejectQueued()
			return
		default:
		}

		select {
		case op := <-s.writeCh:
			err := op.operation(op.ctx, s.db)
			if err != nil {
				s.logger.Error("write failed", "error", err)
			}
			op.result <- err
		case <-s.shutdown:
			s.logger.Debug("write loop shutting down")
			s.rejectQueued()
			return
		}
	}
}

// rejectQueued fails writes that were queued but never started.
func (s *SQLiteStore) rejectQueued() {
	for {
		select {
		case op := <-s.writeCh:
			op.result <- ErrStoreClosed
		default:
			return
		}
	}
}

func (s *SQLiteStore) executeWrite(ctx context.Context, operation func(ctx context.Context, db *sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	timer := time.NewTimer(s.writeTimeout)
	defer timer.Stop()

	select {
	case s.writeCh <- writeOperation{ctx: ctx, operation: operation, result: result}:
	case <-timer.C:
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return ErrStoreClosed
	}

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrWriteTimeout
	case <-s.stopped:
		// The loop answers everything it took before exiting.
		select {
		case err := <-result:
			return err
		default:
			return ErrStoreClosed
		}
	}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return "", false, ErrStoreClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	return s.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes all keys in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return tx.Commit()
	})
}

// Close stops the writer and closes the database. A write already running
// finishes; queued writes fail with ErrStoreClosed. Safe to call twice.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
