package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func isSQLiteBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_BUSY {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// withRetry runs fn once more when SQLite reports the database busy, as long as
// the lock timeout has not elapsed.
func withRetry[T any](ctx context.Context, s *Store, op string, query string, args []any, fn func() (T, error)) (T, error) {
	slog.Debug("sql "+op, "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		res, err := fn()
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql "+op+" done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return res, err
		}
		reason := ""
		switch {
		case attempt >= 1:
			reason = "max-retries"
		case s.lockTimeout <= 0:
			reason = "no-timeout"
		case ctx.Err() != nil:
			err = ctx.Err()
			reason = "context"
		case time.Since(start) >= s.lockTimeout:
			reason = "timeout"
		}
		if reason != "" {
			slog.Debug("sql "+op+" done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			var zero T
			return zero, err
		}
		slog.Debug("sql "+op+" busy", "query", query, "attempt", attempt+1, "err", err)
		time.Sleep(retryDelay(attempt))
	}
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * 40 * time.Millisecond
	if delay > 300*time.Millisecond {
		delay = 300 * time.Millisecond
	}
	return delay
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return withRetry(ctx, s, "exec", query, args, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return withRetry(ctx, s, "query", query, args, func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
}

func (s *Store) queryRowScan(ctx context.Context, dest []any, query string, args ...any) error {
	_, err := withRetry(ctx, s, "query row", query, args, func() (struct{}, error) {
		return struct{}{}, s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
	return err
}
