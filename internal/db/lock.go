package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/retail-etl/internal/logging"
)

// runLockKey identifies the pipeline's advisory lock. Two concurrent runs
// interleaving truncate+reload sequences would corrupt the target tables,
// so the whole run is serialized on this key.
const runLockKey = 0x7265746c // "retl"

// RunLock holds the session-level advisory lock for a pipeline run.
type RunLock struct {
	conn *pgxpool.Conn
}

// AcquireRunLock takes the pipeline advisory lock, failing fast if another
// run currently holds it. The lock is tied to the returned connection and
// held until Release.
func AcquireRunLock(ctx context.Context, pool *pgxpool.Pool) (*RunLock, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for run lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take run lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, fmt.Errorf("another pipeline run is in progress")
	}

	logging.Debug().Int64("key", runLockKey).Msg("Acquired run lock")
	return &RunLock{conn: conn}, nil
}

// Release unlocks and returns the connection to the pool.
func (l *RunLock) Release(ctx context.Context) {
	if l.conn == nil {
		return
	}
	if _, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", runLockKey); err != nil {
		logging.Warn().Err(err).Msg("Failed to release run lock")
	}
	l.conn.Release()
	l.conn = nil
}
