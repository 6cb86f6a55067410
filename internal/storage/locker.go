package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bher20/tariffcompare/internal/metrics"
)

// Locker serializes background jobs across replicas.
type Locker interface {
	TryLock(ctx context.Context, key int64) (bool, error)
	Unlock(ctx context.Context, key int64) error
	Close()
}

// NewLocker returns a Postgres advisory locker for the postgres drivers and
// a process-local locker for everything else.
func NewLocker(ctx context.Context, cfg Config) (Locker, error) {
	switch cfg.Driver {
	case "postgres", "postgrespool":
		return OpenPostgresLocker(ctx, cfg.DSN)
	default:
		return NewLocalLocker(), nil
	}
}

// LocalLocker is a Locker for single-instance deployments.
type LocalLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[int64]bool)}
}

func (l *LocalLocker) TryLock(ctx context.Context, key int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *LocalLocker) Unlock(ctx context.Context, key int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func (l *LocalLocker) Close() {}

// PostgresLocker takes session-level advisory locks. Each held lock pins the
// pool connection it was taken on until Unlock, since pg_advisory_unlock must
// run in the same session.
type PostgresLocker struct {
	pool *pgxpool.Pool

	mu    sync.Mutex
	conns map[int64]*pgxpool.Conn
}

func OpenPostgresLocker(ctx context.Context, dsn string) (*PostgresLocker, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/tariffcompare?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresLocker{pool: pool, conns: make(map[int64]*pgxpool.Conn)}, nil
}

func (l *PostgresLocker) TryLock(ctx context.Context, key int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.conns[key]; held {
		return false, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	l.conns[key] = conn
	l.reportPool()
	return true, nil
}

func (l *PostgresLocker) Unlock(ctx context.Context, key int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	conn, held := l.conns[key]
	if !held {
		return nil
	}
	delete(l.conns, key)
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("advisory lock %d was not held", key)
	}
	return nil
}

func (l *PostgresLocker) Close() {
	l.mu.Lock()
	for k, c := range l.conns {
		c.Release()
		delete(l.conns, k)
	}
	l.mu.Unlock()
	l.pool.Close()
}

func (l *PostgresLocker) reportPool() {
	st := l.pool.Stat()
	metrics.UpdateDBPoolMetrics("postgres",
		float64(st.TotalConns()),
		float64(st.IdleConns()),
		float64(st.AcquiredConns()),
		uint64(st.AcquireCount()),
	)
}
