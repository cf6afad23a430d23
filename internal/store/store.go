package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitea.jw6.us/james/teamtasks/internal/metrics"
)

// querier is the subset of pgxpool.Pool the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool querier

	Users       UserRepository
	Tasks       TaskRepository
	Attachments AttachmentRepository
	Comments    CommentRepository
	Presence    PresenceRepository
	Chat        ChatRepository
	Calendar    CalendarRepository
	Settings    SettingsRepository
}

// New wires concrete repository implementations with shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return newWithQuerier(pool)
}

func newWithQuerier(pool querier) *Store {
	return &Store{
		pool:        pool,
		Users:       &userRepo{pool: pool},
		Tasks:       &taskRepo{pool: pool},
		Attachments: &attachmentRepo{pool: pool},
		Comments:    &commentRepo{pool: pool},
		Presence:    &presenceRepo{pool: pool},
		Chat:        &chatRepo{pool: pool},
		Calendar:    &calendarRepo{pool: pool},
		Settings:    &settingsRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable. A Store
// without a pool is always healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}

// observeDB starts a latency timer for one named database call; defer the
// returned func.
func observeDB(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() { metrics.ObserveDBLatency(ctx, operation, start) }
}
