package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// Schema создает таблицу архива, если ее еще нет
const Schema = `
	CREATE TABLE IF NOT EXISTS session_snapshots (
		id               BIGSERIAL PRIMARY KEY,
		instance_id      TEXT        NOT NULL,
		run_id           TEXT        NOT NULL,
		sequence         BIGINT      NOT NULL,
		captured_at      TIMESTAMPTZ NOT NULL,
		active_sessions  INTEGER     NOT NULL,
		sessions_started INTEGER     NOT NULL,
		sessions_ended   INTEGER     NOT NULL,
		archived_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (instance_id, run_id, sequence)
	);
	CREATE INDEX IF NOT EXISTS idx_session_snapshots_captured_at ON session_snapshots (captured_at);
`

// Повторная архивация того же снимка не создает дубликатов.
// Ключ - номер снимка в запуске процесса: время снимков может совпадать.
const insertSnapshotQuery = `
	INSERT INTO session_snapshots (instance_id, run_id, sequence, captured_at, active_sessions, sessions_started, sessions_ended, archived_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (instance_id, run_id, sequence) DO NOTHING
`

// PostgresSnapshotArchive реализует repository.SnapshotArchive для PostgreSQL
type PostgresSnapshotArchive struct {
	db         *sql.DB
	instanceID string
	runID      string
	now        func() time.Time
}

// NewPostgresSnapshotArchive создает новый архив.
// instanceID различает процессы, пишущие в одну таблицу, runID - запуски
// одного процесса (номера снимков начинаются заново после рестарта).
func NewPostgresSnapshotArchive(db *sql.DB, instanceID string) *PostgresSnapshotArchive {
	return &PostgresSnapshotArchive{
		db:         db,
		instanceID: instanceID,
		runID:      uuid.NewString(),
		now:        time.Now,
	}
}

// Open открывает пул соединений и проверяет доступность БД
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	db.SetConnMaxIdleTime(maxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema применяет Schema
func (r *PostgresSnapshotArchive) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveBatch сохраняет снимки одной транзакцией
func (r *PostgresSnapshotArchive) SaveBatch(ctx context.Context, snapshots []entity.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertSnapshotQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	archivedAt := r.now()
	for _, snapshot := range snapshots {
		model := ToDBModel(r.instanceID, r.runID, snapshot, archivedAt)
		if _, err := stmt.ExecContext(ctx, model.args()...); err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ping проверяет доступность БД
func (r *PostgresSnapshotArchive) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Count возвращает количество снимков этого процесса в архиве
func (r *PostgresSnapshotArchive) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_snapshots WHERE instance_id = $1`,
		r.instanceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}
