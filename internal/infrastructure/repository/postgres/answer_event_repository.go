package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

const schemaLockID int64 = 2026101501

type AnswerEventRepository struct {
	db *sql.DB
}

func NewAnswerEventRepository(db *sql.DB) *AnswerEventRepository {
	return &AnswerEventRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnswerEventRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answer_events (
	id TEXT PRIMARY KEY,
	request_id TEXT,
	client_id TEXT NOT NULL,
	route TEXT NOT NULL,
	corrected_query TEXT NOT NULL,
	query_label TEXT,
	task_label TEXT,
	relaxation_steps INTEGER NOT NULL DEFAULT 0,
	sources INTEGER NOT NULL DEFAULT 0,
	fault_stage TEXT,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_events_client_created ON answer_events(client_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_answer_events_route ON answer_events(route);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveAnswerEvent is idempotent on the event id; redelivered events are
// ignored.
func (r *AnswerEventRepository) SaveAnswerEvent(ctx context.Context, event domain.AnswerEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO answer_events (
	id, request_id, client_id, route, corrected_query, query_label, task_label,
	relaxation_steps, sources, fault_stage, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, nullString(event.RequestID), event.ClientID, string(event.Route), event.CorrectedQuery,
		nullString(string(event.QueryLabel)), nullString(string(event.TaskLabel)),
		event.RelaxationSteps, event.Sources, nullString(event.FaultStage),
		float64(event.Duration)/float64(time.Millisecond), event.CreatedAt.UTC(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "insert answer event", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
