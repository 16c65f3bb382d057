package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore archives sessions in PostgreSQL. The summary is kept as JSONB
// and the transcript is also flattened into interview_turns for querying.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			session_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			company TEXT NOT NULL,
			position TEXT NOT NULL,
			persona_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			summary JSONB NOT NULL,
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS interview_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES interview_sessions (session_id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			question_type TEXT NOT NULL,
			question_text TEXT NOT NULL,
			speaker TEXT NOT NULL,
			answer_text TEXT NOT NULL,
			answer_duration_seconds DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_turns_session ON interview_turns (session_id, idx);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_archived ON interview_sessions (archived_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, record Record) error {
	if record.SessionID == "" {
		record.SessionID = record.Summary.SessionID
	}
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(record.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sm := record.Summary
	_, err = tx.Exec(ctx,
		`INSERT INTO interview_sessions (session_id, mode, company, position, persona_id, phase, failure_reason, summary, pii_redacted, archived_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO UPDATE SET phase = EXCLUDED.phase, failure_reason = EXCLUDED.failure_reason,
		 summary = EXCLUDED.summary, pii_redacted = EXCLUDED.pii_redacted, archived_at = EXCLUDED.archived_at`,
		record.SessionID,
		string(sm.Mode),
		sm.Company,
		sm.Position,
		sm.PersonaID,
		string(sm.Phase),
		sm.FailureReason,
		payload,
		record.PIIRedacted,
		record.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range sm.Transcript {
		batch.Queue(
			`INSERT INTO interview_turns (id, session_id, idx, question_type, question_text, speaker, answer_text, answer_duration_seconds, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
			e.ID, record.SessionID, e.Index, string(e.QuestionType), e.QuestionText, string(e.Speaker), e.AnswerText, e.AnswerDurationSeconds, e.CreatedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save turns: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT session_id, summary, pii_redacted, archived_at FROM interview_sessions WHERE session_id=$1`,
		sessionID,
	)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) RecentSessions(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, summary, pii_redacted, archived_at
		 FROM interview_sessions ORDER BY archived_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return items, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r       Record
		payload []byte
	)
	if err := row.Scan(&r.SessionID, &payload, &r.PIIRedacted, &r.ArchivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan session row: %w", err)
	}
	if err := json.Unmarshal(payload, &r.Summary); err != nil {
		return Record{}, fmt.Errorf("decode summary: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
