package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	session_id     TEXT PRIMARY KEY,
	mode           TEXT NOT NULL,
	company        TEXT NOT NULL,
	phase          TEXT NOT NULL,
	summary_json   TEXT NOT NULL,
	pii_redacted   INTEGER NOT NULL DEFAULT 0,
	archived_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interview_sessions_archived ON interview_sessions (archived_at);
`

// SQLiteStore archives sessions in a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, record Record) error {
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interview_sessions (session_id, mode, company, phase, summary_json, pii_redacted, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET phase = excluded.phase, summary_json = excluded.summary_json,
		 pii_redacted = excluded.pii_redacted, archived_at = excluded.archived_at`,
		record.SessionID,
		string(record.Summary.Mode),
		record.Summary.Company,
		string(record.Summary.Phase),
		string(payload),
		record.PIIRedacted,
		record.ArchivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, summary_json, pii_redacted, archived_at FROM interview_sessions WHERE session_id = ?`,
		sessionID,
	)
	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) RecentSessions(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, summary_json, pii_redacted, archived_at
		 FROM interview_sessions ORDER BY archived_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var (
		r          Record
		payload    string
		archivedAt string
	)
	if err := row.Scan(&r.SessionID, &payload, &r.PIIRedacted, &archivedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan session row: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &r.Summary); err != nil {
		return Record{}, fmt.Errorf("decode summary: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, archivedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse archived_at: %w", err)
	}
	r.ArchivedAt = t
	return r, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
