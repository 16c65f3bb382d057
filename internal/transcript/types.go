// Package transcript archives terminal interview sessions.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/wonwookim/mockinterview/internal/interview"
)

var ErrNotFound = errors.New("archived session not found")

// Record is one archived session.
type Record struct {
	SessionID   string            `json:"session_id"`
	Summary     interview.Summary `json:"summary"`
	PIIRedacted bool              `json:"pii_redacted"`
	ArchivedAt  time.Time         `json:"archived_at"`
}

// Store persists terminal session summaries.
type Store interface {
	SaveSession(ctx context.Context, record Record) error
	GetSession(ctx context.Context, sessionID string) (Record, error)
	RecentSessions(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
