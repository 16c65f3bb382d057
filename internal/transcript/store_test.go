package transcript

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/plan"
)

func sampleRecord(id string, at time.Time) Record {
	secs := 12.5
	return Record{
		SessionID: id,
		Summary: interview.Summary{
			SessionID: id,
			Mode:      plan.ModeSolo,
			Company:   "kakao",
			Phase:     interview.PhaseCompleted,
			Transcript: []interview.QuestionAnswer{{
				ID:                    id + "-0",
				Index:                 0,
				QuestionType:          plan.CategoryIntro,
				QuestionText:          "Introduce yourself.",
				Speaker:               interview.SpeakerUser,
				AnswerText:            "Hello.",
				AnswerDurationSeconds: &secs,
				CreatedAt:             at,
			}},
		},
		PIIRedacted: true,
		ArchivedAt:  at,
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := s.SaveSession(ctx, sampleRecord("a", base)); err != nil {
		t.Fatalf("SaveSession(a) error = %v", err)
	}
	if err := s.SaveSession(ctx, sampleRecord("b", base.Add(time.Minute))); err != nil {
		t.Fatalf("SaveSession(b) error = %v", err)
	}

	got, err := s.GetSession(ctx, "a")
	if err != nil {
		t.Fatalf("GetSession(a) error = %v", err)
	}
	if len(got.Summary.Transcript) != 1 || got.Summary.Transcript[0].AnswerText != "Hello." {
		t.Fatalf("transcript = %+v", got.Summary.Transcript)
	}
	if !got.PIIRedacted {
		t.Fatalf("PIIRedacted = false, want true")
	}

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession(missing) err = %v, want ErrNotFound", err)
	}

	recent, err := s.RecentSessions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentSessions() error = %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "b" {
		t.Fatalf("recent = %+v, want [b]", recent)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := NewStore(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("store = %T, want *SQLiteStore", s)
	}
	exerciseStore(t, s)
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	s, err := NewStore(context.Background(), " ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("store = %T, want *InMemoryStore", s)
	}
}
