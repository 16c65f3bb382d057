package transcript

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps archived sessions for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) SaveSession(_ context.Context, record Record) error {
	if record.SessionID == "" {
		record.SessionID = record.Summary.SessionID
	}
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionID] = record
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) RecentSessions(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
