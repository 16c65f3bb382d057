package transcript

import (
	"context"
	"strings"
)

// NewStore picks a backend from the DATABASE_URL shape: postgres:// and
// postgresql:// use pgx, sqlite:// uses an embedded database file, empty keeps
// records in memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"))
	default:
		return NewPostgresStore(ctx, url)
	}
}
