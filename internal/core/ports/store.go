package ports

import (
	"context"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

// SuggestionStore is the remote suggestion store as seen by field sessions.
type SuggestionStore interface {
	// Fetch returns suggestions for key. An empty query returns the full known set.
	Fetch(ctx context.Context, key, query string) ([]models.Suggestion, error)
	// Save upserts value under key, bumping its usage count.
	Save(ctx context.Context, key, value string) error
}

// SuggestionAdmin is implemented by stores that also serve the REST API.
type SuggestionAdmin interface {
	SuggestionStore
	Delete(ctx context.Context, key, value string) (bool, error)
	Len(ctx context.Context, key string) (int, error)
	Keys(ctx context.Context) ([]string, error)
}
