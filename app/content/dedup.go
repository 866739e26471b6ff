package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/signal-comb/app/database"
)

// Gate admits a content item only when no stored item carries the same URL.
type Gate struct {
	repo database.ContentRepository
}

func NewGate(repo database.ContentRepository) *Gate {
	return &Gate{repo: repo}
}

// Ingest stores item unless its URL is already known, in which case the stored
// record is returned unchanged and created is false. Items without a URL are
// always inserted.
func (g *Gate) Ingest(ctx context.Context, item database.ContentItem) (database.ContentItem, bool, error) {
	if item.URL != "" {
		existing, err := g.repo.FindContentByURL(ctx, item.URL)
		if err == nil {
			return *existing, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return database.ContentItem{}, false, fmt.Errorf("failed to check for existing content: %w", err)
		}
	}

	stored, err := g.repo.InsertContent(ctx, item)
	if errors.Is(err, database.ErrDuplicateURL) {
		// Another run stored the URL between the lookup and the insert.
		existing, findErr := g.repo.FindContentByURL(ctx, item.URL)
		if findErr != nil {
			return database.ContentItem{}, false, fmt.Errorf("failed to load concurrently stored content: %w", findErr)
		}
		return *existing, false, nil
	}
	if err != nil {
		return database.ContentItem{}, false, fmt.Errorf("failed to store content: %w", err)
	}

	return *stored, true, nil
}
