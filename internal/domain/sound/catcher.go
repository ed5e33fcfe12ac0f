// internal/domain/sound/catcher.go

package sound

import (
	"context"
)

// Catcher defines the interface for trending sound ingestion and ranking
type Catcher interface {
	// Trending returns the ranked list of sounds, scraping the regions due in
	// the current rotation first. Force scrapes them regardless of freshness.
	Trending(ctx context.Context, force bool) ([]Ranked, error)

	// Details returns a sound with its recent snapshots
	Details(ctx context.Context, id string) (*Details, error)

	// Ingest upserts the sound, appends one snapshot and returns it
	Ingest(ctx context.Context, obs Observation) (*Snapshot, error)

	// RefreshAll scrapes every configured region and returns the number of
	// records found
	RefreshAll(ctx context.Context) (int, error)

	// RegisterEventHandler registers a callback invoked after each stored snapshot
	RegisterEventHandler(handler func(Event) error)
}
