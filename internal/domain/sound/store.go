// internal/domain/sound/store.go

package sound

import (
	"context"
	"time"
)

// Store defines persistence for sounds and their snapshots
type Store interface {
	// Ingest upserts the observed sound and appends one snapshot in a single
	// transaction
	Ingest(ctx context.Context, obs Observation, capturedAt time.Time) (*Snapshot, error)

	// LatestSnapshots returns the newest snapshot of every sound that has one
	LatestSnapshots(ctx context.Context) ([]Ranked, error)

	// GetDetails returns a sound with up to limit snapshots, newest first
	GetDetails(ctx context.Context, id string, limit int) (*Details, error)

	// PruneSnapshots keeps the newest keep snapshots per sound and returns the
	// number removed
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}
