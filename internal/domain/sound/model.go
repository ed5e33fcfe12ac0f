// internal/domain/sound/model.go

package sound

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a sound does not exist
var ErrNotFound = errors.New("sound not found")

// Sound is a trending audio clip identified by the platform's own clip ID
type Sound struct {
	ID        string
	Name      string
	Artist    string
	CoverURL  string
	TikTokURL string
	CreatedAt time.Time
}

// Snapshot is one usage observation for a sound
type Snapshot struct {
	ID         int64
	SoundID    string
	Uses       int64
	Velocity   *float64
	CapturedAt time.Time
}

// Observation is the input of a single ingest: sound metadata plus the usage count seen now
type Observation struct {
	Sound Sound
	Uses  int64

	// Series holds raw usage samples reported alongside the observation. When
	// present, velocity is computed over it; otherwise the sound's previous
	// snapshot is used.
	Series []float64
}

// Ranked is the latest snapshot of a sound joined with its metadata
type Ranked struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	CoverURL   string    `json:"coverUrl"`
	TikTokURL  string    `json:"tiktokUrl"`
	LatestUses int64     `json:"latestUses"`
	Velocity   float64   `json:"velocity"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Details is a sound with its most recent snapshots, newest first
type Details struct {
	Sound     Sound
	Snapshots []Snapshot
}

// Event is published after a snapshot has been stored
type Event struct {
	ID         string    `json:"id"`
	SoundID    string    `json:"soundId"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	TikTokURL  string    `json:"tiktokUrl"`
	Uses       int64     `json:"uses"`
	Velocity   float64   `json:"velocity"`
	Region     string    `json:"region,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}
