// internal/adapter/storage/sound_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendcatch/internal/domain/sound"
)

// SoundStore implements storage for sounds and snapshots
type SoundStore struct {
	db *pgxpool.Pool
}

// NewSoundStore creates a new sound store
func NewSoundStore(db *pgxpool.Pool) *SoundStore {
	return &SoundStore{
		db: db,
	}
}

// Ingest upserts the sound and appends a snapshot whose velocity is derived
// from the observation or the sound's previous snapshot
func (s *SoundStore) Ingest(ctx context.Context, obs sound.Observation, capturedAt time.Time) (*sound.Snapshot, error) {
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	upsert := `
		INSERT INTO sounds (id, name, artist, cover_url, tiktok_url, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (id) DO UPDATE
		SET
			name = EXCLUDED.name,
			artist = EXCLUDED.artist,
			cover_url = EXCLUDED.cover_url,
			tiktok_url = COALESCE(EXCLUDED.tiktok_url, sounds.tiktok_url)
	`
	_, err = tx.Exec(ctx, upsert,
		obs.Sound.ID,
		obs.Sound.Name,
		obs.Sound.Artist,
		obs.Sound.CoverURL,
		obs.Sound.TikTokURL,
		capturedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error upserting sound: %w", err)
	}

	var previous *int64
	var prevUses int64
	err = tx.QueryRow(ctx, `
		SELECT uses FROM sound_snapshots
		WHERE sound_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`, obs.Sound.ID).Scan(&prevUses)
	switch {
	case err == nil:
		previous = &prevUses
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("error querying previous snapshot: %w", err)
	}

	velocity := float64(sound.ObservedVelocity(obs, previous))

	snap := &sound.Snapshot{
		SoundID:    obs.Sound.ID,
		Uses:       obs.Uses,
		Velocity:   &velocity,
		CapturedAt: capturedAt,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sound_snapshots (sound_id, uses, velocity, captured_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, snap.SoundID, snap.Uses, velocity, snap.CapturedAt).Scan(&snap.ID)
	if err != nil {
		return nil, fmt.Errorf("error inserting snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return snap, nil
}

// LatestSnapshots returns the newest snapshot per sound. Sounds without
// snapshots are dropped by the join.
func (s *SoundStore) LatestSnapshots(ctx context.Context) ([]sound.Ranked, error) {
	query := `
		SELECT DISTINCT ON (s.id)
			s.id, s.name, COALESCE(s.artist, ''), COALESCE(s.cover_url, ''), COALESCE(s.tiktok_url, ''),
			ss.uses, COALESCE(ss.velocity, 0)::float8, ss.captured_at
		FROM sounds s
		JOIN sound_snapshots ss ON ss.sound_id = s.id
		ORDER BY s.id, ss.captured_at DESC, ss.id DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var result []sound.Ranked
	for rows.Next() {
		var r sound.Ranked
		if err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Artist,
			&r.CoverURL,
			&r.TikTokURL,
			&r.LatestUses,
			&r.Velocity,
			&r.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// GetDetails retrieves a sound and its most recent snapshots
func (s *SoundStore) GetDetails(ctx context.Context, id string, limit int) (*sound.Details, error) {
	var d sound.Details
	err := s.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(artist, ''), COALESCE(cover_url, ''), COALESCE(tiktok_url, ''), created_at
		FROM sounds
		WHERE id = $1
	`, id).Scan(
		&d.Sound.ID,
		&d.Sound.Name,
		&d.Sound.Artist,
		&d.Sound.CoverURL,
		&d.Sound.TikTokURL,
		&d.Sound.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sound.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying sound: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, sound_id, uses, velocity::float8, captured_at
		FROM sound_snapshots
		WHERE sound_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	d.Snapshots = []sound.Snapshot{}
	for rows.Next() {
		var snap sound.Snapshot
		if err := rows.Scan(&snap.ID, &snap.SoundID, &snap.Uses, &snap.Velocity, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		d.Snapshots = append(d.Snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &d, nil
}

// PruneSnapshots deletes all but the newest keep snapshots of every sound
func (s *SoundStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM sound_snapshots
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY sound_id ORDER BY captured_at DESC, id DESC
				) AS rn
				FROM sound_snapshots
			) ranked
			WHERE rn > $1
		)
	`

	tag, err := s.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return tag.RowsAffected(), nil
}
