package trending

import (
	"context"
	"sort"
	"sync"
	"time"

	"trendcatch/internal/adapter/creativecenter"
	"trendcatch/internal/domain/sound"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	records map[string][]creativecenter.TrendRecord
	errs    map[string]error
	// hang makes Fetch block until its context ends
	hang bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		records: make(map[string][]creativecenter.TrendRecord),
		errs:    make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, region string) ([]creativecenter.TrendRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, region)
	hang := f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[region]; err != nil {
		return nil, err
	}
	return f.records[region], nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// memoryStore mirrors the Postgres store semantics in memory
type memoryStore struct {
	mu        sync.Mutex
	sounds    map[string]sound.Sound
	snapshots map[string][]sound.Snapshot
	nextID    int64
	pruned    []int
	latestErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sounds:    make(map[string]sound.Sound),
		snapshots: make(map[string][]sound.Snapshot),
	}
}

func (m *memoryStore) Ingest(_ context.Context, obs sound.Observation, capturedAt time.Time) (*sound.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sounds[obs.Sound.ID]
	s := obs.Sound
	if ok {
		s.CreatedAt = existing.CreatedAt
		if s.TikTokURL == "" {
			s.TikTokURL = existing.TikTokURL
		}
	} else {
		s.CreatedAt = capturedAt
	}
	m.sounds[s.ID] = s

	var previous *int64
	if history := m.snapshots[s.ID]; len(history) > 0 {
		uses := history[len(history)-1].Uses
		previous = &uses
	}

	velocity := float64(sound.ObservedVelocity(obs, previous))
	m.nextID++
	snap := sound.Snapshot{
		ID:         m.nextID,
		SoundID:    s.ID,
		Uses:       obs.Uses,
		Velocity:   &velocity,
		CapturedAt: capturedAt,
	}
	m.snapshots[s.ID] = append(m.snapshots[s.ID], snap)
	return &snap, nil
}

func (m *memoryStore) LatestSnapshots(ctx context.Context) ([]sound.Ranked, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latestErr != nil {
		return nil, m.latestErr
	}

	var out []sound.Ranked
	for id, history := range m.snapshots {
		if len(history) == 0 {
			continue
		}
		s := m.sounds[id]
		last := history[len(history)-1]
		out = append(out, sound.Ranked{
			ID:         s.ID,
			Name:       s.Name,
			Artist:     s.Artist,
			CoverURL:   s.CoverURL,
			TikTokURL:  s.TikTokURL,
			LatestUses: last.Uses,
			Velocity:   *last.Velocity,
			CapturedAt: last.CapturedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetDetails(_ context.Context, id string, limit int) (*sound.Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return nil, sound.ErrNotFound
	}

	history := m.snapshots[id]
	snaps := make([]sound.Snapshot, 0, limit)
	for i := len(history) - 1; i >= 0 && len(snaps) < limit; i-- {
		snaps = append(snaps, history[i])
	}
	return &sound.Details{Sound: s, Snapshots: snaps}, nil
}

func (m *memoryStore) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruned = append(m.pruned, keep)
	var removed int64
	for id, history := range m.snapshots {
		if len(history) > keep {
			removed += int64(len(history) - keep)
			m.snapshots[id] = history[len(history)-keep:]
		}
	}
	return removed, nil
}

// addSound registers a sound without any snapshot
func (m *memoryStore) addSound(s sound.Sound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sounds[s.ID] = s
}

func record(id string, rank int, series ...float64) creativecenter.TrendRecord {
	points := make([]creativecenter.TrendPoint, 0, len(series))
	for i, v := range series {
		points = append(points, creativecenter.TrendPoint{Time: int64(i), Value: v})
	}
	return creativecenter.TrendRecord{
		Title:  "Sound " + id,
		Author: "Artist " + id,
		ClipID: id,
		Rank:   rank,
		Trend:  points,
	}
}
