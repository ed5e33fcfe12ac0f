package handlers

import (
	"context"
	"sync"

	"trendcatch/internal/domain/content"
	"trendcatch/internal/domain/sound"
	"trendcatch/internal/domain/user"
	"trendcatch/internal/service/auth"
	contentsvc "trendcatch/internal/service/content"
)

type fakeCatcher struct {
	mu          sync.Mutex
	ranked      []sound.Ranked
	trendingErr error
	forced      []bool
	details     map[string]*sound.Details
	ingested    []sound.Observation
	refreshed   int
	refreshErr  error
	refreshCtx  context.Context
}

func (f *fakeCatcher) Trending(_ context.Context, force bool) ([]sound.Ranked, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, force)
	return f.ranked, f.trendingErr
}

func (f *fakeCatcher) Details(_ context.Context, id string) (*sound.Details, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, sound.ErrNotFound
}

func (f *fakeCatcher) Ingest(_ context.Context, obs sound.Observation) (*sound.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, obs)
	velocity := 0.0
	return &sound.Snapshot{SoundID: obs.Sound.ID, Uses: obs.Uses, Velocity: &velocity}, nil
}

func (f *fakeCatcher) RefreshAll(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCtx = ctx
	return f.refreshed, f.refreshErr
}

func (f *fakeCatcher) RegisterEventHandler(func(sound.Event) error) {}

type fakeAuth struct {
	requested []string
	linkErr   error
	tokens    map[string]*auth.Identity
	settings  map[int64]*user.AlertSettings
	updated   []auth.SettingsUpdate
	updateErr error
}

func (f *fakeAuth) RequestLink(_ context.Context, email string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuth) Settings(_ context.Context, userID int64) (*user.AlertSettings, error) {
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeAuth) UpdateSettings(_ context.Context, userID int64, update auth.SettingsUpdate) (*user.AlertSettings, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, update)
	s := &user.AlertSettings{
		UserID:            userID,
		EmailFrequency:    user.EmailFrequency(update.EmailFrequency),
		VelocityThreshold: update.VelocityThreshold,
		MinUses:           update.MinUses,
	}
	f.settings[userID] = s
	return s, nil
}

type fakePipeline struct {
	request    *contentsvc.TranscribeRequest
	transcript string
	generated  *content.Generated
	err        error
}

func (f *fakePipeline) Transcribe(_ context.Context, req contentsvc.TranscribeRequest) (string, error) {
	f.request = &req
	return f.transcript, f.err
}

func (f *fakePipeline) Generate(_ context.Context, transcript string) (*content.Generated, error) {
	f.transcript = transcript
	return f.generated, f.err
}
