// internal/service/trending/catcher.go

package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trendcatch/internal/adapter/creativecenter"
	"trendcatch/internal/domain/sound"
	"trendcatch/internal/logger"
)

// DetailSnapshots is the number of snapshots returned with sound details
const DetailSnapshots = 10

// DefaultScrapeBudget bounds the scrape done on the read path so the stored
// ranking can still be loaded within the request deadline
const DefaultScrapeBudget = 45 * time.Second

// Fetcher retrieves the trend records of one region
type Fetcher interface {
	Fetch(ctx context.Context, region string) ([]creativecenter.TrendRecord, error)
}

// CatcherConfig contains configuration for the catcher
type CatcherConfig struct {
	RequestDelay      time.Duration
	RefreshDelay      time.Duration
	TopLimit          int
	SnapshotRetention int
	EventsTopic       string
	// ScrapeBudget caps the time Trending spends scraping before it reads
	// the store
	ScrapeBudget time.Duration
	// FailureCooldown keeps unforced reads from retrying a failed region
	// until it has passed. Zero retries on every read.
	FailureCooldown time.Duration
}

// Catcher implements the sound.Catcher interface
type Catcher struct {
	fetcher  Fetcher
	store    sound.Store
	cache    *FetchCache
	rotation *Rotation
	eventBus *nats.Conn
	config   CatcherConfig
	now      func() time.Time

	readLimiter    *rate.Limiter
	refreshLimiter *rate.Limiter

	// scrapeMu serializes scrape runs so upstream requests never interleave
	scrapeMu      sync.Mutex
	mu            sync.RWMutex
	eventHandlers []func(sound.Event) error
}

// NewCatcher creates a new catcher. eventBus may be nil.
func NewCatcher(
	fetcher Fetcher,
	store sound.Store,
	cache *FetchCache,
	rotation *Rotation,
	eventBus *nats.Conn,
	config CatcherConfig,
) *Catcher {
	if config.TopLimit <= 0 {
		config.TopLimit = sound.DefaultTopLimit
	}
	if config.EventsTopic == "" {
		config.EventsTopic = "sounds"
	}
	if config.ScrapeBudget <= 0 {
		config.ScrapeBudget = DefaultScrapeBudget
	}

	return &Catcher{
		fetcher:        fetcher,
		store:          store,
		cache:          cache,
		rotation:       rotation,
		eventBus:       eventBus,
		config:         config,
		now:            time.Now,
		readLimiter:    newPacer(config.RequestDelay),
		refreshLimiter: newPacer(config.RefreshDelay),
		eventHandlers:  []func(sound.Event) error{},
	}
}

// newPacer allows one request immediately and then one per delay
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Trending scrapes the regions due this hour and returns the ranked list. The
// scrape runs on its own budget and the store is read on ctx, so a hanging
// upstream still yields the stored ranking.
func (c *Catcher) Trending(ctx context.Context, force bool) ([]sound.Ranked, error) {
	regions := c.rotation.Select(c.now().UTC().Hour())

	scrapeCtx, cancel := context.WithTimeout(ctx, c.config.ScrapeBudget)
	_, err := c.scrape(scrapeCtx, regions, force, c.readLimiter)
	cancel()
	if err != nil {
		logger.WarnCtx(ctx, "Scrape interrupted", zap.Error(err))
	}

	latest, err := c.store.LatestSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading latest snapshots: %w", err)
	}

	return sound.Rank(latest, c.config.TopLimit), nil
}

// Details returns a sound with its most recent snapshots
func (c *Catcher) Details(ctx context.Context, id string) (*sound.Details, error) {
	return c.store.GetDetails(ctx, id, DetailSnapshots)
}

// Ingest stores one observation and announces the new snapshot
func (c *Catcher) Ingest(ctx context.Context, obs sound.Observation) (*sound.Snapshot, error) {
	return c.ingest(ctx, obs, "")
}

// RefreshAll scrapes every region regardless of freshness, then prunes old
// snapshots. It returns the number of records found.
func (c *Catcher) RefreshAll(ctx context.Context) (int, error) {
	found, err := c.scrape(ctx, c.rotation.Regions(), true, c.refreshLimiter)
	if err != nil {
		return found, err
	}

	if c.config.SnapshotRetention > 0 {
		removed, err := c.store.PruneSnapshots(ctx, c.config.SnapshotRetention)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to prune snapshots", zap.Error(err))
		} else if removed > 0 {
			logger.InfoCtx(ctx, "Pruned snapshots", zap.Int64("removed", removed))
		}
	}

	return found, nil
}

// RegisterEventHandler registers a callback invoked after each stored snapshot
func (c *Catcher) RegisterEventHandler(handler func(sound.Event) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers = append(c.eventHandlers, handler)
}

// scrape fetches and stores the given regions sequentially. A failing region
// is logged and skipped. It returns the number of records found, and an error
// only when ctx ends the run early.
func (c *Catcher) scrape(ctx context.Context, regions []string, force bool, pacer *rate.Limiter) (int, error) {
	c.scrapeMu.Lock()
	defer c.scrapeMu.Unlock()

	found := 0
	for _, region := range regions {
		if !force && c.cache.State(region) == StateFresh {
			logger.Debug("Region cache fresh, skipping", zap.String("region", region))
			continue
		}
		if !force && c.cache.FailedWithin(region, c.config.FailureCooldown) {
			logger.Debug("Region failed recently, skipping", zap.String("region", region))
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			return found, fmt.Errorf("waiting to scrape %s: %w", region, err)
		}

		records, err := c.fetcher.Fetch(ctx, region)
		if errors.Is(err, creativecenter.ErrNoData) {
			logger.WarnCtx(ctx, "No sound data found", zap.String("region", region), zap.Error(err))
			c.cache.MarkFailed(region)
			continue
		}
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("error scraping region %s: %w", region, err))
			c.cache.MarkFailed(region)
			continue
		}

		found += len(records)
		stored := c.storeRecords(ctx, region, records)
		if stored > 0 {
			c.cache.MarkFetched(region)
		} else {
			c.cache.MarkFailed(region)
		}

		logger.InfoCtx(ctx, "Scraped region",
			zap.String("region", region),
			zap.Int("found", len(records)),
			zap.Int("stored", stored))
	}

	return found, nil
}

func (c *Catcher) storeRecords(ctx context.Context, region string, records []creativecenter.TrendRecord) int {
	stored := 0
	for _, record := range records {
		if _, err := c.ingest(ctx, record.Observation(), region); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("region", region), zap.String("sound_id", record.ClipID))
			continue
		}
		stored++
	}
	return stored
}

func (c *Catcher) ingest(ctx context.Context, obs sound.Observation, region string) (*sound.Snapshot, error) {
	snap, err := c.store.Ingest(ctx, obs, c.now())
	if err != nil {
		return nil, fmt.Errorf("error ingesting sound %s: %w", obs.Sound.ID, err)
	}

	event := sound.Event{
		ID:         uuid.New().String(),
		SoundID:    obs.Sound.ID,
		Name:       obs.Sound.Name,
		Artist:     obs.Sound.Artist,
		TikTokURL:  obs.Sound.TikTokURL,
		Uses:       snap.Uses,
		Region:     region,
		CapturedAt: snap.CapturedAt,
	}
	if snap.Velocity != nil {
		event.Velocity = *snap.Velocity
	}

	if err := c.publishSnapshotEvent(event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish snapshot event", zap.String("sound_id", event.SoundID), zap.Error(err))
	}
	c.callEventHandlers(event)

	return snap, nil
}

// publishSnapshotEvent publishes a snapshot event when an event bus is configured
func (c *Catcher) publishSnapshotEvent(event sound.Event) error {
	if c.eventBus == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	return c.eventBus.Publish(SnapshotSubject(c.config.EventsTopic), data)
}

// callEventHandlers calls all registered event handlers
func (c *Catcher) callEventHandlers(event sound.Event) {
	c.mu.RLock()
	handlers := make([]func(sound.Event) error, len(c.eventHandlers))
	copy(handlers, c.eventHandlers)
	c.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			logger.Error(fmt.Errorf("error in event handler: %w", err), zap.String("sound_id", event.SoundID))
		}
	}
}

// SnapshotSubject returns the NATS subject snapshot events are published on
func SnapshotSubject(topic string) string {
	return fmt.Sprintf("%s.snapshot", topic)
}
