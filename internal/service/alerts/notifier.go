// internal/service/alerts/notifier.go

package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"trendcatch/internal/domain/sound"
	"trendcatch/internal/domain/user"
	"trendcatch/internal/logger"
)

// Mailer sends alert emails
type Mailer interface {
	SendAlert(ctx context.Context, to string, event sound.Event) error
	SendDigest(ctx context.Context, to string, frequency user.EmailFrequency, sounds []sound.Ranked) error
}

// DiscordSender posts alerts to a Discord webhook
type DiscordSender interface {
	SendAlert(ctx context.Context, webhookURL string, event sound.Event) error
}

// TelegramSender sends alerts to a Telegram chat
type TelegramSender interface {
	Enabled() bool
	SendAlert(ctx context.Context, chatID string, event sound.Event) error
}

// SoundSource provides the latest snapshot of every sound
type SoundSource interface {
	LatestSnapshots(ctx context.Context) ([]sound.Ranked, error)
}

// Config contains configuration for the notifier
type Config struct {
	Workers   int
	QueueSize int
	// DedupeWindow suppresses repeat alerts for the same user and sound
	DedupeWindow time.Duration
	// DigestLimit caps the number of sounds per digest
	DigestLimit int
}

// Notifier delivers realtime alerts and periodic digests
type Notifier struct {
	users    user.Store
	sounds   SoundSource
	mailer   Mailer
	discord  DiscordSender
	telegram TelegramSender
	config   Config
	pool     pond.Pool
	locks    *soundLocks
	now      func() time.Time
}

// NewNotifier creates a notifier backed by a bounded worker pool. discord and
// telegram may be nil.
func NewNotifier(
	ctx context.Context,
	users user.Store,
	sounds SoundSource,
	mailer Mailer,
	discord DiscordSender,
	telegram TelegramSender,
	config Config,
) *Notifier {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.DedupeWindow <= 0 {
		config.DedupeWindow = 24 * time.Hour
	}
	if config.DigestLimit <= 0 {
		config.DigestLimit = 10
	}

	return &Notifier{
		users:    users,
		sounds:   sounds,
		mailer:   mailer,
		discord:  discord,
		telegram: telegram,
		config:   config,
		pool: pond.NewPool(
			config.Workers,
			pond.WithQueueSize(config.QueueSize),
			pond.WithContext(ctx),
		),
		locks: newSoundLocks(),
		now:   time.Now,
	}
}

// HandleEvent queues realtime delivery for a snapshot event. It matches the
// catcher's event handler signature.
func (n *Notifier) HandleEvent(event sound.Event) error {
	if n.pool.Stopped() {
		return errors.New("notifier stopped")
	}

	n.pool.Submit(func() {
		if _, err := n.Notify(n.pool.Context(), event); err != nil {
			logger.Error(err, zap.String("sound_id", event.SoundID))
		}
	})
	return nil
}

// Notify delivers realtime alerts for event to every matching subscriber and
// returns the number of alerts sent. Events for the same sound are handled
// one at a time so the dedupe check and the alert record cannot interleave.
func (n *Notifier) Notify(ctx context.Context, event sound.Event) (int, error) {
	unlock := n.locks.lock(event.SoundID)
	defer unlock()

	subscribers, err := n.users.FindSubscribers(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("error loading subscribers: %w", err)
	}

	sent := 0
	for _, sub := range subscribers {
		if !sub.Settings.Matches(event.Velocity, event.Uses) {
			continue
		}

		since := n.now().Add(-n.config.DedupeWindow)
		already, err := n.users.AlertSentSince(ctx, sub.User.ID, event.SoundID, since)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.Int64("user_id", sub.User.ID))
			continue
		}
		if already {
			continue
		}

		for _, channel := range n.channels(sub) {
			if err := n.deliver(ctx, channel, sub, event); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("error sending %s alert: %w", channel, err),
					zap.Int64("user_id", sub.User.ID),
					zap.String("sound_id", event.SoundID))
				continue
			}

			if err := n.users.RecordAlert(ctx, user.Alert{
				UserID:  sub.User.ID,
				SoundID: event.SoundID,
				Type:    channel,
				SentAt:  n.now(),
			}); err != nil {
				logger.ErrorCtx(ctx, err, zap.Int64("user_id", sub.User.ID))
			}
			sent++
		}
	}

	return sent, nil
}

// soundLocks hands out one mutex per sound ID, freed when no caller holds it
type soundLocks struct {
	mu    sync.Mutex
	locks map[string]*soundLock
}

type soundLock struct {
	mu   sync.Mutex
	refs int
}

func newSoundLocks() *soundLocks {
	return &soundLocks{locks: make(map[string]*soundLock)}
}

func (s *soundLocks) lock(soundID string) func() {
	s.mu.Lock()
	l, ok := s.locks[soundID]
	if !ok {
		l = &soundLock{}
		s.locks[soundID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, soundID)
		}
		s.mu.Unlock()
	}
}

// channels lists the realtime channels configured for a subscriber. Email is
// realtime only for users who chose it; chat channels are always realtime.
func (n *Notifier) channels(sub user.Subscriber) []user.Channel {
	var channels []user.Channel
	if sub.Settings.EmailFrequency == user.FrequencyRealtime {
		channels = append(channels, user.ChannelEmail)
	}
	if sub.Settings.DiscordWebhook != "" && n.discord != nil {
		channels = append(channels, user.ChannelDiscord)
	}
	if sub.Settings.TelegramChatID != "" && n.telegram != nil && n.telegram.Enabled() {
		channels = append(channels, user.ChannelTelegram)
	}
	return channels
}

func (n *Notifier) deliver(ctx context.Context, channel user.Channel, sub user.Subscriber, event sound.Event) error {
	switch channel {
	case user.ChannelEmail:
		return n.mailer.SendAlert(ctx, sub.User.Email, event)
	case user.ChannelDiscord:
		return n.discord.SendAlert(ctx, sub.Settings.DiscordWebhook, event)
	case user.ChannelTelegram:
		return n.telegram.SendAlert(ctx, sub.Settings.TelegramChatID, event)
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

// SendDigests emails every subscriber with the given frequency the top sounds
// that cross their thresholds, and returns the number of digests sent
func (n *Notifier) SendDigests(ctx context.Context, frequency user.EmailFrequency) (int, error) {
	subscribers, err := n.users.FindSubscribers(ctx, frequency)
	if err != nil {
		return 0, fmt.Errorf("error loading subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return 0, nil
	}

	latest, err := n.sounds.LatestSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("error loading sounds: %w", err)
	}
	ranked := sound.Rank(latest, 0)

	var sent atomic.Int64
	group := n.pool.NewGroup()
	for _, sub := range subscribers {
		sub := sub
		matching := matchingSounds(ranked, sub.Settings, n.config.DigestLimit)
		if len(matching) == 0 {
			continue
		}

		group.Submit(func() {
			if err := n.mailer.SendDigest(ctx, sub.User.Email, frequency, matching); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("error sending digest: %w", err), zap.Int64("user_id", sub.User.ID))
				return
			}
			for _, s := range matching {
				if err := n.users.RecordAlert(ctx, user.Alert{
					UserID:  sub.User.ID,
					SoundID: s.ID,
					Type:    user.ChannelEmail,
					SentAt:  n.now(),
				}); err != nil {
					logger.ErrorCtx(ctx, err, zap.Int64("user_id", sub.User.ID))
				}
			}
			sent.Add(1)
		})
	}

	if err := group.Wait(); err != nil {
		return int(sent.Load()), err
	}

	return int(sent.Load()), nil
}

// Stop waits for queued deliveries and stops the pool
func (n *Notifier) Stop() {
	n.pool.StopAndWait()
}

// matchingSounds returns up to limit ranked sounds that cross the thresholds
func matchingSounds(ranked []sound.Ranked, settings user.AlertSettings, limit int) []sound.Ranked {
	var out []sound.Ranked
	for _, r := range ranked {
		if !settings.Matches(r.Velocity, r.LatestUses) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}
