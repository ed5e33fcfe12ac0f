// internal/domain/user/model.go

package user

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a user does not exist
var ErrNotFound = errors.New("user not found")

// Plan is a subscription tier
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// EmailFrequency controls how often alert emails are sent
type EmailFrequency string

const (
	FrequencyRealtime EmailFrequency = "realtime"
	FrequencyDaily    EmailFrequency = "daily"
	FrequencyWeekly   EmailFrequency = "weekly"
)

// ParseEmailFrequency validates a frequency string
func ParseEmailFrequency(s string) (EmailFrequency, error) {
	switch f := EmailFrequency(s); f {
	case FrequencyRealtime, FrequencyDaily, FrequencyWeekly:
		return f, nil
	default:
		return "", fmt.Errorf("invalid email frequency %q", s)
	}
}

// Channel is the delivery channel of an alert
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelDiscord  Channel = "discord"
	ChannelTelegram Channel = "telegram"
)

// User is an account identified by email
type User struct {
	ID        int64
	Email     string
	Plan      Plan
	CreatedAt time.Time
}

// AlertSettings holds a user's alert preferences
type AlertSettings struct {
	ID                int64
	UserID            int64
	EmailFrequency    EmailFrequency
	VelocityThreshold int
	MinUses           int64
	DiscordWebhook    string
	TelegramChatID    string
}

// DefaultAlertSettings returns the settings created at signup
func DefaultAlertSettings(userID int64) AlertSettings {
	return AlertSettings{
		UserID:            userID,
		EmailFrequency:    FrequencyDaily,
		VelocityThreshold: 300,
		MinUses:           200,
	}
}

// Matches reports whether a sound crosses the user's thresholds
func (s AlertSettings) Matches(velocity float64, uses int64) bool {
	return velocity >= float64(s.VelocityThreshold) && uses >= s.MinUses
}

// Alert is a record of a notification that was sent
type Alert struct {
	ID      int64
	UserID  int64
	SoundID string
	Type    Channel
	SentAt  time.Time
}

// Subscriber is a user together with their alert settings
type Subscriber struct {
	User     User
	Settings AlertSettings
}

// Store defines persistence for users, settings and alerts
type Store interface {
	// GetOrCreateUser returns the user with the email, creating it and its
	// default settings when absent. The bool reports whether it was created.
	GetOrCreateUser(ctx context.Context, email string) (*User, bool, error)

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id int64) (*User, error)

	// GetSettings retrieves a user's alert settings
	GetSettings(ctx context.Context, userID int64) (*AlertSettings, error)

	// UpdateSettings replaces a user's alert settings
	UpdateSettings(ctx context.Context, settings AlertSettings) error

	// FindSubscribers lists users with the given email frequency; an empty
	// frequency lists every user
	FindSubscribers(ctx context.Context, frequency EmailFrequency) ([]Subscriber, error)

	// RecordAlert appends an alert to the audit log
	RecordAlert(ctx context.Context, alert Alert) error

	// AlertSentSince reports whether an alert for the user and sound was sent after since
	AlertSentSince(ctx context.Context, userID int64, soundID string, since time.Time) (bool, error)
}
