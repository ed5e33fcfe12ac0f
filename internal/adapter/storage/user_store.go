// internal/adapter/storage/user_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendcatch/internal/domain/user"
)

// UserStore implements storage for users, alert settings and the alert log
type UserStore struct {
	db *pgxpool.Pool
}

// NewUserStore creates a new user store
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{
		db: db,
	}
}

// GetOrCreateUser returns the user with the email, creating it together with
// default alert settings when it does not exist
func (s *UserStore) GetOrCreateUser(ctx context.Context, email string) (*user.User, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var u user.User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, plan)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, plan, created_at
	`, email, string(user.PlanFree)).Scan(&u.ID, &u.Email, &u.Plan, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := s.getUserByEmail(ctx, tx, email)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error inserting user: %w", err)
	}

	defaults := user.DefaultAlertSettings(u.ID)
	_, err = tx.Exec(ctx, `
		INSERT INTO alert_settings (user_id, email_frequency, velocity_threshold, min_uses)
		VALUES ($1, $2, $3, $4)
	`, defaults.UserID, string(defaults.EmailFrequency), defaults.VelocityThreshold, defaults.MinUses)
	if err != nil {
		return nil, false, fmt.Errorf("error inserting alert settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("error committing transaction: %w", err)
	}

	return &u, true, nil
}

func (s *UserStore) getUserByEmail(ctx context.Context, tx pgx.Tx, email string) (*user.User, error) {
	var u user.User
	err := tx.QueryRow(ctx, `
		SELECT id, email, plan, created_at FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Plan, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by ID
func (s *UserStore) GetUser(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := s.db.QueryRow(ctx, `
		SELECT id, email, plan, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Plan, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &u, nil
}

// GetSettings retrieves a user's alert settings
func (s *UserStore) GetSettings(ctx context.Context, userID int64) (*user.AlertSettings, error) {
	var settings user.AlertSettings
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, email_frequency, velocity_threshold, min_uses,
			COALESCE(discord_webhook, ''), COALESCE(telegram_chat_id, '')
		FROM alert_settings
		WHERE user_id = $1
	`, userID).Scan(
		&settings.ID,
		&settings.UserID,
		&settings.EmailFrequency,
		&settings.VelocityThreshold,
		&settings.MinUses,
		&settings.DiscordWebhook,
		&settings.TelegramChatID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying alert settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings stores a user's alert settings
func (s *UserStore) UpdateSettings(ctx context.Context, settings user.AlertSettings) error {
	query := `
		INSERT INTO alert_settings (
			user_id, email_frequency, velocity_threshold, min_uses, discord_webhook, telegram_chat_id
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (user_id) DO UPDATE
		SET
			email_frequency = EXCLUDED.email_frequency,
			velocity_threshold = EXCLUDED.velocity_threshold,
			min_uses = EXCLUDED.min_uses,
			discord_webhook = EXCLUDED.discord_webhook,
			telegram_chat_id = EXCLUDED.telegram_chat_id
	`

	_, err := s.db.Exec(ctx, query,
		settings.UserID,
		string(settings.EmailFrequency),
		settings.VelocityThreshold,
		settings.MinUses,
		settings.DiscordWebhook,
		settings.TelegramChatID,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// FindSubscribers lists users whose settings use the given email frequency,
// or all users when frequency is empty
func (s *UserStore) FindSubscribers(ctx context.Context, frequency user.EmailFrequency) ([]user.Subscriber, error) {
	query := `
		SELECT u.id, u.email, u.plan, u.created_at,
			a.id, a.user_id, a.email_frequency, a.velocity_threshold, a.min_uses,
			COALESCE(a.discord_webhook, ''), COALESCE(a.telegram_chat_id, '')
		FROM users u
		JOIN alert_settings a ON a.user_id = u.id
		WHERE ($1::text = '' OR a.email_frequency = $1::text)
		ORDER BY u.id
	`

	rows, err := s.db.Query(ctx, query, string(frequency))
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var subscribers []user.Subscriber
	for rows.Next() {
		var sub user.Subscriber
		if err := rows.Scan(
			&sub.User.ID,
			&sub.User.Email,
			&sub.User.Plan,
			&sub.User.CreatedAt,
			&sub.Settings.ID,
			&sub.Settings.UserID,
			&sub.Settings.EmailFrequency,
			&sub.Settings.VelocityThreshold,
			&sub.Settings.MinUses,
			&sub.Settings.DiscordWebhook,
			&sub.Settings.TelegramChatID,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		subscribers = append(subscribers, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return subscribers, nil
}

// RecordAlert appends a sent alert to the log
func (s *UserStore) RecordAlert(ctx context.Context, alert user.Alert) error {
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO alerts (user_id, sound_id, type, sent_at)
		VALUES ($1, $2, $3, $4)
	`, alert.UserID, alert.SoundID, string(alert.Type), alert.SentAt)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// AlertSentSince reports whether the user was alerted about the sound after since
func (s *UserStore) AlertSentSince(ctx context.Context, userID int64, soundID string, since time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts WHERE user_id = $1 AND sound_id = $2 AND sent_at > $3
		)
	`, userID, soundID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error querying alerts: %w", err)
	}
	return exists, nil
}
