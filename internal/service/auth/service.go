// internal/service/auth/service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trendcatch/internal/domain/user"
	"trendcatch/internal/logger"
)

var (
	// ErrInvalidToken is returned for malformed, forged or expired tokens
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidEmail is returned when the email is missing or malformed
	ErrInvalidEmail = errors.New("valid email is required")
	// ErrInvalidSettings is returned when a settings update fails validation
	ErrInvalidSettings = errors.New("invalid settings")
)

// LinkMailer delivers magic links
type LinkMailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// Config contains configuration for the auth service
type Config struct {
	Secret string
	TTL    time.Duration
	AppURL string
}

// Claims are the claims carried by a magic-link token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the verified holder of a token
type Identity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// SettingsUpdate carries the user-editable alert settings
type SettingsUpdate struct {
	EmailFrequency    string `json:"emailFrequency"`
	VelocityThreshold int    `json:"velocityThreshold"`
	MinUses           int64  `json:"minUses"`
	DiscordWebhook    string `json:"discordWebhook"`
	TelegramChatID    string `json:"telegramChatId"`
}

// Service issues and verifies magic-link tokens and manages alert settings
type Service struct {
	users  user.Store
	mailer LinkMailer
	config Config
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(users user.Store, mailer LinkMailer, config Config) *Service {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}

	return &Service{
		users:  users,
		mailer: mailer,
		config: config,
		now:    time.Now,
	}
}

// RequestLink creates the user on first sight and emails a sign-in link
func (s *Service) RequestLink(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	u, created, err := s.users.GetOrCreateUser(ctx, email)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if created {
		logger.InfoCtx(ctx, "Created user", zap.Int64("user_id", u.ID))
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", strings.TrimRight(s.config.AppURL, "/"), url.QueryEscape(token))
	if err := s.mailer.SendMagicLink(ctx, u.Email, link); err != nil {
		return fmt.Errorf("error sending magic link: %w", err)
	}

	return nil
}

// IssueToken signs a token for u that expires after the configured TTL
func (s *Service) IssueToken(u *user.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the signature and expiry of token
func (s *Service) ParseToken(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: userID, Email: claims.Email}, nil
}

// Verify validates token and checks that its user still exists
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	identity, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, identity.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return &Identity{UserID: u.ID, Email: u.Email}, nil
}

// Settings returns the alert settings of a user
func (s *Service) Settings(ctx context.Context, userID int64) (*user.AlertSettings, error) {
	return s.users.GetSettings(ctx, userID)
}

// UpdateSettings validates and stores a user's alert settings
func (s *Service) UpdateSettings(ctx context.Context, userID int64, update SettingsUpdate) (*user.AlertSettings, error) {
	frequency, err := user.ParseEmailFrequency(update.EmailFrequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if update.VelocityThreshold < 0 || update.MinUses < 0 {
		return nil, fmt.Errorf("%w: thresholds must not be negative", ErrInvalidSettings)
	}

	webhook := strings.TrimSpace(update.DiscordWebhook)
	if webhook != "" {
		u, err := url.Parse(webhook)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return nil, fmt.Errorf("%w: discord webhook must be an https url", ErrInvalidSettings)
		}
	}

	settings := user.AlertSettings{
		UserID:            userID,
		EmailFrequency:    frequency,
		VelocityThreshold: update.VelocityThreshold,
		MinUses:           update.MinUses,
		DiscordWebhook:    webhook,
		TelegramChatID:    strings.TrimSpace(update.TelegramChatID),
	}

	if err := s.users.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("error updating settings: %w", err)
	}

	return s.users.GetSettings(ctx, userID)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
