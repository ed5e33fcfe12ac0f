// internal/server/handlers/auth.go

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trendcatch/internal/domain/user"
	"trendcatch/internal/logger"
	"trendcatch/internal/service/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticator issues magic links and manages the settings of verified users
type Authenticator interface {
	RequestLink(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (*auth.Identity, error)
	Settings(ctx context.Context, userID int64) (*user.AlertSettings, error)
	UpdateSettings(ctx context.Context, userID int64, update auth.SettingsUpdate) (*user.AlertSettings, error)
}

// AuthHandler handles magic-link and settings HTTP requests
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type linkRequest struct {
	Email string `json:"email"`
}

type settingsResponse struct {
	EmailFrequency    string `json:"emailFrequency"`
	VelocityThreshold int    `json:"velocityThreshold"`
	MinUses           int64  `json:"minUses"`
	DiscordWebhook    string `json:"discordWebhook"`
	TelegramChatID    string `json:"telegramChatId"`
}

// RequestLink emails a sign-in link, creating the account on first use
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.auth.RequestLink(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			respondWithError(w, r, http.StatusBadRequest, "Valid email required", nil)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Authentication failed", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Verify exchanges a magic-link token for the identity it carries
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			respondWithError(w, r, http.StatusUnauthorized, "invalid or expired token", nil)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Verification failed", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, identity)
}

// RequireAuth rejects requests without a valid bearer token
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondWithError(w, r, http.StatusUnauthorized, "authorization header required", nil)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, r, http.StatusUnauthorized, "invalid authorization header format", nil)
			return
		}

		identity, err := h.auth.Verify(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				logger.WarnCtx(r.Context(), "Rejected token", zap.String("remote_addr", r.RemoteAddr))
				respondWithError(w, r, http.StatusUnauthorized, "invalid or expired token", nil)
			} else {
				respondWithError(w, r, http.StatusInternalServerError, "Verification failed", err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSettings returns the caller's alert settings
func (h *AuthHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, r, http.StatusUnauthorized, "authorization header required", nil)
		return
	}

	settings, err := h.auth.Settings(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondWithError(w, r, http.StatusNotFound, "Settings not found", nil)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Failed to get settings", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UpdateSettings replaces the caller's alert settings
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, r, http.StatusUnauthorized, "authorization header required", nil)
		return
	}

	var update auth.SettingsUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	settings, err := h.auth.UpdateSettings(r.Context(), identity.UserID, update)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSettings) {
			respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Failed to update settings", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func identityFromContext(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityKey).(*auth.Identity)
	return identity
}

func toSettingsResponse(s *user.AlertSettings) settingsResponse {
	return settingsResponse{
		EmailFrequency:    string(s.EmailFrequency),
		VelocityThreshold: s.VelocityThreshold,
		MinUses:           s.MinUses,
		DiscordWebhook:    s.DiscordWebhook,
		TelegramChatID:    s.TelegramChatID,
	}
}
