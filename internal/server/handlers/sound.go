// internal/server/handlers/sound.go

package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trendcatch/internal/domain/sound"
	"trendcatch/internal/logger"
)

// FallbackHeader marks responses served from placeholder data
const FallbackHeader = "X-Trendcatch-Fallback"

// SoundHandler handles trending sound HTTP requests
type SoundHandler struct {
	catcher    sound.Catcher
	cronSecret string
	now        func() time.Time
}

// NewSoundHandler creates a new sound handler. An empty cronSecret leaves
// the refresh endpoint open.
func NewSoundHandler(catcher sound.Catcher, cronSecret string) *SoundHandler {
	return &SoundHandler{
		catcher:    catcher,
		cronSecret: cronSecret,
		now:        time.Now,
	}
}

type createSoundRequest struct {
	SoundID   string `json:"soundId"`
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	Uses      *int64 `json:"uses"`
	CoverURL  string `json:"coverUrl"`
	TikTokURL string `json:"tiktokUrl"`
}

type createSoundResponse struct {
	SoundID    string    `json:"soundId"`
	Uses       int64     `json:"uses"`
	Velocity   *float64  `json:"velocity"`
	CapturedAt time.Time `json:"capturedAt"`
}

type snapshotResponse struct {
	Uses       int64     `json:"uses"`
	Velocity   *float64  `json:"velocity"`
	CapturedAt time.Time `json:"capturedAt"`
}

type soundDetailsResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Artist    string             `json:"artist"`
	CoverURL  string             `json:"coverUrl"`
	TikTokURL string             `json:"tiktokUrl"`
	CreatedAt time.Time          `json:"createdAt"`
	Snapshots []snapshotResponse `json:"snapshots"`
}

type refreshResponse struct {
	Success     bool      `json:"success"`
	SoundsFound int       `json:"soundsFound"`
	DurationMs  int64     `json:"durationMs"`
	Timestamp   time.Time `json:"timestamp"`
}

// ListSounds returns the ranked trending list. When the store cannot be read
// a placeholder list is served instead of an error.
func (h *SoundHandler) ListSounds(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"

	ranked, err := h.catcher.Trending(r.Context(), force)
	if err != nil {
		logger.ErrorCtx(r.Context(), err, zap.String("path", r.URL.Path))
		w.Header().Set(FallbackHeader, "true")
		respondWithJSON(w, http.StatusOK, placeholderSounds(h.now()))
		return
	}

	if ranked == nil {
		ranked = []sound.Ranked{}
	}
	respondWithJSON(w, http.StatusOK, ranked)
}

// GetSound returns a sound with its most recent snapshots
func (h *SoundHandler) GetSound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, r, http.StatusBadRequest, "Missing sound ID", nil)
		return
	}

	details, err := h.catcher.Details(r.Context(), id)
	if err != nil {
		if errors.Is(err, sound.ErrNotFound) {
			respondWithError(w, r, http.StatusNotFound, "Sound not found", nil)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Failed to get sound", err)
		}
		return
	}

	resp := soundDetailsResponse{
		ID:        details.Sound.ID,
		Name:      details.Sound.Name,
		Artist:    details.Sound.Artist,
		CoverURL:  details.Sound.CoverURL,
		TikTokURL: details.Sound.TikTokURL,
		CreatedAt: details.Sound.CreatedAt,
		Snapshots: make([]snapshotResponse, 0, len(details.Snapshots)),
	}
	for _, snap := range details.Snapshots {
		resp.Snapshots = append(resp.Snapshots, snapshotResponse{
			Uses:       snap.Uses,
			Velocity:   snap.Velocity,
			CapturedAt: snap.CapturedAt,
		})
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// CreateSound records one observation of a sound and returns its velocity
func (h *SoundHandler) CreateSound(w http.ResponseWriter, r *http.Request) {
	var req createSoundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	req.SoundID = strings.TrimSpace(req.SoundID)
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.SoundID == "":
		respondWithError(w, r, http.StatusBadRequest, "soundId is required", nil)
		return
	case req.Name == "":
		respondWithError(w, r, http.StatusBadRequest, "name is required", nil)
		return
	case req.Uses == nil:
		respondWithError(w, r, http.StatusBadRequest, "uses is required", nil)
		return
	case *req.Uses < 0:
		respondWithError(w, r, http.StatusBadRequest, "uses must not be negative", nil)
		return
	}

	snap, err := h.catcher.Ingest(r.Context(), sound.Observation{
		Sound: sound.Sound{
			ID:        req.SoundID,
			Name:      req.Name,
			Artist:    req.Artist,
			CoverURL:  req.CoverURL,
			TikTokURL: req.TikTokURL,
		},
		Uses: *req.Uses,
	})
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Failed to store sound", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, createSoundResponse{
		SoundID:    snap.SoundID,
		Uses:       snap.Uses,
		Velocity:   snap.Velocity,
		CapturedAt: snap.CapturedAt,
	})
}

// Refresh scrapes every configured region
func (h *SoundHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondWithError(w, r, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	logger.InfoCtx(r.Context(), "Starting full region refresh")
	start := h.now()

	// the refresh outlives a dropped client connection
	found, err := h.catcher.RefreshAll(context.WithoutCancel(r.Context()))
	duration := h.now().Sub(start)
	if err != nil {
		logger.ErrorCtx(r.Context(), err, zap.Int("sounds_found", found))
		respondWithError(w, r, http.StatusInternalServerError, "Refresh failed", nil)
		return
	}

	logger.InfoCtx(r.Context(), "Completed full region refresh",
		zap.Int("sounds_found", found),
		zap.Duration("duration", duration))

	respondWithJSON(w, http.StatusOK, refreshResponse{
		Success:     true,
		SoundsFound: found,
		DurationMs:  duration.Milliseconds(),
		Timestamp:   h.now().UTC(),
	})
}

// RefreshInfo describes the refresh endpoint
func (h *SoundHandler) RefreshInfo(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"endpoint":    "/sounds/refresh",
		"method":      "POST",
		"description": "Triggers a full refresh of trending sounds",
		"note":        "Set TRENDCATCH_TREND_CRON_SECRET to require authorization",
	})
}

func (h *SoundHandler) authorized(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	want := "Bearer " + h.cronSecret
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// placeholderSounds is shown when no real data can be read
func placeholderSounds(now time.Time) []sound.Ranked {
	now = now.UTC()
	return []sound.Ranked{
		{
			ID:         "1",
			Name:       "Cupid",
			Artist:     "FIFTY FIFTY",
			CoverURL:   "/placeholder.png",
			TikTokURL:  "https://tiktok.com",
			LatestUses: 6600,
			Velocity:   450,
			CapturedAt: now,
		},
		{
			ID:         "2",
			Name:       "Boy's a Liar Pt. 2",
			Artist:     "PinkPantheress & Ice Spice",
			CoverURL:   "/placeholder.png",
			TikTokURL:  "https://tiktok.com",
			LatestUses: 3840,
			Velocity:   380,
			CapturedAt: now,
		},
		{
			ID:         "3",
			Name:       "die for you",
			Artist:     "The Weeknd & Ariana Grande",
			CoverURL:   "/placeholder.png",
			TikTokURL:  "https://tiktok.com",
			LatestUses: 8820,
			Velocity:   320,
			CapturedAt: now,
		},
	}
}
