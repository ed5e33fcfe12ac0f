// internal/server/handlers/content.go

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"trendcatch/internal/domain/content"
	contentsvc "trendcatch/internal/service/content"
)

// uploads above the transcription limit still parse so the size check can
// answer with a helpful message
const maxUploadBytes = 32 << 20

// ContentPipeline transcribes recordings and repurposes transcripts
type ContentPipeline interface {
	Transcribe(ctx context.Context, req contentsvc.TranscribeRequest) (string, error)
	Generate(ctx context.Context, transcript string) (*content.Generated, error)
}

// ContentHandler handles transcription and generation HTTP requests
type ContentHandler struct {
	pipeline ContentPipeline
}

// NewContentHandler creates a new content handler
func NewContentHandler(pipeline ContentPipeline) *ContentHandler {
	return &ContentHandler{pipeline: pipeline}
}

type generateRequest struct {
	Transcript string `json:"transcript"`
}

// Transcribe accepts a multipart upload (file) or a YouTube link (youtubeUrl)
func (h *ContentHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, http.StatusBadRequest, "Audio file too large. Maximum size is 25MB.", nil)
			return
		}
		respondWithError(w, r, http.StatusBadRequest, "Please provide a file or YouTube URL", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := contentsvc.TranscribeRequest{YouTubeURL: r.FormValue("youtubeUrl")}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file", nil)
			return
		}
		req.File = &content.Audio{FileName: header.Filename, Data: data}
	}

	transcript, err := h.pipeline.Transcribe(r.Context(), req)
	if err != nil {
		h.respondWithPipelineError(w, r, "Transcription failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

// Generate repurposes a transcript into multi-platform content
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	generated, err := h.pipeline.Generate(r.Context(), req.Transcript)
	if err != nil {
		h.respondWithPipelineError(w, r, "Content generation failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, generated)
}

// respondWithPipelineError shows input errors to the client as they are; any
// other failure answers with message and only the log carries the cause
func (h *ContentHandler) respondWithPipelineError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, content.ErrInvalidInput):
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, contentsvc.ErrUnparsable):
		respondWithError(w, r, http.StatusInternalServerError, contentsvc.ErrUnparsable.Error(), err)
	default:
		respondWithError(w, r, http.StatusInternalServerError, message, err)
	}
}
