// internal/adapter/openai/transcriber.go

package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"trendcatch/internal/adapter/httpclient"
	"trendcatch/internal/domain/content"
)

const whisperModel = "whisper-1"

// Transcriber implements content.Transcriber with the Whisper API
type Transcriber struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
}

// NewTranscriber creates a new Whisper transcriber
func NewTranscriber(apiKey, baseURL string, client *httpclient.Client) *Transcriber {
	return &Transcriber{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Transcribe uploads the audio and returns the plain-text transcript
func (t *Transcriber) Transcribe(ctx context.Context, audio content.Audio) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("openai api key is not configured")
	}

	payload, contentType, err := buildForm(audio)
	if err != nil {
		return "", err
	}

	body, err := t.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return strings.TrimSpace(string(body)), nil
}

func buildForm(audio content.Audio) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName := audio.FileName
	if fileName == "" {
		fileName = "audio.mp3"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "audio/mpeg")

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("error creating file part: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("error writing file part: %w", err)
	}

	if err := w.WriteField("model", whisperModel); err != nil {
		return nil, "", fmt.Errorf("error writing model field: %w", err)
	}
	if err := w.WriteField("response_format", "text"); err != nil {
		return nil, "", fmt.Errorf("error writing format field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("error closing form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
