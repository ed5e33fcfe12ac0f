// internal/service/content/service.go

package content

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"trendcatch/internal/domain/content"
	"trendcatch/internal/logger"
)

// DefaultMaxAudioBytes is the largest payload the transcription API accepts
const DefaultMaxAudioBytes = 25 * 1024 * 1024

const (
	msgMissingInput  = "Please provide a file or YouTube URL"
	msgInvalidURL    = "Invalid YouTube URL. Supported formats: youtube.com/watch, youtu.be, youtube.com/shorts"
	msgTooLarge      = "Audio file too large. Maximum size is 25MB."
	msgNoTranscript  = "Transcript is required"
	msgBlockedHelp   = "YouTube blocked this request. Download the audio using cobalt.tools or y2mate.com, then upload it here."
	msgManualHelp    = "Try downloading the audio manually and uploading it here."
	msgDownloadError = "YouTube download failed. "
)

// ErrUnparsable is returned when the model's answer is not the expected JSON
var ErrUnparsable = errors.New("Failed to parse generated content as JSON")

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[\w-]+`),
}

// Config contains configuration for the content service
type Config struct {
	MaxAudioBytes int64
}

// TranscribeRequest carries either an uploaded file or a YouTube URL. The URL
// wins when both are set.
type TranscribeRequest struct {
	File       *content.Audio
	YouTubeURL string
}

// Service turns recordings into transcripts and transcripts into content
type Service struct {
	transcriber content.Transcriber
	generator   content.Generator
	downloader  content.Downloader
	config      Config
}

// NewService creates a new content service
func NewService(transcriber content.Transcriber, generator content.Generator, downloader content.Downloader, config Config) *Service {
	if config.MaxAudioBytes <= 0 {
		config.MaxAudioBytes = DefaultMaxAudioBytes
	}

	return &Service{
		transcriber: transcriber,
		generator:   generator,
		downloader:  downloader,
		config:      config,
	}
}

// IsYouTubeURL reports whether url is a watch, youtu.be or shorts link
func IsYouTubeURL(url string) bool {
	for _, p := range youtubePatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// Transcribe resolves the audio of req and returns its transcript
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	url := strings.TrimSpace(req.YouTubeURL)
	if url == "" && req.File == nil {
		return "", content.Invalid(msgMissingInput)
	}

	audio := req.File
	if url != "" {
		if !IsYouTubeURL(url) {
			return "", content.Invalid(msgInvalidURL)
		}

		logger.InfoCtx(ctx, "Downloading YouTube audio", zap.String("url", url))
		downloaded, err := s.downloader.Download(ctx, url)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("url", url))
			return "", content.Invalid(msgDownloadError + downloadHelp(err))
		}
		logger.InfoCtx(ctx, "Downloaded YouTube audio",
			zap.String("file", downloaded.FileName),
			zap.Int("bytes", len(downloaded.Data)))
		audio = downloaded
	}

	if int64(len(audio.Data)) > s.config.MaxAudioBytes {
		return "", content.Invalid(msgTooLarge)
	}

	transcript, err := s.transcriber.Transcribe(ctx, *audio)
	if err != nil {
		return "", err
	}
	return transcript, nil
}

// Generate asks the model for multi-platform content based on transcript
func (s *Service) Generate(ctx context.Context, transcript string) (*content.Generated, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, content.Invalid(msgNoTranscript)
	}

	text, err := s.generator.Generate(ctx, BuildPrompt(transcript))
	if err != nil {
		return nil, err
	}

	var generated content.Generated
	if err := json.Unmarshal([]byte(stripFences(text)), &generated); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("response", truncate(text, 500)))
		return nil, ErrUnparsable
	}

	return &generated, nil
}

// downloadHelp suggests a workaround matching the kind of download failure
func downloadHelp(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "bot") || strings.Contains(msg, "Sign in") {
		return msgBlockedHelp
	}
	return msgManualHelp
}

// stripFences removes a surrounding markdown code block
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
