// internal/adapter/ytdlp/downloader.go

package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"trendcatch/internal/domain/content"
	"trendcatch/internal/logger"
)

// ErrTimeout is returned when the download exceeds its time budget
var ErrTimeout = errors.New("download timed out")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Config holds downloader configuration
type Config struct {
	Path    string
	Proxy   string
	Timeout time.Duration
}

// Downloader implements content.Downloader by shelling out to yt-dlp
type Downloader struct {
	config Config
}

// NewDownloader creates a new yt-dlp downloader
func NewDownloader(config Config) *Downloader {
	if config.Path == "" {
		config.Path = "yt-dlp"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	return &Downloader{config: config}
}

// Download extracts the audio track of url as mp3. The process is killed when
// the timeout elapses.
func (d *Downloader) Download(ctx context.Context, url string) (*content.Audio, error) {
	dir, err := os.MkdirTemp("", "yt-download-")
	if err != nil {
		return nil, fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "5",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		"--no-playlist",
		"--max-filesize", "50M",
		"--socket-timeout", "30",
		"--print", "title",
		"--no-simulate",
	}
	if d.config.Proxy != "" {
		args = append(args, "--proxy", d.config.Proxy)
	}
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.config.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, truncate(strings.TrimSpace(stderr.String()), 200))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "audio.*"))
	if err != nil || len(matches) == 0 {
		return nil, errors.New("failed to read downloaded audio file")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read downloaded audio file: %w", err)
	}

	title := lastLine(stdout.String())
	if title == "" {
		title = "youtube_audio"
	}

	logger.Info("Downloaded audio",
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return &content.Audio{
		FileName: FileName(title),
		Data:     data,
	}, nil
}

// FileName turns a video title into a safe mp3 file name
func FileName(title string) string {
	name := unsafeChars.ReplaceAllString(title, "_")
	if len(name) > 50 {
		name = name[:50]
	}
	return name + ".mp3"
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
