package content

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendcatch/internal/domain/content"
)

type fakeTranscriber struct {
	got  *content.Audio
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio content.Audio) (string, error) {
	f.got = &audio
	return f.text, f.err
}

type fakeGenerator struct {
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

type fakeDownloader struct {
	url   string
	audio *content.Audio
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, url string) (*content.Audio, error) {
	f.url = url
	return f.audio, f.err
}

const generatedJSON = `{
  "shortFormScripts": [{"hook": "Stop scrolling", "body": "b", "callToAction": "Follow", "hashtags": ["#a"]}],
  "socialPosts": {"linkedin": ["l"], "twitter": ["t1", "t2"], "instagram": ["i"]},
  "blogArticle": {"title": "T", "metaDescription": "M", "content": "# C", "keywords": ["k"]},
  "quotes": ["q"],
  "contentCalendar": [{"date": 1, "platform": "TikTok", "contentType": "reel", "contentIndex": 0, "bestTime": "9am", "notes": ""}]
}`

func TestIsYouTubeURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=abc-_1",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtube.com/shorts/abc123",
	}
	for _, u := range valid {
		assert.True(t, IsYouTubeURL(u), u)
	}

	invalid := []string{
		"",
		"https://vimeo.com/123",
		"https://www.youtube.com/channel/xyz",
		"ftp://youtu.be/abc",
		"https://evil.com/?https://youtu.be/abc",
	}
	for _, u := range invalid {
		assert.False(t, IsYouTubeURL(u), u)
	}
}

func TestTranscribeUpload(t *testing.T) {
	tr := &fakeTranscriber{text: "hello world"}
	svc := NewService(tr, &fakeGenerator{}, &fakeDownloader{}, Config{})

	text, err := svc.Transcribe(context.Background(), TranscribeRequest{
		File: &content.Audio{FileName: "clip.mp3", Data: []byte("mp3")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "clip.mp3", tr.got.FileName)
}

func TestTranscribeMissingInput(t *testing.T) {
	svc := NewService(&fakeTranscriber{}, &fakeGenerator{}, &fakeDownloader{}, Config{})

	_, err := svc.Transcribe(context.Background(), TranscribeRequest{YouTubeURL: "  "})
	require.ErrorIs(t, err, content.ErrInvalidInput)
	assert.Equal(t, "Please provide a file or YouTube URL", err.Error())
}

func TestTranscribeInvalidURL(t *testing.T) {
	dl := &fakeDownloader{}
	svc := NewService(&fakeTranscriber{}, &fakeGenerator{}, dl, Config{})

	_, err := svc.Transcribe(context.Background(), TranscribeRequest{YouTubeURL: "https://vimeo.com/1"})
	require.ErrorIs(t, err, content.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Invalid YouTube URL")
	assert.Empty(t, dl.url)
}

func TestTranscribeYouTube(t *testing.T) {
	tr := &fakeTranscriber{text: "from youtube"}
	dl := &fakeDownloader{audio: &content.Audio{FileName: "Talk.mp3", Data: []byte("x")}}
	svc := NewService(tr, &fakeGenerator{}, dl, Config{})

	text, err := svc.Transcribe(context.Background(), TranscribeRequest{
		YouTubeURL: "https://youtu.be/abc",
		File:       &content.Audio{FileName: "ignored.mp3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from youtube", text)
	assert.Equal(t, "https://youtu.be/abc", dl.url)
	assert.Equal(t, "Talk.mp3", tr.got.FileName)
}

func TestTranscribeDownloadHelp(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "bot detection",
			err:  errors.New("yt-dlp failed: ERROR: Sign in to confirm you're not a bot"),
			want: "YouTube download failed. YouTube blocked this request. Download the audio using cobalt.tools or y2mate.com, then upload it here.",
		},
		{
			name: "other",
			err:  errors.New("download timed out"),
			want: "YouTube download failed. Try downloading the audio manually and uploading it here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeTranscriber{}, &fakeGenerator{}, &fakeDownloader{err: tt.err}, Config{})
			_, err := svc.Transcribe(context.Background(), TranscribeRequest{YouTubeURL: "https://youtu.be/abc"})
			require.ErrorIs(t, err, content.ErrInvalidInput)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestTranscribeTooLarge(t *testing.T) {
	tr := &fakeTranscriber{}
	svc := NewService(tr, &fakeGenerator{}, &fakeDownloader{}, Config{MaxAudioBytes: 10})

	_, err := svc.Transcribe(context.Background(), TranscribeRequest{
		File: &content.Audio{FileName: "big.mp3", Data: bytes.Repeat([]byte("a"), 11)},
	})
	require.ErrorIs(t, err, content.ErrInvalidInput)
	assert.Equal(t, "Audio file too large. Maximum size is 25MB.", err.Error())
	assert.Nil(t, tr.got)
}

func TestTranscribeUpstreamError(t *testing.T) {
	svc := NewService(&fakeTranscriber{err: errors.New("quota exceeded")}, &fakeGenerator{}, &fakeDownloader{}, Config{})

	_, err := svc.Transcribe(context.Background(), TranscribeRequest{File: &content.Audio{Data: []byte("a")}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, content.ErrInvalidInput)
}

func TestGenerate(t *testing.T) {
	for name, text := range map[string]string{
		"plain":      generatedJSON,
		"json fence": "```json\n" + generatedJSON + "\n```",
		"bare fence": "```\n" + generatedJSON + "\n```  ",
	} {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{text: text}
			svc := NewService(&fakeTranscriber{}, gen, &fakeDownloader{}, Config{})

			out, err := svc.Generate(context.Background(), "my transcript")
			require.NoError(t, err)
			assert.Contains(t, gen.prompt, "TRANSCRIPT:\nmy transcript\n")
			require.Len(t, out.ShortFormScripts, 1)
			assert.Equal(t, "Stop scrolling", out.ShortFormScripts[0].Hook)
			assert.Equal(t, []string{"t1", "t2"}, out.SocialPosts.Twitter)
			assert.Equal(t, "T", out.BlogArticle.Title)
			require.Len(t, out.ContentCalendar, 1)
			assert.Equal(t, 1, out.ContentCalendar[0].Date)
		})
	}
}

func TestGenerateRequiresTranscript(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(&fakeTranscriber{}, gen, &fakeDownloader{}, Config{})

	_, err := svc.Generate(context.Background(), " \n")
	require.ErrorIs(t, err, content.ErrInvalidInput)
	assert.Equal(t, "Transcript is required", err.Error())
	assert.Empty(t, gen.prompt)
}

func TestGenerateUnparsable(t *testing.T) {
	svc := NewService(&fakeTranscriber{}, &fakeGenerator{text: "Sure! Here is your content"}, &fakeDownloader{}, Config{})

	_, err := svc.Generate(context.Background(), "t")
	assert.ErrorIs(t, err, ErrUnparsable)
	assert.Equal(t, "Failed to parse generated content as JSON", err.Error())
}
