// internal/domain/content/model.go

package content

import (
	"context"
	"errors"
)

// ErrInvalidInput marks errors caused by the caller's input
var ErrInvalidInput = errors.New("invalid input")

// InputError is a caller error whose message is safe to show to the client
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Is makes InputError match ErrInvalidInput
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid returns an InputError with msg
func Invalid(msg string) error {
	return &InputError{Message: msg}
}

// ShortFormScript is a 30-60 second video script
type ShortFormScript struct {
	Hook         string   `json:"hook"`
	Body         string   `json:"body"`
	CallToAction string   `json:"callToAction"`
	Hashtags     []string `json:"hashtags"`
}

// SocialPosts groups posts per platform
type SocialPosts struct {
	LinkedIn  []string `json:"linkedin"`
	Twitter   []string `json:"twitter"`
	Instagram []string `json:"instagram"`
}

// BlogArticle is a long-form article
type BlogArticle struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Content         string   `json:"content"`
	Keywords        []string `json:"keywords"`
}

// CalendarDay is one entry of the content calendar
type CalendarDay struct {
	Date         int    `json:"date"`
	Platform     string `json:"platform"`
	ContentType  string `json:"contentType"`
	ContentIndex int    `json:"contentIndex"`
	BestTime     string `json:"bestTime"`
	Notes        string `json:"notes"`
}

// Generated is the multi-platform content produced from a transcript
type Generated struct {
	ShortFormScripts []ShortFormScript `json:"shortFormScripts"`
	SocialPosts      SocialPosts       `json:"socialPosts"`
	BlogArticle      BlogArticle       `json:"blogArticle"`
	Quotes           []string          `json:"quotes"`
	ContentCalendar  []CalendarDay     `json:"contentCalendar"`
}

// Audio is an audio payload ready for transcription
type Audio struct {
	FileName string
	Data     []byte
}

// Transcriber converts audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// Generator asks a generative-text model for a completion
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Downloader fetches the audio track of an external video
type Downloader interface {
	Download(ctx context.Context, url string) (*Audio, error)
}
