// internal/adapter/creativecenter/parser.go

package creativecenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trendcatch/internal/domain/sound"
)

// ErrNoData is returned when a page carries no usable sound list
var ErrNoData = errors.New("no trend data in page")

// TrendPoint is one sample of a sound's usage curve
type TrendPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// RelatedItem is a sample video using the sound
type RelatedItem struct {
	ItemID   string `json:"itemId"`
	CoverURI string `json:"coverUri"`
}

// TrendRecord is one sound entry of the music trends page
type TrendRecord struct {
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	Cover        string        `json:"cover"`
	Link         string        `json:"link"`
	ClipID       string        `json:"clipId"`
	Rank         int           `json:"rank"`
	RankDiff     *int          `json:"rankDiff"`
	RankDiffType int           `json:"rankDiffType"`
	Trend        []TrendPoint  `json:"trend"`
	Duration     int           `json:"duration"`
	CountryCode  string        `json:"countryCode"`
	RelatedItems []RelatedItem `json:"relatedItems"`
}

// Series returns the trend values in page order
func (r TrendRecord) Series() []float64 {
	values := make([]float64, 0, len(r.Trend))
	for _, p := range r.Trend {
		values = append(values, p.Value)
	}
	return values
}

// Observation converts the record into an ingest input. Uses are estimated
// from rank since the page does not expose counts.
func (r TrendRecord) Observation() sound.Observation {
	return sound.Observation{
		Sound: sound.Sound{
			ID:        r.ClipID,
			Name:      r.Title,
			Artist:    r.Author,
			CoverURL:  r.Cover,
			TikTokURL: r.Link,
		},
		Uses:   sound.EstimateUses(r.Rank),
		Series: r.Series(),
	}
}

type nextData struct {
	Props struct {
		PageProps struct {
			Data *struct {
				SoundList []TrendRecord `json:"soundList"`
			} `json:"data"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ParsePage extracts the sound list embedded in the page's __NEXT_DATA__ script
func ParsePage(html []byte) ([]TrendRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("error parsing html: %w", err)
	}

	script := doc.Find(`script#__NEXT_DATA__`).First()
	if script.Length() == 0 {
		return nil, ErrNoData
	}

	raw := strings.TrimSpace(script.Text())
	if raw == "" {
		return nil, ErrNoData
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	pageData := data.Props.PageProps.Data
	if pageData == nil || pageData.SoundList == nil {
		return nil, ErrNoData
	}

	records := make([]TrendRecord, 0, len(pageData.SoundList))
	for _, r := range pageData.SoundList {
		// entries without a clip ID cannot be tracked over time
		if r.ClipID == "" {
			continue
		}
		records = append(records, r)
	}

	return records, nil
}
