package creativecenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html><html><head><title>Music</title></head><body>
<div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":{"pagination":{"page":1,"size":3,"total":3,"hasMore":false},"soundList":[
{"title":"Espresso","author":"Sabrina Carpenter","cover":"https://p16.example/cover1.jpg","link":"https://www.tiktok.com/music/x-7320000000000000001","clipId":"7320000000000000001","rank":1,"rankDiff":2,"rankDiffType":1,"trend":[{"time":1700000000,"value":0.2},{"time":1700086400,"value":0.5},{"time":1700172800,"value":0.8}],"duration":60,"countryCode":"US","relatedItems":[{"itemId":"111","coverUri":"https://p16.example/v1.jpg"}]},
{"title":"No Trend","author":"Someone","cover":"","link":"","clipId":"7320000000000000002","rank":4,"rankDiff":null,"rankDiffType":4,"trend":[],"duration":30,"countryCode":"US"},
{"title":"Missing ID","author":"Nobody","clipId":"","rank":5,"trend":[]}
]}}}}</script>
</body></html>`

func TestParsePage(t *testing.T) {
	records, err := ParsePage([]byte(samplePage))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "7320000000000000001", first.ClipID)
	assert.Equal(t, "Espresso", first.Title)
	assert.Equal(t, "Sabrina Carpenter", first.Author)
	assert.Equal(t, 1, first.Rank)
	require.NotNil(t, first.RankDiff)
	assert.Equal(t, 2, *first.RankDiff)
	assert.Equal(t, []float64{0.2, 0.5, 0.8}, first.Series())
	require.Len(t, first.RelatedItems, 1)
	assert.Equal(t, "111", first.RelatedItems[0].ItemID)

	second := records[1]
	assert.Nil(t, second.RankDiff)
	assert.Empty(t, second.Series())
}

func TestParsePageNoData(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "no script tag",
			html: `<html><body><p>blocked</p></body></html>`,
		},
		{
			name: "empty script",
			html: `<html><body><script id="__NEXT_DATA__" type="application/json"></script></body></html>`,
		},
		{
			name: "invalid json",
			html: `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":</script></body></html>`,
		},
		{
			name: "missing data",
			html: `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script></body></html>`,
		},
		{
			name: "missing sound list",
			html: `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":{"pagination":{}}}}}</script></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParsePage([]byte(tt.html))
			assert.ErrorIs(t, err, ErrNoData)
			assert.Nil(t, records)
		})
	}
}

func TestParsePageEmptyList(t *testing.T) {
	html := `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":{"soundList":[]}}}}</script>`

	records, err := ParsePage([]byte(html))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTrendRecordObservation(t *testing.T) {
	record := TrendRecord{
		Title:  "Song",
		Author: "Artist",
		Cover:  "cover",
		Link:   "link",
		ClipID: "42",
		Rank:   4,
		Trend:  []TrendPoint{{Time: 1, Value: 10}, {Time: 2, Value: 15}},
	}

	obs := record.Observation()
	assert.Equal(t, "42", obs.Sound.ID)
	assert.Equal(t, "Song", obs.Sound.Name)
	assert.Equal(t, "Artist", obs.Sound.Artist)
	assert.Equal(t, "cover", obs.Sound.CoverURL)
	assert.Equal(t, "link", obs.Sound.TikTokURL)
	assert.Equal(t, int64(25000), obs.Uses)
	assert.Equal(t, []float64{10, 15}, obs.Series)
}
