// Package geomag handles the planetary Kp-index feed: fetching the JSON
// array of recent readings and extracting the latest entry for the
// geomagnetic-storm check.
package geomag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSourceURL = "https://services.swpc.noaa.gov/json/planetary_k_index_1m.json"

// Reading is the latest planetary Kp-index observation.
type Reading struct {
	Kp      float64   `json:"kp"`
	TimeTag time.Time `json:"time_tag"`
}

// Fetcher retrieves the Kp-index feed.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source URL, defaulting to the
// NOAA SWPC 1-minute planetary K feed when empty.
func NewFetcher(sourceURL string) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch retrieves and parses the feed, returning the latest reading.
func (f *Fetcher) Fetch(ctx context.Context) (*Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching geomagnetic data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return ParseLatest(body)
}

// feedEntry matches one element of the NOAA JSON array. The index value
// appears under either of two field names depending on the product.
type feedEntry struct {
	TimeTag     string   `json:"time_tag"`
	KpIndex     *float64 `json:"kp_index"`
	EstimatedKp *float64 `json:"estimated_kp"`
}

// ParseLatest extracts the most recent reading from a raw feed body.
// The feed is ordered oldest first; the last entry wins.
func ParseLatest(data []byte) (*Reading, error) {
	var entries []feedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding geomagnetic feed: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("geomagnetic feed is empty")
	}

	latest := entries[len(entries)-1]

	var kp float64
	switch {
	case latest.KpIndex != nil:
		kp = *latest.KpIndex
	case latest.EstimatedKp != nil:
		kp = *latest.EstimatedKp
	default:
		return nil, fmt.Errorf("geomagnetic feed entry has no kp_index or estimated_kp field")
	}

	tag, err := parseTimeTag(latest.TimeTag)
	if err != nil {
		return nil, err
	}

	return &Reading{Kp: kp, TimeTag: tag}, nil
}

// parseTimeTag handles both RFC3339 and the zone-less variant NOAA emits.
func parseTimeTag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time_tag %q: %w", s, err)
	}
	return t.UTC(), nil
}
