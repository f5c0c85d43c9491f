package geomag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseLatestKpIndexField(t *testing.T) {
	feed := `[
		{"time_tag": "2024-04-10T11:58:00", "kp_index": 3.0},
		{"time_tag": "2024-04-10T11:59:00", "kp_index": 5.67}
	]`

	reading, err := ParseLatest([]byte(feed))
	if err != nil {
		t.Fatalf("ParseLatest failed: %v", err)
	}
	if reading.Kp != 5.67 {
		t.Errorf("Kp = %v, want 5.67 (latest entry)", reading.Kp)
	}
	want := time.Date(2024, 4, 10, 11, 59, 0, 0, time.UTC)
	if !reading.TimeTag.Equal(want) {
		t.Errorf("TimeTag = %v, want %v", reading.TimeTag, want)
	}
}

func TestParseLatestEstimatedKpField(t *testing.T) {
	feed := `[{"time_tag": "2024-04-10T12:00:00Z", "estimated_kp": 6.33}]`

	reading, err := ParseLatest([]byte(feed))
	if err != nil {
		t.Fatalf("ParseLatest failed: %v", err)
	}
	if reading.Kp != 6.33 {
		t.Errorf("Kp = %v, want 6.33", reading.Kp)
	}
}

// kp_index takes priority when both variants are present.
func TestParseLatestPrefersKpIndex(t *testing.T) {
	feed := `[{"time_tag": "2024-04-10T12:00:00Z", "kp_index": 4.0, "estimated_kp": 9.0}]`

	reading, err := ParseLatest([]byte(feed))
	if err != nil {
		t.Fatalf("ParseLatest failed: %v", err)
	}
	if reading.Kp != 4.0 {
		t.Errorf("Kp = %v, want 4.0", reading.Kp)
	}
}

func TestParseLatestRejectsBadFeeds(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"not JSON", `planetary k index`},
		{"no kp field", `[{"time_tag": "2024-04-10T12:00:00Z"}]`},
		{"bad time tag", `[{"time_tag": "noon", "kp_index": 5.0}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseLatest([]byte(tc.body)); err == nil {
				t.Error("ParseLatest returned nil error")
			}
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"time_tag": "2024-04-10T12:00:00", "kp_index": 5.33}]`))
	}))
	defer srv.Close()

	reading, err := NewFetcher(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if reading.Kp != 5.33 {
		t.Errorf("Kp = %v, want 5.33", reading.Kp)
	}
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewFetcher(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("Fetch returned nil error for 502 response")
	}
}
