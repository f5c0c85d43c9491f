package catalog

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"

	debrisLine1 = "1 34454U 93036SX  24100.25000000  .00001000  00000-0  10000-3 0  9992"
	debrisLine2 = "2 34454  74.0000 200.0000 0010000  90.0000 270.0000 14.30000000    04"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseValidFeed(t *testing.T) {
	feed := strings.Join([]string{
		"ISS (ZARYA)",
		issLine1,
		issLine2,
		"COSMOS 2251 DEB",
		debrisLine1,
		debrisLine2,
	}, "\n")

	elements, err := Parse(strings.NewReader(feed), testLogger())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("parsed %d elements, want 2", len(elements))
	}

	first := elements[0]
	if first.Name != "ISS (ZARYA)" {
		t.Errorf("name = %q, want %q", first.Name, "ISS (ZARYA)")
	}
	if first.NORADID != 25544 {
		t.Errorf("NORAD ID = %d, want 25544", first.NORADID)
	}
	if first.Line1 != issLine1 || first.Line2 != issLine2 {
		t.Error("element lines were not preserved verbatim")
	}

	// Epoch 24100.5 = 2024 day 100.5 = April 9, 12:00 UTC.
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !first.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", first.Epoch, wantEpoch)
	}
}

// TestParseSkipsMalformedGroups verifies the ingestion boundary contract:
// groups whose element lines lack the literal "1 "/"2 " markers are skipped,
// not fatal, and parsing resumes at the next valid group.
func TestParseSkipsMalformedGroups(t *testing.T) {
	feed := strings.Join([]string{
		"BROKEN OBJECT",
		"X " + issLine1[2:],
		issLine2,
		"ISS (ZARYA)",
		issLine1,
		issLine2,
	}, "\n")

	elements, err := Parse(strings.NewReader(feed), testLogger())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("parsed %d elements, want 1", len(elements))
	}
	if elements[0].NORADID != 25544 {
		t.Errorf("surviving element NORAD ID = %d, want 25544", elements[0].NORADID)
	}
}

func TestParseEmptyFeed(t *testing.T) {
	elements, err := Parse(strings.NewReader(""), testLogger())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("parsed %d elements from empty feed, want 0", len(elements))
	}
}

func TestParseEpochCentury(t *testing.T) {
	// Year 57 and above belongs to the 1900s.
	epoch, err := parseEpoch("57001.00000000")
	if err != nil {
		t.Fatalf("parseEpoch failed: %v", err)
	}
	if epoch.Year() != 1957 {
		t.Errorf("epoch year = %d, want 1957", epoch.Year())
	}

	epoch, err = parseEpoch("56001.00000000")
	if err != nil {
		t.Fatalf("parseEpoch failed: %v", err)
	}
	if epoch.Year() != 2056 {
		t.Errorf("epoch year = %d, want 2056", epoch.Year())
	}
}

func TestNewDatasetEpochRange(t *testing.T) {
	early := time.Date(2024, 4, 9, 6, 0, 0, 0, time.UTC)
	late := time.Date(2024, 4, 9, 18, 0, 0, 0, time.UTC)

	ds := NewDataset("test", time.Now(), []Element{
		{Name: "a", Epoch: late},
		{Name: "b", Epoch: early},
	})

	if !ds.EpochRange.Min.Equal(early) {
		t.Errorf("epoch min = %v, want %v", ds.EpochRange.Min, early)
	}
	if !ds.EpochRange.Max.Equal(late) {
		t.Errorf("epoch max = %v, want %v", ds.EpochRange.Max, late)
	}
}
