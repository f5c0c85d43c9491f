package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/orbit"
	"github.com/orbit/orbitwatch/internal/screening"
	"github.com/orbit/orbitwatch/internal/threat"
)

// One-shot screening check against the newest cached catalog: screens a small
// built-in demo fleet and prints the closest approaches and resulting threats.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cacheDir := os.Getenv("ORBITWATCH_CATALOG_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/tmp/orbitwatch/catalog"
	}

	data, ts, err := catalog.NewCache(cacheDir, 5).LoadLatest()
	if err != nil {
		fmt.Println("ERROR loading catalog cache:", err)
		os.Exit(1)
	}

	elements, err := catalog.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d catalog elements (cached %v)\n", len(elements), ts.Format(time.RFC3339))

	fleet := []orbit.UserOrbit{
		{Name: "DEMO-LEO", SemiMajorAxisKm: 6700, Eccentricity: 0.001, InclinationDeg: 82.5},
		{Name: "DEMO-SSO", SemiMajorAxisKm: 7078, Eccentricity: 0.0012, InclinationDeg: 98.2},
		{Name: "DEMO-GEO", SemiMajorAxisKm: 42164, Eccentricity: 0.0002, InclinationDeg: 0.1},
	}
	for _, o := range fleet {
		if err := orbit.Validate(o); err != nil {
			fmt.Println("ERROR invalid demo orbit:", err)
			os.Exit(1)
		}
	}

	now := time.Now().UTC()
	fmt.Printf("Screening start: %v\n", now.Format(time.RFC3339))

	screener := screening.New(screening.DefaultConfig(), logger)
	results := screener.Screen(context.Background(), fleet, elements, now)

	for _, res := range results {
		fmt.Printf("  %s: min distance %.2f km at %v\n",
			res.SatelliteName, res.MinDistanceKm, res.ClosestApproach.Format(time.RFC3339))
	}

	threats := threat.Build(results, nil, threat.DefaultConfig())
	fmt.Printf("\nThreats: %d\n", len(threats))
	for _, t := range threats {
		fmt.Printf("  [%s] %s — %s\n", t.Severity, t.Description, t.SuggestedAction)
	}
}
