// Package propagation wraps the SGP4 debris propagator. The library is
// treated as an external black box with a narrow contract: element lines in,
// ECI position out, with failure surfaced as an error rather than a panic.
package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orbit/orbitwatch/internal/orbit"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go (no CGO), widely adopted, battle-tested since 2016. Propagate()
// takes Satellite by value so SGP4 error codes are not visible to the caller;
// failures are detected by checking output for NaN/Inf and implausible
// position magnitudes.

// Plausible geocentric distance bounds for tracked objects, km. Output
// outside this range is treated as numerical divergence (stale elements).
const (
	minPlausibleKm = 6200.0
	maxPlausibleKm = 50000.0
)

// SGP4 propagates a single debris element.
type SGP4 struct {
	sat     satellite.Satellite
	noradID int
}

// New creates an SGP4 propagator from element lines.
//
// The lines are pre-validated before reaching the library, because
// go-satellite calls log.Fatal on malformed input (which would kill the
// process).
func New(line1, line2 string, noradID int) (*SGP4, error) {
	if err := validateLines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid element for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4{sat: sat, noradID: noradID}, nil
}

// validateLines performs basic format validation on element lines.
func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// PositionAt computes the debris position at the given absolute time, in km,
// ECI frame. A failed propagation (NaN/Inf output or implausible magnitude)
// returns an error; the caller treats it as a missing data point.
func (p *SGP4) PositionAt(t time.Time) (orbit.ECI, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return orbit.ECI{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < minPlausibleKm || mag > maxPlausibleKm {
		return orbit.ECI{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return orbit.ECI{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}
