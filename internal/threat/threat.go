// Package threat defines the operator-facing threat model and the aggregator
// that merges conjunction screening results with the geomagnetic-storm check
// into one ordered list.
package threat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbit/orbitwatch/internal/geomag"
	"github.com/orbit/orbitwatch/internal/screening"
)

// Severity orders threats from low to high.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the ordering of a severity (low=0, medium=1, high=2).
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	default:
		return 0
	}
}

// Kind discriminates the two threat sources.
type Kind string

const (
	KindConjunction      Kind = "conjunction"
	KindGeomagneticStorm Kind = "geomagnetic_storm"
)

// Threat is the final operator-facing artifact. Immutable after creation;
// acknowledgement/execution state is tracked externally, keyed by ID.
type Threat struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	OccursAt        time.Time `json:"occurs_at"`
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	SuggestedAction string    `json:"suggested_action"`
}

// Config holds threat policy. The separation tier boundaries are deliberately
// independent of the threshold: relaxing the threshold to the 500 km demo
// value keeps the 5/25 km boundaries, so most flagged events land in
// low/medium. Whether boundaries should scale with threshold is an
// unresolved policy question; the values are separate knobs on purpose.
type Config struct {
	ThresholdKm   float64 // declare a conjunction threat below this (default: 100)
	HighBelowKm   float64 // separation below this is high (default: 5)
	MediumBelowKm float64 // separation below this (and >= high bound) is medium (default: 25)
	StormKp       float64 // declare a storm threat at or above this Kp (default: 5)
}

// DefaultConfig returns the operational threat policy.
func DefaultConfig() Config {
	return Config{
		ThresholdKm:   100,
		HighBelowKm:   5,
		MediumBelowKm: 25,
		StormKp:       5,
	}
}

// ClassifySeparation maps a closest-approach distance to a severity tier.
// The second return is false at or above the threshold: no threat.
func ClassifySeparation(distanceKm float64, cfg Config) (Severity, bool) {
	switch {
	case distanceKm < cfg.HighBelowKm:
		return SeverityHigh, true
	case distanceKm < cfg.MediumBelowKm:
		return SeverityMedium, true
	case distanceKm < cfg.ThresholdKm:
		return SeverityLow, true
	default:
		return "", false
	}
}

// classifyStorm maps a Kp value to a severity tier (NOAA G-scale cut-down).
// The second return is false below the storm threshold.
func classifyStorm(kp float64, cfg Config) (Severity, bool) {
	switch {
	case kp >= 7:
		return SeverityHigh, true
	case kp >= 6:
		return SeverityMedium, true
	case kp >= cfg.StormKp:
		return SeverityLow, true
	default:
		return "", false
	}
}

var conjunctionActions = map[Severity]string{
	SeverityLow:    "Monitor on subsequent screening passes.",
	SeverityMedium: "Request updated tracking for the debris object and re-screen.",
	SeverityHigh:   "Evaluate an avoidance maneuver window with operations immediately.",
}

var stormActions = map[Severity]string{
	SeverityLow:    "Monitor the Kp index; expect minor navigation degradation.",
	SeverityMedium: "Defer non-essential commanding; verify attitude-control margins.",
	SeverityHigh:   "Place satellites in safe mode posture and suspend sensitive operations.",
}

// Build merges the storm check and the conjunction results into one threat
// list. Pure, no cross-validation between the two kinds, no deduplication:
// order is insertion order — the storm entry first (when the reading is
// present and at/above the storm threshold), then one entry per conjunction
// result below the separation threshold, in input order.
//
// A nil reading (failed or absent geomagnetic fetch) simply contributes no
// storm threat; empty results contribute no conjunction threats.
func Build(results []screening.Result, reading *geomag.Reading, cfg Config) []Threat {
	var threats []Threat

	if reading != nil {
		if sev, ok := classifyStorm(reading.Kp, cfg); ok {
			threats = append(threats, Threat{
				ID:              uuid.NewString(),
				Kind:            KindGeomagneticStorm,
				OccursAt:        reading.TimeTag,
				Severity:        sev,
				Description:     fmt.Sprintf("Geomagnetic storm in progress: Kp index %.2f at %s.", reading.Kp, reading.TimeTag.UTC().Format(time.RFC3339)),
				SuggestedAction: stormActions[sev],
			})
		}
	}

	for _, res := range results {
		sev, ok := ClassifySeparation(res.MinDistanceKm, cfg)
		if !ok {
			continue
		}
		threats = append(threats, Threat{
			ID:              uuid.NewString(),
			Kind:            KindConjunction,
			OccursAt:        res.ClosestApproach,
			Severity:        sev,
			Description:     fmt.Sprintf("Predicted conjunction: %s passes within %.2f km of tracked debris at %s.", res.SatelliteName, res.MinDistanceKm, res.ClosestApproach.UTC().Format(time.RFC3339)),
			SuggestedAction: conjunctionActions[sev],
		})
	}

	return threats
}
