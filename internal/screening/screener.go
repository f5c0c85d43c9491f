// Package screening implements the conjunction screener: for every
// (user satellite, debris element) pair it samples positions over a bounded
// time horizon and reports the minimum pairwise distance and when it occurs.
//
// The minimum is taken over the sampled grid only. A close approach that
// falls entirely between two samples can be under-detected; this is accepted
// bounded detection latency, not refined adaptively.
//
// Cost is O(|orbits| x |debris| x horizon/step) position evaluations per
// pass. The catalog size is the scaling lever: screening an unbounded
// catalog or shrinking the step must be treated as a capacity decision, not
// absorbed silently.
package screening

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/metrics"
	"github.com/orbit/orbitwatch/internal/orbit"
	"github.com/orbit/orbitwatch/internal/propagation"
)

// Config holds screening policy. Defaults are the operational values; the
// step and horizon are fixed policy, not per-request parameters.
type Config struct {
	Horizon     time.Duration // how far ahead to screen (default: 2h)
	Step        time.Duration // sample interval (default: 5m)
	Parallelism int           // concurrent satellite scans (default: NumCPU)
}

// DefaultConfig returns the operational screening policy.
func DefaultConfig() Config {
	return Config{
		Horizon:     2 * time.Hour,
		Step:        5 * time.Minute,
		Parallelism: runtime.NumCPU(),
	}
}

// Result is the closest approach found for one user satellite across all
// debris and all sampled times. MinDistanceKm is +Inf when no debris sample
// contributed (empty catalog, or every propagation failed).
type Result struct {
	SatelliteName   string    `json:"satellite_name"`
	MinDistanceKm   float64   `json:"min_distance_km"`
	ClosestApproach time.Time `json:"closest_approach"`
}

// DebrisPropagator produces a debris position at an absolute time.
// The production implementation is the SGP4 wrapper; tests inject analytic
// propagators for exact, library-independent geometry.
type DebrisPropagator interface {
	PositionAt(t time.Time) (orbit.ECI, error)
}

// PropagatorFactory builds a propagator for one catalog element. An error
// means the element is skipped for the whole pass.
type PropagatorFactory func(el catalog.Element) (DebrisPropagator, error)

// SGP4Factory is the production factory.
func SGP4Factory(el catalog.Element) (DebrisPropagator, error) {
	return propagation.New(el.Line1, el.Line2, el.NORADID)
}

// Screener runs conjunction screening passes. Stateless between passes; a
// pass is a pure function of its inputs and the `now` it is given, so
// concurrent passes over the same inputs are safe and produce equal output.
type Screener struct {
	config  Config
	factory PropagatorFactory
	logger  *slog.Logger
}

// New creates a Screener using the SGP4 debris propagator.
func New(config Config, logger *slog.Logger) *Screener {
	return NewWithFactory(config, SGP4Factory, logger)
}

// NewWithFactory creates a Screener with a custom debris propagator factory.
func NewWithFactory(config Config, factory PropagatorFactory, logger *slog.Logger) *Screener {
	if config.Horizon <= 0 {
		config.Horizon = 2 * time.Hour
	}
	if config.Step <= 0 {
		config.Step = 5 * time.Minute
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.NumCPU()
	}
	return &Screener{config: config, factory: factory, logger: logger}
}

// debrisTrack holds one element's precomputed positions over the sample grid.
// ok[i] is false where propagation failed at sample i; that element simply
// contributes no data point at that instant.
type debrisTrack struct {
	positions []orbit.ECI
	ok        []bool
}

// Screen computes one Result per user orbit against the debris catalog over
// [now, now+horizon], sampled every step, inclusive of both endpoints.
//
// Satellites are scanned in parallel under a bounded semaphore; each scan is
// self-contained (no shared accumulator), so output order and content are
// deterministic. The first minimum encountered wins ties, which is stable
// because both the time grid and the element order are fixed.
func (s *Screener) Screen(ctx context.Context, orbits []orbit.UserOrbit, debris []catalog.Element, now time.Time) []Result {
	start := time.Now()

	steps := int(s.config.Horizon/s.config.Step) + 1
	times := make([]time.Time, steps)
	for i := range times {
		times[i] = now.Add(time.Duration(i) * s.config.Step)
	}

	tracks, propErrors, initFailures := s.propagateDebris(debris, times)

	results := make([]Result, len(orbits))
	sem := make(chan struct{}, s.config.Parallelism)
	var wg sync.WaitGroup

	for i, o := range orbits {
		wg.Add(1)
		go func(idx int, o orbit.UserOrbit) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result{SatelliteName: o.Name, MinDistanceKm: math.Inf(1)}
				return
			}

			results[idx] = scanOrbit(o, times, now, tracks)
		}(i, o)
	}

	wg.Wait()

	duration := time.Since(start)
	metrics.RecordScreening(duration, propErrors, initFailures)
	s.logger.Debug("screening pass complete",
		"satellites", len(orbits),
		"debris", len(debris),
		"samples", steps,
		"propagation_errors", propErrors,
		"init_failures", initFailures,
		"duration_ms", duration.Milliseconds(),
	)

	return results
}

// propagateDebris precomputes every element's position at every sample time.
// The table is built once and read concurrently by all satellite scans.
func (s *Screener) propagateDebris(debris []catalog.Element, times []time.Time) ([]debrisTrack, int, int) {
	tracks := make([]debrisTrack, len(debris))
	var propErrors, initFailures int

	for di, el := range debris {
		track := debrisTrack{
			positions: make([]orbit.ECI, len(times)),
			ok:        make([]bool, len(times)),
		}

		prop, err := s.factory(el)
		if err != nil {
			initFailures++
			s.logger.Warn("debris propagator init failed, skipping element for this pass",
				"name", el.Name, "norad_id", el.NORADID, "error", err)
			tracks[di] = track
			continue
		}

		for ti, t := range times {
			pos, err := prop.PositionAt(t)
			if err != nil {
				propErrors++
				continue
			}
			track.positions[ti] = pos
			track.ok[ti] = true
		}
		tracks[di] = track
	}

	return tracks, propErrors, initFailures
}

// scanOrbit finds the closest approach for one user satellite across the
// whole grid. Strictly-less comparison keeps the first minimum on ties.
func scanOrbit(o orbit.UserOrbit, times []time.Time, now time.Time, tracks []debrisTrack) Result {
	res := Result{
		SatelliteName: o.Name,
		MinDistanceKm: math.Inf(1),
	}

	for ti, t := range times {
		userPos := orbit.Position(o, t.Sub(now).Seconds())
		for di := range tracks {
			if !tracks[di].ok[ti] {
				continue
			}
			d := orbit.Distance(userPos, tracks[di].positions[ti])
			if d < res.MinDistanceKm {
				res.MinDistanceKm = d
				res.ClosestApproach = t
			}
		}
	}

	return res
}
