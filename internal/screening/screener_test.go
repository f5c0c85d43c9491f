package screening

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/orbit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var screenEpoch = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

// keplerDebris is an analytic debris propagator for tests: it drives the same
// two-body model the user-orbit side uses, so scenario geometry is exact and
// independent of the SGP4 library.
type keplerDebris struct {
	o     orbit.UserOrbit
	epoch time.Time
}

func (k keplerDebris) PositionAt(t time.Time) (orbit.ECI, error) {
	return orbit.Position(k.o, t.Sub(k.epoch).Seconds()), nil
}

// failBefore wraps a propagator, failing every instant before the cutoff.
type failBefore struct {
	inner  DebrisPropagator
	cutoff time.Time
}

func (f failBefore) PositionAt(t time.Time) (orbit.ECI, error) {
	if t.Before(f.cutoff) {
		return orbit.ECI{}, fmt.Errorf("stale element")
	}
	return f.inner.PositionAt(t)
}

// alwaysFail propagates at no instant.
type alwaysFail struct{}

func (alwaysFail) PositionAt(t time.Time) (orbit.ECI, error) {
	return orbit.ECI{}, fmt.Errorf("numerical divergence")
}

// factoryFor builds a PropagatorFactory dispatching on element name.
func factoryFor(props map[string]DebrisPropagator) PropagatorFactory {
	return func(el catalog.Element) (DebrisPropagator, error) {
		p, ok := props[el.Name]
		if !ok {
			return nil, fmt.Errorf("no propagator for %q", el.Name)
		}
		return p, nil
	}
}

func elements(names ...string) []catalog.Element {
	els := make([]catalog.Element, len(names))
	for i, n := range names {
		els[i] = catalog.Element{Name: n}
	}
	return els
}

// TestScreenEmptyDebris verifies that an empty catalog yields one result per
// user orbit with an unbounded minimum distance.
func TestScreenEmptyDebris(t *testing.T) {
	s := NewWithFactory(DefaultConfig(), factoryFor(nil), testLogger())
	orbits := []orbit.UserOrbit{
		{Name: "sat-a", SemiMajorAxisKm: 6700, Eccentricity: 0.001, InclinationDeg: 82.5},
		{Name: "sat-b", SemiMajorAxisKm: 7078, Eccentricity: 0, InclinationDeg: 98.2},
	}

	results := s.Screen(context.Background(), orbits, nil, screenEpoch)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if !math.IsInf(res.MinDistanceKm, 1) {
			t.Errorf("%s: min distance = %v, want +Inf", res.SatelliteName, res.MinDistanceKm)
		}
	}
}

// TestScreenZeroOrbits verifies that screening no satellites returns an empty
// result list regardless of catalog size.
func TestScreenZeroOrbits(t *testing.T) {
	debris := keplerDebris{
		o:     orbit.UserOrbit{Name: "d", SemiMajorAxisKm: 6800, Eccentricity: 0, InclinationDeg: 51.6},
		epoch: screenEpoch,
	}
	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())

	results := s.Screen(context.Background(), nil, elements("deb-1"), screenEpoch)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

// TestScreenNearMissScenario: a user satellite at 6700 km / e=0.001 / 82.5°
// against a debris object in a near-identical circular orbit a few km below
// it. Closest approach is at the first sample, under 5 km, within the
// horizon.
func TestScreenNearMissScenario(t *testing.T) {
	user := orbit.UserOrbit{Name: "hero", SemiMajorAxisKm: 6700, Eccentricity: 0.001, InclinationDeg: 82.5}
	debris := keplerDebris{
		o:     orbit.UserOrbit{Name: "deb", SemiMajorAxisKm: 6691, Eccentricity: 0, InclinationDeg: 82.5},
		epoch: screenEpoch,
	}

	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())
	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]

	// Perigee of the user orbit is 6700*(1-0.001) = 6693.3 km; the debris
	// sits at 6691 km in the same plane and phase, so the first sample is a
	// ~2.3 km miss and the orbits drift apart afterwards.
	if res.MinDistanceKm >= 10 {
		t.Errorf("min distance = %.3f km, want < 10 km", res.MinDistanceKm)
	}
	if res.MinDistanceKm >= 5 {
		t.Errorf("min distance = %.3f km, want < 5 km (high tier)", res.MinDistanceKm)
	}
	if !res.ClosestApproach.Equal(screenEpoch) {
		t.Errorf("closest approach = %v, want %v (first sample)", res.ClosestApproach, screenEpoch)
	}
	horizon := screenEpoch.Add(2 * time.Hour)
	if res.ClosestApproach.Before(screenEpoch) || res.ClosestApproach.After(horizon) {
		t.Errorf("closest approach %v outside horizon [%v, %v]", res.ClosestApproach, screenEpoch, horizon)
	}
}

// TestScreenGeoVersusLeo verifies geometric separation: a geostationary user
// satellite never comes near LEO debris.
func TestScreenGeoVersusLeo(t *testing.T) {
	user := orbit.UserOrbit{Name: "geo", SemiMajorAxisKm: 42164, Eccentricity: 0, InclinationDeg: 0}
	debris := keplerDebris{
		o:     orbit.UserOrbit{Name: "deb", SemiMajorAxisKm: 6800, Eccentricity: 0, InclinationDeg: 51.6},
		epoch: screenEpoch,
	}

	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())
	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)

	// The radial gap alone is ~35000 km, beyond any reasonable threshold.
	if results[0].MinDistanceKm < 30000 {
		t.Errorf("min distance = %.1f km, want >= 30000 km", results[0].MinDistanceKm)
	}
}

// TestScreenDeterminism verifies that two passes over identical inputs and
// the same `now` produce identical result sets.
func TestScreenDeterminism(t *testing.T) {
	orbits := []orbit.UserOrbit{
		{Name: "sat-a", SemiMajorAxisKm: 6700, Eccentricity: 0.001, InclinationDeg: 82.5},
		{Name: "sat-b", SemiMajorAxisKm: 7078, Eccentricity: 0.002, InclinationDeg: 98.2},
		{Name: "sat-c", SemiMajorAxisKm: 26560, Eccentricity: 0.01, InclinationDeg: 55},
	}
	props := map[string]DebrisPropagator{
		"deb-1": keplerDebris{o: orbit.UserOrbit{Name: "d1", SemiMajorAxisKm: 6705, Eccentricity: 0, InclinationDeg: 82.5}, epoch: screenEpoch},
		"deb-2": keplerDebris{o: orbit.UserOrbit{Name: "d2", SemiMajorAxisKm: 7100, Eccentricity: 0.001, InclinationDeg: 98.0}, epoch: screenEpoch},
	}
	s := NewWithFactory(DefaultConfig(), factoryFor(props), testLogger())

	debris := elements("deb-1", "deb-2")
	first := s.Screen(context.Background(), orbits, debris, screenEpoch)
	second := s.Screen(context.Background(), orbits, debris, screenEpoch)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("screening is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

// TestScreenFirstMinimumWins: debris in the identical orbit keeps a constant
// zero distance at every sample; the tie must resolve to the first sample.
func TestScreenFirstMinimumWins(t *testing.T) {
	user := orbit.UserOrbit{Name: "twin", SemiMajorAxisKm: 6900, Eccentricity: 0, InclinationDeg: 45}
	debris := keplerDebris{o: user, epoch: screenEpoch}

	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())
	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)

	res := results[0]
	if res.MinDistanceKm > 1e-9 {
		t.Errorf("min distance = %v km, want 0", res.MinDistanceKm)
	}
	if !res.ClosestApproach.Equal(screenEpoch) {
		t.Errorf("closest approach = %v, want first sample %v", res.ClosestApproach, screenEpoch)
	}
}

// TestScreenSkipsFailedInstants verifies that per-instant propagation failure
// removes only those samples: the minimum comes from the first instant the
// element propagates.
func TestScreenSkipsFailedInstants(t *testing.T) {
	user := orbit.UserOrbit{Name: "twin", SemiMajorAxisKm: 6900, Eccentricity: 0, InclinationDeg: 45}
	cutoff := screenEpoch.Add(30 * time.Minute)
	debris := failBefore{
		inner:  keplerDebris{o: user, epoch: screenEpoch},
		cutoff: cutoff,
	}

	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())
	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)

	res := results[0]
	if res.MinDistanceKm > 1e-9 {
		t.Errorf("min distance = %v km, want 0", res.MinDistanceKm)
	}
	if !res.ClosestApproach.Equal(cutoff) {
		t.Errorf("closest approach = %v, want %v (first successful sample)", res.ClosestApproach, cutoff)
	}
}

// TestScreenElementFailingEverywhere verifies that an element that never
// propagates contributes nothing and raises no error.
func TestScreenElementFailingEverywhere(t *testing.T) {
	user := orbit.UserOrbit{Name: "sat", SemiMajorAxisKm: 6900, Eccentricity: 0, InclinationDeg: 45}
	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": alwaysFail{}}), testLogger())

	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)
	if !math.IsInf(results[0].MinDistanceKm, 1) {
		t.Errorf("min distance = %v, want +Inf", results[0].MinDistanceKm)
	}
}

// TestScreenInitFailureSkipsElement verifies that a factory error skips the
// element for the whole pass without failing other elements.
func TestScreenInitFailureSkipsElement(t *testing.T) {
	user := orbit.UserOrbit{Name: "sat", SemiMajorAxisKm: 6900, Eccentricity: 0, InclinationDeg: 45}
	props := map[string]DebrisPropagator{
		// "deb-bad" is deliberately absent: the factory errors for it.
		"deb-good": keplerDebris{o: user, epoch: screenEpoch},
	}
	s := NewWithFactory(DefaultConfig(), factoryFor(props), testLogger())

	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-bad", "deb-good"), screenEpoch)
	if results[0].MinDistanceKm > 1e-9 {
		t.Errorf("min distance = %v km, want 0 from the surviving element", results[0].MinDistanceKm)
	}
}

// TestScreenGridInclusive verifies both grid endpoints are sampled: debris
// positioned to be closest exactly at now+horizon must be caught there.
func TestScreenGridInclusive(t *testing.T) {
	user := orbit.UserOrbit{Name: "sat", SemiMajorAxisKm: 6900, Eccentricity: 0, InclinationDeg: 45}
	horizonEnd := screenEpoch.Add(2 * time.Hour)
	debris := failBefore{
		inner:  keplerDebris{o: user, epoch: screenEpoch},
		cutoff: horizonEnd,
	}

	s := NewWithFactory(DefaultConfig(), factoryFor(map[string]DebrisPropagator{"deb-1": debris}), testLogger())
	results := s.Screen(context.Background(), []orbit.UserOrbit{user}, elements("deb-1"), screenEpoch)

	res := results[0]
	if math.IsInf(res.MinDistanceKm, 1) {
		t.Fatal("final grid sample was not evaluated")
	}
	if !res.ClosestApproach.Equal(horizonEnd) {
		t.Errorf("closest approach = %v, want horizon end %v", res.ClosestApproach, horizonEnd)
	}
}

// TestScreenSGP4EndToEnd runs the production SGP4 path against a real-shaped
// element near its epoch. Asserts structure and determinism rather than exact
// geometry, which belongs to the analytic tests above.
func TestScreenSGP4EndToEnd(t *testing.T) {
	const (
		line1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
		line2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
	)
	debris := []catalog.Element{{Name: "ISS (ZARYA)", NORADID: 25544, Line1: line1, Line2: line2}}
	orbits := []orbit.UserOrbit{{Name: "chaser", SemiMajorAxisKm: 6790, Eccentricity: 0.001, InclinationDeg: 51.64}}

	s := New(DefaultConfig(), testLogger())
	first := s.Screen(context.Background(), orbits, debris, screenEpoch)
	second := s.Screen(context.Background(), orbits, debris, screenEpoch)

	if len(first) != 1 {
		t.Fatalf("got %d results, want 1", len(first))
	}
	if math.IsInf(first[0].MinDistanceKm, 1) {
		t.Fatal("SGP4 element contributed no samples near its epoch")
	}
	if first[0].MinDistanceKm < 0 {
		t.Errorf("min distance = %v km, want >= 0", first[0].MinDistanceKm)
	}
	end := screenEpoch.Add(2 * time.Hour)
	if first[0].ClosestApproach.Before(screenEpoch) || first[0].ClosestApproach.After(end) {
		t.Errorf("closest approach %v outside [%v, %v]", first[0].ClosestApproach, screenEpoch, end)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("SGP4 screening is not deterministic for identical inputs")
	}
}
