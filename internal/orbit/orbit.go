// Package orbit defines the user-satellite orbit model and its analytic
// Keplerian propagator.
//
// User orbits are described by three mean elements (semi-major axis,
// eccentricity, inclination); right ascension of the ascending node and
// argument of perigee are fixed at zero. This is a known accuracy limitation
// carried deliberately: upgrading to full six-element propagation would
// change the reference geometry of every screening scenario.
package orbit

import (
	"fmt"
	"math"
)

// EarthMu is the standard gravitational parameter for Earth in km^3/s^2.
const EarthMu = 398600.4418

// EarthRadiusKm is Earth's mean radius.
const EarthRadiusKm = 6371.0

// maxEccentricity bounds the propagator's small-eccentricity approximation.
// Larger values are clamped, not rejected; the single-correction Kepler solve
// below is only valid in this range.
const maxEccentricity = 0.1

// UserOrbit holds the mean orbital elements of a user-defined satellite.
// Immutable once created; identified by Name.
type UserOrbit struct {
	Name            string  `json:"name"`
	SemiMajorAxisKm float64 `json:"semi_major_axis_km"`
	Eccentricity    float64 `json:"eccentricity"`
	InclinationDeg  float64 `json:"inclination_deg"`
}

// ECI is a position in the Earth-centered inertial frame, kilometers.
type ECI struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns the vector difference p - q.
func (p ECI) Sub(q ECI) ECI {
	return ECI{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Norm returns the Euclidean magnitude in km.
func (p ECI) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Distance returns the Euclidean distance between two positions in km.
func Distance(p, q ECI) float64 {
	return p.Sub(q).Norm()
}

// Validate checks the orbit elements against their physical domain.
// Out-of-range or non-finite values are rejected with a descriptive error;
// nothing is clamped here, so the propagator only ever sees in-domain input.
func Validate(o UserOrbit) error {
	if o.Name == "" {
		return fmt.Errorf("orbit name must not be empty")
	}
	if !isFinite(o.SemiMajorAxisKm) || !isFinite(o.Eccentricity) || !isFinite(o.InclinationDeg) {
		return fmt.Errorf("orbit %q: elements must be finite", o.Name)
	}
	if o.SemiMajorAxisKm <= EarthRadiusKm {
		return fmt.Errorf("orbit %q: semi-major axis %.1f km must exceed Earth's mean radius (%.0f km)", o.Name, o.SemiMajorAxisKm, EarthRadiusKm)
	}
	if o.Eccentricity < 0 || o.Eccentricity >= 1 {
		return fmt.Errorf("orbit %q: eccentricity %.4f outside [0, 1)", o.Name, o.Eccentricity)
	}
	if o.InclinationDeg < 0 || o.InclinationDeg > 180 {
		return fmt.Errorf("orbit %q: inclination %.2f deg outside [0, 180]", o.Name, o.InclinationDeg)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MeanMotion returns the orbit's mean motion in rad/s.
func (o UserOrbit) MeanMotion() float64 {
	a := o.SemiMajorAxisKm
	return math.Sqrt(EarthMu / (a * a * a))
}

// Period returns the orbital period (2π/n) in seconds.
func (o UserOrbit) Period() float64 {
	return 2 * math.Pi / o.MeanMotion()
}

// Position computes the satellite's ECI position after elapsedSec seconds
// past the reference epoch, in km.
//
// Kepler's equation is solved with a single first-order correction
// E = M + e·sin(M) rather than an iterative Newton-Raphson solve. This is a
// deliberate fidelity/performance shortcut, valid for e < 0.1 and horizons of
// a few hours; replacing it with a converged solve would silently shift
// expected screening output. Ascending node and argument of perigee are held
// at zero (see package doc). Always returns a finite triple for validated
// input.
func Position(o UserOrbit, elapsedSec float64) ECI {
	e := o.Eccentricity
	if e < 0 {
		e = 0
	} else if e > maxEccentricity {
		e = maxEccentricity
	}
	incl := o.InclinationDeg * math.Pi / 180

	a := o.SemiMajorAxisKm
	n := math.Sqrt(EarthMu / (a * a * a))
	meanAnomaly := n * elapsedSec
	eccAnomaly := meanAnomaly + e*math.Sin(meanAnomaly)

	// Orbital-plane coordinates.
	xOp := a * (math.Cos(eccAnomaly) - e)
	yOp := a * math.Sqrt(1-e*e) * math.Sin(eccAnomaly)

	// Rotate by inclination only.
	return ECI{
		X: xOp,
		Y: yOp * math.Cos(incl),
		Z: yOp * math.Sin(incl),
	}
}
