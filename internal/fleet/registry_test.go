package fleet

import (
	"testing"

	"github.com/orbit/orbitwatch/internal/orbit"
)

func validOrbit(name string) orbit.UserOrbit {
	return orbit.UserOrbit{Name: name, SemiMajorAxisKm: 6700, Eccentricity: 0.001, InclinationDeg: 82.5}
}

func TestAddAndList(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Add(validOrbit(name)); err != nil {
			t.Fatalf("Add(%s) failed: %v", name, err)
		}
	}

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("List returned %d orbits, want 3", len(got))
	}
	// Sorted by name for stable screening order.
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("List[%d].Name = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	r := NewRegistry()

	bad := orbit.UserOrbit{Name: "sunken", SemiMajorAxisKm: 6000, Eccentricity: 0, InclinationDeg: 0}
	if err := r.Add(bad); err == nil {
		t.Fatal("Add accepted an orbit below Earth's radius")
	}
	if r.Len() != 0 {
		t.Errorf("registry holds %d orbits after rejected add, want 0", r.Len())
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Add(validOrbit("sat")); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := r.Add(validOrbit("sat")); err == nil {
		t.Fatal("Add accepted a duplicate name")
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(validOrbit("sat"))

	if err := r.Remove("sat"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := r.Remove("sat"); err == nil {
		t.Fatal("Remove of a missing orbit returned nil error")
	}
	if _, ok := r.Get("sat"); ok {
		t.Error("orbit still present after Remove")
	}
}

// TestImportPartial: the batch continues past rejected entries, reporting each.
func TestImportPartial(t *testing.T) {
	r := NewRegistry()
	r.Add(validOrbit("existing"))

	res := r.Import([]orbit.UserOrbit{
		validOrbit("new-1"),
		{Name: "bad-ecc", SemiMajorAxisKm: 7000, Eccentricity: 1.5, InclinationDeg: 0},
		validOrbit("existing"), // duplicate
		validOrbit("new-2"),
	})

	if res.Added != 2 {
		t.Errorf("Added = %d, want 2", res.Added)
	}
	if len(res.Rejected) != 2 {
		t.Errorf("Rejected = %v, want 2 entries", res.Rejected)
	}
	if r.Len() != 3 {
		t.Errorf("registry holds %d orbits, want 3", r.Len())
	}
}
