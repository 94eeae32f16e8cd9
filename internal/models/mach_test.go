package models

import (
	"math"
	"testing"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

func TestPodMach(t *testing.T) {
	in := mdo.Values{
		"M_pod": 0.8, "gam": 1.4, "R": gasR,
		"T_tube": 292.0, "p_tube": 850.0,
		"A_pod": 1.4, "L_pod": 22.0, "mu": 1.846e-5,
	}

	u := NewPodMach()
	out, err := u.Evaluate(in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if math.Abs(out["r_tube"]-3.48) > 0.05 {
		t.Errorf("r_tube = %g, want about 3.48 m at Mach 0.8", out["r_tube"])
	}
	wantU := 0.8 * math.Sqrt(1.4*gasR*292.0)
	if math.Abs(out["U_pod"]-wantU) > 1e-6 {
		t.Errorf("U_pod = %g, want %g", out["U_pod"], wantU)
	}
	if out["Re"] <= 0 {
		t.Errorf("Re = %g, want positive", out["Re"])
	}
	if out["A_tube"] <= in["A_pod"] {
		t.Errorf("A_tube = %g must exceed the pod area", out["A_tube"])
	}
}

func TestPodMachChokesNearSonic(t *testing.T) {
	// The bypass area requirement blows up as the pod approaches Mach 1.
	u := NewPodMach()
	base := mdo.Values{
		"gam": 1.4, "R": gasR, "T_tube": 292.0, "p_tube": 850.0,
		"A_pod": 1.4, "L_pod": 22.0, "mu": 1.846e-5,
	}

	prev := 0.0
	for _, M := range []float64{0.6, 0.8, 0.95, 0.99} {
		in := base.Clone()
		in["M_pod"] = M
		out, err := u.Evaluate(in)
		if err != nil {
			t.Fatalf("M=%g: %v", M, err)
		}
		if out["A_tube"] <= prev {
			t.Errorf("A_tube at M=%g is %g, not above %g", M, out["A_tube"], prev)
		}
		prev = out["A_tube"]
	}
}

func TestAreaRatioSonic(t *testing.T) {
	// A/A* is exactly 1 at Mach 1 and grows on either side.
	if got := areaRatio(1, 1.4); math.Abs(got-1) > 1e-12 {
		t.Errorf("areaRatio(1) = %g, want 1", got)
	}
	if areaRatio(0.5, 1.4) <= 1 {
		t.Error("subsonic area ratio must exceed 1")
	}
}
