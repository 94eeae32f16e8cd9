package models

import (
	"math"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// TubeStructural sizes the tube shell between pylons: a pressure cylinder
// under external load, carried as a simply supported beam. End effects are
// neglected.
type TubeStructural struct{}

func NewTubeStructural() *TubeStructural { return &TubeStructural{} }

func (u *TubeStructural) Name() string { return "struct" }

func (u *TubeStructural) Inputs() []string {
	return []string{
		"r", "t", "dx", "p_tube", "p_ambient",
		"rho", "E", "g", "alpha", "temp_wall", "T_ref",
		"vac_weight", "pump_spacing",
	}
}

func (u *TubeStructural) Outputs() []string {
	return []string{"von_mises", "m_per_m", "deflection", "pylon_load"}
}

func (u *TubeStructural) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	r := in["r"]
	t := in["t"]
	dx := in["dx"]
	rho := in["rho"]
	E := in["E"]
	g := in["g"]
	dP := in["p_ambient"] - in["p_tube"]

	area := math.Pi * ((r+t)*(r+t) - r*r)
	mPerM := rho * area

	// Distributed load: shell weight plus vacuum pump weight smeared over
	// the pump spacing.
	q := mPerM * g
	if in["pump_spacing"] > 0 {
		q += in["vac_weight"] * g / in["pump_spacing"]
	}

	ro := r + t
	I := (math.Pi / 4) * (math.Pow(ro, 4) - math.Pow(r, 4))
	Z := I / ro

	sigTheta := dP * r / t
	sigAxial := dP*r/(2*t) + q*dx*dx/(8*Z)
	sigAxial += E * in["alpha"] * (in["temp_wall"] - in["T_ref"])

	vonMises := math.Sqrt(0.5 * (sigAxial*sigAxial + sigTheta*sigTheta +
		(sigAxial-sigTheta)*(sigAxial-sigTheta)))

	return mdo.Values{
		"von_mises":  vonMises,
		"m_per_m":    mPerM,
		"deflection": 5 * q * math.Pow(dx, 4) / (384 * E * I),
		"pylon_load": q * dx / 2,
	}, nil
}

// PylonSpacing limits the distance between supports by Euler buckling of
// the pylon column. spacing_margin goes negative when the chosen spacing
// overloads the pylons, which is what the optimizer constrains.
type PylonSpacing struct{}

func NewPylonSpacing() *PylonSpacing { return &PylonSpacing{} }

func (u *PylonSpacing) Name() string { return "pylon" }

func (u *PylonSpacing) Inputs() []string {
	return []string{"m_per_m", "g", "E_pylon", "r_pylon", "h_pylon", "sf", "dx"}
}

func (u *PylonSpacing) Outputs() []string {
	return []string{"crit_load", "spacing_max", "spacing_margin"}
}

func (u *PylonSpacing) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	rp := in["r_pylon"]
	h := in["h_pylon"]
	Ip := (math.Pi / 4) * math.Pow(rp, 4)

	// Fixed-free column: effective length 2h.
	critLoad := math.Pi * math.Pi * in["E_pylon"] * Ip / (4 * h * h)
	allowable := critLoad / in["sf"]

	// Each pylon carries half a span on either side.
	spacingMax := allowable / (in["m_per_m"] * in["g"])

	return mdo.Values{
		"crit_load":      critLoad,
		"spacing_max":    spacingMax,
		"spacing_margin": spacingMax - in["dx"],
	}, nil
}
