package models

import (
	"math"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// PodMach sizes the tube flow area from the pod Mach number. The bypass
// around the pod chokes as the pod approaches Mach 1 (the Kantrowitz
// limit), which drives the required tube area up sharply.
type PodMach struct{}

func NewPodMach() *PodMach { return &PodMach{} }

func (u *PodMach) Name() string { return "mach" }

func (u *PodMach) Inputs() []string {
	return []string{"M_pod", "gam", "R", "T_tube", "p_tube", "A_pod", "L_pod", "mu"}
}

func (u *PodMach) Outputs() []string {
	return []string{"A_tube", "r_tube", "U_pod", "Re"}
}

func (u *PodMach) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	gam := in["gam"]
	M := in["M_pod"]
	T := in["T_tube"]

	// A/A* from isentropic area-Mach; bypass flow must stay subsonic, so
	// continuity fixes the tube-to-bypass area split.
	f := areaRatio(M, gam)
	aTube := in["A_pod"] * f / (f - 1)

	rho := in["p_tube"] / (in["R"] * T)
	U := M * math.Sqrt(gam*in["R"]*T)

	return mdo.Values{
		"A_tube": aTube,
		"r_tube": math.Sqrt(aTube / math.Pi),
		"U_pod":  U,
		"Re":     rho * U * in["L_pod"] / in["mu"],
	}, nil
}

func areaRatio(M, gam float64) float64 {
	e := (gam + 1) / (2 * (gam - 1))
	return (1 / M) * math.Pow((2/(gam+1))*(1+(gam-1)/2*M*M), e)
}
