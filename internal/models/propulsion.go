package models

import (
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Propulsion estimates the steady cruise power overcoming aerodynamic
// drag at tube conditions. Drag scales with tube pressure through
// density, which is what trades against vacuum pumping power.
type Propulsion struct{}

func NewPropulsion() *Propulsion { return &Propulsion{} }

func (u *Propulsion) Name() string { return "prop" }

func (u *Propulsion) Inputs() []string {
	return []string{"p_tube", "T_tube", "v_pod", "Cd", "A_pod", "eta"}
}

func (u *Propulsion) Outputs() []string {
	return []string{"drag", "prop_power"}
}

func (u *Propulsion) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	rho := in["p_tube"] / (gasR * in["T_tube"])
	v := in["v_pod"]
	drag := 0.5 * rho * v * v * in["Cd"] * in["A_pod"]

	return mdo.Values{
		"drag":       drag,
		"prop_power": drag * v / in["eta"],
	}, nil
}

// TubePower totals the electrical load of the tube infrastructure.
type TubePower struct{}

func NewTubePower() *TubePower { return &TubePower{} }

func (u *TubePower) Name() string { return "power" }

func (u *TubePower) Inputs() []string {
	return []string{"vac_power", "prop_power", "cooling_power"}
}

func (u *TubePower) Outputs() []string {
	return []string{"tot_power"}
}

func (u *TubePower) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}
	return mdo.Values{
		"tot_power": in["vac_power"] + in["prop_power"] + in["cooling_power"],
	}, nil
}
