package models

import (
	"github.com/tubemdo/tubemdo/internal/mdo"
)

const hoursPerYear = 8760

// TubeCost aggregates the study objective: tube material, pylon count and
// lifetime energy, all over the full route length.
type TubeCost struct{}

func NewTubeCost() *TubeCost { return &TubeCost{} }

func (u *TubeCost) Name() string { return "cost" }

func (u *TubeCost) Inputs() []string {
	return []string{
		"m_per_m", "unit_cost", "tube_length",
		"tot_power", "energy_rate", "horizon_years",
		"dx", "pylon_unit_cost",
	}
}

func (u *TubeCost) Outputs() []string {
	return []string{"materials_cost", "energy_cost", "pylon_cost", "total_cost"}
}

func (u *TubeCost) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	materials := in["unit_cost"] * in["m_per_m"] * in["tube_length"]
	energy := in["energy_rate"] * (in["tot_power"] / 1000) * hoursPerYear * in["horizon_years"]
	pylons := in["tube_length"] / in["dx"] * in["pylon_unit_cost"]

	return mdo.Values{
		"materials_cost": materials,
		"energy_cost":    energy,
		"pylon_cost":     pylons,
		"total_cost":     materials + energy + pylons,
	}, nil
}
