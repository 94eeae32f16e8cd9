package models

import (
	"math"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Air-equivalent reference conditions for pump sizing.
const (
	airMW    = 28.96
	refTempK = 293.15
	gasR     = 287.058
	paToTorr = 0.00750062
)

// VacuumPump sizes the pumps holding tube pressure against ambient
// leakage. The leakage is a mass inflow, so the volumetric load at the
// pump inlet grows as tube pressure drops; power follows a rotary-piston
// pump size-factor correlation.
type VacuumPump struct{}

func NewVacuumPump() *VacuumPump { return &VacuumPump{} }

func (u *VacuumPump) Name() string { return "vacuum" }

func (u *VacuumPump) Inputs() []string {
	return []string{"p_tube", "p_ambient", "T_gas", "MW", "leakage_mass"}
}

func (u *VacuumPump) Outputs() []string {
	return []string{"flow_volume", "pump_power", "pump_weight", "pumpdown_energy"}
}

func (u *VacuumPump) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.RequireInputs(u.Name(), in, u.Inputs()); err != nil {
		return nil, err
	}

	p := in["p_tube"]
	T := in["T_gas"]
	leak := in["leakage_mass"] // kg/hr

	rho := p / (gasR * T)
	flowVolume := leak / rho // m^3/hr at the pump inlet

	// Air-equivalent flow rate, then pump size factor in kg/h/torr.
	mEq := leak * math.Sqrt(T*airMW/(refTempK*in["MW"]))
	sf := mEq / (p * paToTorr)

	powerKW := 13.5 * math.Pow(sf, 1.088)

	// Isothermal pump-down work per cubic meter of tube volume.
	pumpdown := in["p_ambient"] * math.Log(in["p_ambient"]/p)

	return mdo.Values{
		"flow_volume":     flowVolume,
		"pump_power":      powerKW * 1000, // W
		"pump_weight":     65 * powerKW,   // kg, rough rotary-piston scaling
		"pumpdown_energy": pumpdown,       // J/m^3
	}, nil
}
