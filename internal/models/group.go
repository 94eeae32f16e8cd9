package models

import (
	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// BuildTubeGroup wires the full tube system: pod Mach fixes the tube
// area, the wall temperature balance feeds propulsion and thermal stress,
// vacuum and propulsion power roll up through total power into cost. The
// wall temperature makes the group implicit, so a solver is required.
func BuildTubeGroup(s graph.Solver) (*graph.Group, error) {
	members := []mdo.Component{
		NewPodMach(),
		NewVacuumPump(),
		NewTubeWallTemp(),
		NewPropulsion(),
		NewTubeStructural(),
		NewPylonSpacing(),
		NewTubePower(),
		NewTubeCost(),
	}

	conns := []graph.Connection{
		{To: "temp.r", From: "mach.r_tube"},
		{To: "struct.r", From: "mach.r_tube"},
		{To: "prop.T_tube", From: "temp.temp_boundary"},
		{To: "struct.temp_wall", From: "temp.temp_boundary"},
		{To: "struct.vac_weight", From: "vacuum.pump_weight"},
		{To: "power.vac_power", From: "vacuum.pump_power"},
		{To: "power.prop_power", From: "prop.prop_power"},
		{To: "pylon.m_per_m", From: "struct.m_per_m"},
		{To: "cost.m_per_m", From: "struct.m_per_m"},
		{To: "cost.tot_power", From: "power.tot_power"},
	}

	return graph.New("tube", members, conns,
		graph.WithSolver(s),
		graph.WithDefaults(DefaultInputs()),
	)
}

// DefaultInputs holds the study constants: standard air, steel shell,
// alpha-paper-scale pod and route. Shared names (p_tube, dx, A_pod, g)
// reach every member that declares them.
func DefaultInputs() mdo.Values {
	return mdo.Values{
		// Pod and flow.
		"M_pod": 0.8,
		"gam":   1.4,
		"R":     gasR,
		"A_pod": 1.4,
		"L_pod": 22.0,
		"mu":    1.846e-5,
		"v_pod": 270.0,
		"Cd":    0.3,
		"eta":   0.8,

		// Tube environment.
		"p_tube":    850.0,
		"p_ambient": 101325.0,
		"T_tube":    292.0,
		"T_gas":     291.11,
		"T_ambient": 293.0,
		"T_ref":     293.0,
		"MW":        28.96, // g/mol, matches the pump correlation reference

		// Leakage and pumping.
		"leakage_mass": 10.0,
		"pump_spacing": 1000.0,

		// Thermal balance.
		"solar_flux":   900.0,
		"absorptivity": 0.5,
		"emissivity":   0.8,
		"h_conv":       4.0,
		"q_internal":   50.0,

		// Steel shell and pylons.
		"t":       0.05,
		"dx":      100.0,
		"rho":     7820.0,
		"E":       200e9,
		"alpha":   1.2e-5,
		"g":       9.81,
		"E_pylon": 200e9,
		"r_pylon": 0.5,
		"h_pylon": 10.0,
		"sf":      1.5,

		// Power and cost.
		"cooling_power":   0.0,
		"unit_cost":       1.2,
		"tube_length":     600000.0,
		"energy_rate":     0.13,
		"horizon_years":   20.0,
		"pylon_unit_cost": 50000.0,
	}
}

// StudyScope registers the base inputs as unbounded variables in a fresh
// scope. Callers add or rebind design variables on top of it.
func StudyScope(in mdo.Values) *mdo.Scope {
	sc := mdo.NewScope()
	for _, name := range in.Names() {
		sc.Add(mdo.NewVariable(name, in[name], ""))
	}
	return sc
}

// Evaluator adapts a group to the driver. Every call clones the scope, so
// candidate designs never leak between evaluations or parallel studies,
// and assignments respect the scope's variable bounds.
func Evaluator(g *graph.Group, sc *mdo.Scope) driver.EvalFunc {
	return func(x mdo.Values) (mdo.Values, error) {
		run := sc.Clone()
		for _, name := range x.Names() {
			if !run.Set(name, x[name]) {
				run.Add(mdo.NewVariable(name, x[name], ""))
			}
		}
		return g.Evaluate(run.Values())
	}
}

// BuildPressureTradeGroup prepares the pressure-vs-leakage trade: a fresh
// tube group at the given leakage rate with the one-variable problem
// minimizing lifetime cost over tube pressure. Pumping power rises as the
// pressure drops, drag power rises with it, so the optimum is interior and
// moves up with leakage.
func BuildPressureTradeGroup(s graph.Solver, leakage float64) (*graph.Group, driver.Problem, driver.EvalFunc, error) {
	g, err := BuildTubeGroup(s)
	if err != nil {
		return nil, driver.Problem{}, nil, err
	}

	base := DefaultInputs()
	base["leakage_mass"] = leakage

	sc := StudyScope(base)
	prob := driver.Problem{
		DesignVars: []mdo.Variable{mdo.NewBounded("p_tube", base["p_tube"], "Pa", 100, 20000)},
		Objective:  "cost.total_cost",
	}
	return g, prob, Evaluator(g, sc), nil
}
