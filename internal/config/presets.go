package config

// Presets are ready-made study setups, keyed by study kind then name.
var Presets = map[string]map[string]*Config{
	"optimize": {
		"pressure": {
			Objective: "cost.total_cost",
			DesignVars: []DesignVarConfig{
				{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
			},
			Constraints: []ConstraintConfig{
				{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
			},
		},
		"shell": {
			Objective: "cost.total_cost",
			DesignVars: []DesignVarConfig{
				{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
				{Name: "t", Init: 0.05, Lower: bound(0.005), Upper: bound(0.15), Unit: "m"},
			},
			Constraints: []ConstraintConfig{
				{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
				{Output: "struct.deflection", Relation: "<=", Bound: 0.04},
			},
		},
		"span": {
			Objective: "cost.total_cost",
			DesignVars: []DesignVarConfig{
				{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
				{Name: "t", Init: 0.05, Lower: bound(0.005), Upper: bound(0.15), Unit: "m"},
				{Name: "dx", Init: 100, Lower: bound(20), Upper: bound(500), Unit: "m"},
			},
			Constraints: []ConstraintConfig{
				{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
				{Output: "struct.deflection", Relation: "<=", Bound: 0.04},
				{Output: "pylon.spacing_margin", Relation: ">=", Bound: 0},
			},
		},
	},
	"sweep": {
		"leakage": {
			Objective: "cost.total_cost",
			DesignVars: []DesignVarConfig{
				{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
			},
			Constraints: []ConstraintConfig{
				{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
			},
			Sweep: SweepConfig{
				Parameter: "leakage_mass",
				Min:       1, Max: 50, Steps: 8,
				Workers: 4,
			},
		},
		"pod_mach": {
			Objective: "cost.total_cost",
			DesignVars: []DesignVarConfig{
				{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
				{Name: "t", Init: 0.05, Lower: bound(0.005), Upper: bound(0.15), Unit: "m"},
			},
			Constraints: []ConstraintConfig{
				{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
			},
			Sweep: SweepConfig{
				Parameter: "M_pod",
				Values:    []float64{0.65, 0.7, 0.75, 0.8, 0.85, 0.9},
				Workers:   4,
			},
		},
	},
}

func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	base := DefaultConfig()
	base.Objective = cfg.Objective
	base.DesignVars = cfg.DesignVars
	base.Constraints = cfg.Constraints
	base.Sweep = cfg.Sweep
	if cfg.Inputs != nil {
		base.Inputs = cfg.Inputs
	}
	return base
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	return names
}
