package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
	"github.com/tubemdo/tubemdo/internal/solver"
)

const (
	DefaultSolverTol     = 1e-8
	DefaultSolverMaxIter = 200
	DefaultRelax         = 0.7
	DefaultOptTol        = 1e-6
	DefaultOptMaxIter    = 100
	DefaultFDStep        = 1e-6
	DefaultPenalty       = 1e3
)

type Config struct {
	Objective   string             `yaml:"objective"`
	DesignVars  []DesignVarConfig  `yaml:"design_vars"`
	Constraints []ConstraintConfig `yaml:"constraints"`
	Inputs      map[string]float64 `yaml:"inputs"`
	Solver      SolverConfig       `yaml:"solver"`
	Driver      DriverConfig       `yaml:"driver"`
	Sweep       SweepConfig        `yaml:"sweep"`
}

type DesignVarConfig struct {
	Name  string   `yaml:"name"`
	Init  float64  `yaml:"init"`
	Lower *float64 `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
	Unit  string   `yaml:"unit"`
}

type ConstraintConfig struct {
	Output   string  `yaml:"output"`
	Relation string  `yaml:"relation"`
	Bound    float64 `yaml:"bound"`
}

type SolverConfig struct {
	Strategy string  `yaml:"strategy"`
	Tol      float64 `yaml:"solver_tol"`
	MaxIter  int     `yaml:"max_iter"`
	Relax    float64 `yaml:"relax"`
}

type DriverConfig struct {
	Tol     float64 `yaml:"opt_tol"`
	MaxIter int     `yaml:"max_iter"`
	FDStep  float64 `yaml:"fd_step"`
	Penalty float64 `yaml:"penalty"`
}

type SweepConfig struct {
	Parameter string    `yaml:"parameter"`
	Values    []float64 `yaml:"values"`
	Min       float64   `yaml:"min"`
	Max       float64   `yaml:"max"`
	Steps     int       `yaml:"steps"`
	Workers   int       `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Objective: "cost.total_cost",
		DesignVars: []DesignVarConfig{
			{Name: "p_tube", Init: 850, Lower: bound(100), Upper: bound(20000), Unit: "Pa"},
		},
		Constraints: []ConstraintConfig{
			{Output: "struct.von_mises", Relation: "<=", Bound: 400e6 / 1.5},
			{Output: "pylon.spacing_margin", Relation: ">=", Bound: 0},
		},
		Inputs: map[string]float64{},
		Solver: SolverConfig{
			Strategy: "fixed_point",
			Tol:      DefaultSolverTol,
			MaxIter:  DefaultSolverMaxIter,
			Relax:    DefaultRelax,
		},
		Driver: DriverConfig{
			Tol:     DefaultOptTol,
			MaxIter: DefaultOptMaxIter,
			FDStep:  DefaultFDStep,
			Penalty: DefaultPenalty,
		},
	}
}

func bound(v float64) *float64 { return &v }

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildSolver picks the configured residual solver strategy.
func (c *Config) BuildSolver() (graph.Solver, error) {
	switch c.Solver.Strategy {
	case "", "fixed_point":
		s := solver.NewFixedPoint()
		if c.Solver.Tol > 0 {
			s.Tol = c.Solver.Tol
		}
		if c.Solver.MaxIter > 0 {
			s.MaxIter = c.Solver.MaxIter
		}
		if c.Solver.Relax > 0 {
			s.Relax = c.Solver.Relax
		}
		return s, nil
	case "newton":
		s := solver.NewNewton()
		if c.Solver.Tol > 0 {
			s.Tol = c.Solver.Tol
		}
		if c.Solver.MaxIter > 0 {
			s.MaxIter = c.Solver.MaxIter
		}
		return s, nil
	}
	return nil, fmt.Errorf("config: unknown solver strategy %q", c.Solver.Strategy)
}

// BuildDriver applies the driver settings over the defaults.
func (c *Config) BuildDriver() *driver.Driver {
	d := driver.New()
	if c.Driver.Tol > 0 {
		d.Tol = c.Driver.Tol
	}
	if c.Driver.MaxIter > 0 {
		d.MaxIter = c.Driver.MaxIter
	}
	if c.Driver.FDStep > 0 {
		d.FDRel = c.Driver.FDStep
	}
	if c.Driver.Penalty > 0 {
		d.Penalty = c.Driver.Penalty
	}
	return d
}

// BuildProblem converts the declared design variables and constraints
// into an optimization problem.
func (c *Config) BuildProblem() (driver.Problem, error) {
	p := driver.Problem{Objective: c.Objective}
	if c.Objective == "" {
		return p, fmt.Errorf("config: no objective set")
	}
	if len(c.DesignVars) == 0 {
		return p, fmt.Errorf("config: no design variables set")
	}
	for _, dv := range c.DesignVars {
		v := mdo.NewVariable(dv.Name, dv.Init, dv.Unit)
		if dv.Lower != nil {
			v.Lower = *dv.Lower
		}
		if dv.Upper != nil {
			v.Upper = *dv.Upper
		}
		if v.Lower > v.Upper {
			return p, fmt.Errorf("config: design var %s has lower %g above upper %g", dv.Name, v.Lower, v.Upper)
		}
		p.DesignVars = append(p.DesignVars, v)
	}
	for _, cc := range c.Constraints {
		rel, err := driver.ParseRelation(cc.Relation)
		if err != nil {
			return p, fmt.Errorf("config: constraint on %s: %w", cc.Output, err)
		}
		p.Constraints = append(p.Constraints, driver.Constraint{
			Output:   cc.Output,
			Relation: rel,
			Bound:    cc.Bound,
		})
	}
	return p, nil
}

// BaseInputs merges the config's input overrides over the given defaults.
func (c *Config) BaseInputs(defaults mdo.Values) mdo.Values {
	in := defaults.Clone()
	for k, v := range c.Inputs {
		in[k] = v
	}
	return in
}

// BuildScope assembles the run's variable scope: the merged base inputs as
// unbounded variables, then the design variables with their declared
// initial values and bounds.
func (c *Config) BuildScope(defaults mdo.Values) *mdo.Scope {
	base := c.BaseInputs(defaults)
	sc := mdo.NewScope()
	for _, name := range base.Names() {
		sc.Add(mdo.NewVariable(name, base[name], ""))
	}
	for _, dv := range c.DesignVars {
		v := mdo.NewVariable(dv.Name, dv.Init, dv.Unit)
		if dv.Lower != nil {
			v.Lower = *dv.Lower
		}
		if dv.Upper != nil {
			v.Upper = *dv.Upper
		}
		sc.Add(v)
	}
	return sc
}

// Points expands the sweep definition. Explicit values win; otherwise a
// linear range from min to max with the given number of steps.
func (s SweepConfig) Points() []float64 {
	if len(s.Values) > 0 {
		out := make([]float64, len(s.Values))
		copy(out, s.Values)
		return out
	}
	if s.Steps < 2 {
		return []float64{s.Min}
	}
	out := make([]float64, s.Steps)
	for i := range out {
		out[i] = s.Min + (s.Max-s.Min)*float64(i)/float64(s.Steps-1)
	}
	return out
}
