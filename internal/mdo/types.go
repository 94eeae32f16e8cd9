package mdo

import (
	"math"
	"sort"
)

// Values carries named scalar quantities between components.
type Values map[string]float64

func (v Values) Clone() Values {
	c := make(Values, len(v))
	for k, val := range v {
		c[k] = val
	}
	return c
}

func (v Values) IsValid() bool {
	for _, val := range v {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

// Merge copies all entries of other into v, overwriting existing keys.
func (v Values) Merge(other Values) {
	for k, val := range other {
		v[k] = val
	}
}

// Names returns the keys in sorted order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Variable is a named, unit-tagged scalar with optional bounds.
// Unset bounds are ±Inf.
type Variable struct {
	Name  string
	Value float64
	Unit  string
	Lower float64
	Upper float64
}

func NewVariable(name string, value float64, unit string) Variable {
	return Variable{
		Name:  name,
		Value: value,
		Unit:  unit,
		Lower: math.Inf(-1),
		Upper: math.Inf(1),
	}
}

func NewBounded(name string, value float64, unit string, lower, upper float64) Variable {
	return Variable{Name: name, Value: value, Unit: unit, Lower: lower, Upper: upper}
}

// Clip returns x forced into the variable's bounds.
func (v Variable) Clip(x float64) float64 {
	if x < v.Lower {
		return v.Lower
	}
	if x > v.Upper {
		return v.Upper
	}
	return x
}

func (v Variable) InBounds(x float64) bool {
	return x >= v.Lower && x <= v.Upper
}

// Scope is a registry of variables owned by a single evaluation or study.
// It is never shared between concurrent runs; Clone produces the per-run
// copy a parallel sweep needs.
type Scope struct {
	vars  map[string]*Variable
	order []string
}

func NewScope() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

func (s *Scope) Add(v Variable) {
	if _, ok := s.vars[v.Name]; !ok {
		s.order = append(s.order, v.Name)
	}
	vv := v
	s.vars[v.Name] = &vv
}

func (s *Scope) Get(name string) (Variable, bool) {
	v, ok := s.vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

// Set assigns a value, clipping it to the variable's bounds.
func (s *Scope) Set(name string, value float64) bool {
	v, ok := s.vars[name]
	if !ok {
		return false
	}
	v.Value = v.Clip(value)
	return true
}

func (s *Scope) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

func (s *Scope) Values() Values {
	out := make(Values, len(s.vars))
	for name, v := range s.vars {
		out[name] = v.Value
	}
	return out
}

func (s *Scope) Clone() *Scope {
	c := NewScope()
	for _, name := range s.order {
		c.Add(*s.vars[name])
	}
	return c
}

// Component is the common interface of analysis units and groups.
type Component interface {
	Name() string
	Inputs() []string
	Outputs() []string
}

// Explicit components map inputs directly to outputs.
type Explicit interface {
	Component
	Evaluate(in Values) (Values, error)
}

// Implicit components define their outputs through residual equations that
// a solver drives to zero. Guess supplies the starting point.
type Implicit interface {
	Component
	Guess(in Values) Values
	Residual(in, out Values) (Values, error)
}

// Linearizer is optionally implemented by components that carry analytic
// partials. Keys are output (or residual) name, then input name. Components
// without it fall back to numeric differencing.
type Linearizer interface {
	Linearize(in, out Values) map[string]map[string]float64
}

// Finite-difference defaults, overridable through config.
const (
	DefaultFDRel   = 1e-6
	DefaultFDFloor = 1e-8
)

// FDStep returns the forward-difference step for a value of magnitude x.
func FDStep(x float64) float64 {
	h := DefaultFDRel * math.Abs(x)
	if h < DefaultFDFloor {
		h = DefaultFDFloor
	}
	return h
}
