package driver

import (
	"context"
	"fmt"
	"math"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Relation compares a constraint output against its bound.
type Relation int

const (
	LessEqual Relation = iota
	GreaterEqual
	Equal
)

func (r Relation) String() string {
	switch r {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	}
	return "?"
}

// ParseRelation reads the textual form used in study configs.
func ParseRelation(s string) (Relation, error) {
	switch s {
	case "<=", "le":
		return LessEqual, nil
	case ">=", "ge":
		return GreaterEqual, nil
	case "=", "==", "eq":
		return Equal, nil
	}
	return 0, fmt.Errorf("driver: unknown relation %q", s)
}

// Constraint bounds one evaluated output.
type Constraint struct {
	Output   string
	Relation Relation
	Bound    float64
}

// Violation is how far val sits on the wrong side of the bound; zero when
// satisfied. A value exactly at the bound is feasible.
func (c Constraint) Violation(val float64) float64 {
	switch c.Relation {
	case LessEqual:
		return math.Max(0, val-c.Bound)
	case GreaterEqual:
		return math.Max(0, c.Bound-val)
	default:
		return math.Abs(val - c.Bound)
	}
}

// Problem is one constrained minimization: adjust the design variables
// within their bounds to minimize the objective output subject to the
// constraints.
type Problem struct {
	DesignVars  []mdo.Variable
	Objective   string
	Constraints []Constraint
}

// EvalFunc evaluates the underlying group at a design point. Keys of x are
// design variable names; the returned values must contain the objective
// and every constraint output.
type EvalFunc func(x mdo.Values) (mdo.Values, error)

// Result records one converged (or abandoned) optimization.
type Result struct {
	X           map[string]float64 `json:"x"`
	Objective   float64            `json:"objective"`
	Constraints map[string]float64 `json:"constraints,omitempty"`
	Violation   float64            `json:"violation"`
	Converged   bool               `json:"converged"`
	Iterations  int                `json:"iterations"`
	Evaluations int                `json:"evaluations"`
}

// Driver is a sequential constrained minimizer: finite-difference
// gradients, descent along linearized constraints, Gauss-Newton
// feasibility restoration, backtracking line search on an exact-penalty
// merit function.
type Driver struct {
	Tol     float64
	MaxIter int
	FDRel   float64
	// Penalty weights constraint violation in the merit function.
	Penalty float64
}

func New() *Driver {
	return &Driver{Tol: 1e-6, MaxIter: 100, FDRel: mdo.DefaultFDRel, Penalty: 1e3}
}

// point is one evaluated design point.
type point struct {
	x    []float64
	vals mdo.Values
	f    float64
	viol float64
}

// Optimize runs the outer loop. Cancellation is honored between
// iterations. On failure the error is *mdo.OptimizationFailedError and the
// returned Result still holds the best point found.
func (d *Driver) Optimize(ctx context.Context, p Problem, eval EvalFunc) (Result, error) {
	n := len(p.DesignVars)
	if n == 0 {
		return Result{}, fmt.Errorf("driver: problem has no design variables")
	}

	evals := 0
	evalAt := func(x []float64) (point, error) {
		vals, err := eval(d.toValues(p, x))
		evals++
		if err != nil {
			return point{}, err
		}
		f, ok := vals[p.Objective]
		if !ok {
			return point{}, fmt.Errorf("%w: objective %s", mdo.ErrUnknownOutput, p.Objective)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return point{}, &mdo.EvalError{Component: "driver", Wrapped: mdo.ErrNumericDomain}
		}
		pt := point{x: append([]float64(nil), x...), vals: vals, f: f}
		for _, c := range p.Constraints {
			v, ok := vals[c.Output]
			if !ok {
				return point{}, fmt.Errorf("%w: constraint %s", mdo.ErrUnknownOutput, c.Output)
			}
			pt.viol = math.Max(pt.viol, c.Violation(v))
		}
		return pt, nil
	}

	x := make([]float64, n)
	for i, v := range p.DesignVars {
		x[i] = v.Clip(v.Value)
	}

	cur, err := evalAt(x)
	if err != nil {
		return Result{}, err
	}
	best := cur

	iter := 0
	for ; iter < d.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return d.result(p, best, iter, evals, false), err
		}

		grads, gerr := d.gradients(p, cur, evalAt)
		if gerr != nil {
			return d.result(p, best, iter, evals, false), gerr
		}

		dir := d.direction(p, cur, grads)
		if maxAbsVec(dir) < d.Tol && cur.viol <= d.Tol {
			return d.result(p, cur, iter, evals, true), nil
		}

		next, moved, serr := d.lineSearch(p, cur, dir, grads, evalAt)
		if serr != nil {
			return d.result(p, best, iter, evals, false), serr
		}

		if better(next, best) {
			best = next
		}

		step := relStep(cur.x, next.x)
		cur = next
		if !moved {
			if cur.viol <= d.Tol {
				return d.result(p, cur, iter+1, evals, true), nil
			}
			break
		}
		if step < d.Tol && cur.viol <= d.Tol {
			return d.result(p, cur, iter+1, evals, true), nil
		}
	}

	res := d.result(p, best, iter, evals, false)
	return res, &mdo.OptimizationFailedError{
		Iterations: iter,
		Best:       res.X,
		Objective:  best.f,
		Violation:  best.viol,
	}
}

func (d *Driver) toValues(p Problem, x []float64) mdo.Values {
	out := make(mdo.Values, len(x))
	for i, v := range p.DesignVars {
		out[v.Name] = x[i]
	}
	return out
}

func (d *Driver) result(p Problem, pt point, iters, evals int, converged bool) Result {
	r := Result{
		X:           make(map[string]float64, len(pt.x)),
		Objective:   pt.f,
		Constraints: make(map[string]float64, len(p.Constraints)),
		Violation:   pt.viol,
		Converged:   converged,
		Iterations:  iters,
		Evaluations: evals,
	}
	for i, v := range p.DesignVars {
		r.X[v.Name] = pt.x[i]
	}
	for _, c := range p.Constraints {
		r.Constraints[c.Output] = pt.vals[c.Output]
	}
	return r
}

// better prefers feasible points by objective, infeasible ones by
// violation.
func better(a, b point) bool {
	feasA, feasB := a.viol <= 1e-6, b.viol <= 1e-6
	switch {
	case feasA && !feasB:
		return true
	case !feasA && feasB:
		return false
	case feasA:
		return a.f < b.f
	default:
		return a.viol < b.viol
	}
}

func relStep(from, to []float64) float64 {
	s := 0.0
	for i := range from {
		den := math.Max(1, math.Abs(from[i]))
		s = math.Max(s, math.Abs(to[i]-from[i])/den)
	}
	return s
}

func maxAbsVec(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
