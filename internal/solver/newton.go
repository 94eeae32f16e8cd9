package solver

import (
	"math"

	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Newton linearizes the group residual around the current iterate and
// solves the linear system each step. Partials come from a member's
// Linearize when the whole residual belongs to one component that declares
// them, otherwise from forward differencing of the residual sweep.
type Newton struct {
	Tol     float64
	MaxIter int
	FDRel   float64
	// Backtracks bounds the step halvings tried when a full Newton step
	// grows the residual.
	Backtracks int
}

func NewNewton() *Newton {
	return &Newton{Tol: DefaultTol, MaxIter: 50, FDRel: mdo.DefaultFDRel, Backtracks: 5}
}

func (s *Newton) Solve(g *graph.Group, ext, guess mdo.Values) (mdo.Values, graph.Stats, error) {
	names := unknowns(g)
	state := seed(g, ext, guess, names)

	produced, _, resid, err := sweep(g, ext, state)
	if err != nil {
		return nil, graph.Stats{}, err
	}

	for iter := 0; ; iter++ {
		res := maxAbs(resid, names)
		if res < s.Tol {
			return finalize(produced, state), graph.Stats{Iterations: iter, MaxResidual: res, Converged: true}, nil
		}
		if iter >= s.MaxIter {
			return nil, graph.Stats{Iterations: iter, MaxResidual: res}, &mdo.SolverDivergedError{
				Iterations: iter,
				Residual:   residVector(resid, names),
				MaxAbs:     res,
			}
		}

		jac, jerr := s.jacobian(g, ext, state, resid, names)
		if jerr != nil {
			return nil, graph.Stats{Iterations: iter, MaxResidual: res}, jerr
		}

		rhs := make([]float64, len(names))
		for i, n := range names {
			rhs[i] = -resid[n]
		}
		dx, lerr := SolveDense(jac, rhs)
		if lerr != nil {
			return nil, graph.Stats{Iterations: iter, MaxResidual: res}, &mdo.SolverDivergedError{
				Iterations: iter,
				Residual:   residVector(resid, names),
				MaxAbs:     res,
			}
		}

		// Backtrack the step until the residual shrinks.
		alpha := 1.0
		for bt := 0; ; bt++ {
			trial := state.Clone()
			for i, n := range names {
				trial[n] += alpha * dx[i]
			}
			tProduced, _, tResid, terr := sweep(g, ext, trial)
			if terr == nil && maxAbs(tResid, names) < res {
				state, produced, resid = trial, tProduced, tResid
				break
			}
			if bt >= s.Backtracks {
				if terr != nil {
					return nil, graph.Stats{Iterations: iter, MaxResidual: res}, terr
				}
				// Accept the damped step anyway; divergence is caught by
				// the iteration limit.
				state, produced, resid = trial, tProduced, tResid
				break
			}
			alpha /= 2
		}
	}
}

// jacobian builds d resid / d state. The analytic path applies when the
// group's entire solver state belongs to a single implicit member that
// implements mdo.Linearizer.
func (s *Newton) jacobian(g *graph.Group, ext, state, resid mdo.Values, names []string) ([][]float64, error) {
	if jac, ok := s.analytic(g, ext, state, names); ok {
		return jac, nil
	}

	n := len(names)
	jac := make([][]float64, n)
	for i := range jac {
		jac[i] = make([]float64, n)
	}
	for col, q := range names {
		h := s.FDRel * math.Abs(state[q])
		if h < mdo.DefaultFDFloor {
			h = mdo.DefaultFDFloor
		}
		pert := state.Clone()
		pert[q] += h
		_, _, pResid, err := sweep(g, ext, pert)
		if err != nil {
			return nil, err
		}
		for row, rn := range names {
			jac[row][col] = (pResid[rn] - resid[rn]) / h
		}
	}
	return jac, nil
}

func (s *Newton) analytic(g *graph.Group, ext, state mdo.Values, names []string) ([][]float64, bool) {
	if len(g.Feedback()) != 0 {
		return nil, false
	}
	var im mdo.Implicit
	for _, m := range g.Members() {
		if c, ok := m.(mdo.Implicit); ok {
			if im != nil {
				return nil, false
			}
			im = c
		}
	}
	if im == nil {
		return nil, false
	}
	lin, ok := im.(mdo.Linearizer)
	if !ok {
		return nil, false
	}

	in, err := g.GatherInputs(im, ext, state)
	if err != nil {
		return nil, false
	}
	out := make(mdo.Values, len(im.Outputs()))
	for _, p := range im.Outputs() {
		out[p] = state[im.Name()+"."+p]
	}
	partials := lin.Linearize(in, out)

	jac := make([][]float64, len(names))
	prefix := im.Name() + "."
	for row, rn := range names {
		jac[row] = make([]float64, len(names))
		rp := partials[trimPrefix(rn, prefix)]
		if rp == nil {
			return nil, false
		}
		for col, cn := range names {
			d, ok := rp[trimPrefix(cn, prefix)]
			if !ok {
				return nil, false
			}
			jac[row][col] = d
		}
	}
	return jac, true
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
