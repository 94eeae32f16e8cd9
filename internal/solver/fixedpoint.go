package solver

import (
	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// FixedPoint is a damped nonlinear Gauss-Seidel iteration: evaluate all
// members in order, feed coupled outputs back as inputs, relax toward the
// proposed state until the residual drops below Tol.
type FixedPoint struct {
	Tol     float64
	MaxIter int
	Relax   float64
}

func NewFixedPoint() *FixedPoint {
	return &FixedPoint{Tol: DefaultTol, MaxIter: DefaultMaxIter, Relax: DefaultRelax}
}

func (s *FixedPoint) Solve(g *graph.Group, ext, guess mdo.Values) (mdo.Values, graph.Stats, error) {
	names := unknowns(g)
	state := seed(g, ext, guess, names)

	for iter := 0; ; iter++ {
		produced, proposed, resid, err := sweep(g, ext, state)
		if err != nil {
			return nil, graph.Stats{Iterations: iter}, err
		}

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

		for _, q := range names {
			state[q] += s.Relax * (proposed[q] - state[q])
		}
	}
}
