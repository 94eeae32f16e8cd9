package driver

import (
	"math"
)

// gradients holds forward-difference sensitivities of the objective and
// every constraint output with respect to the design variables.
type gradients struct {
	objective []float64
	cons      [][]float64 // indexed like Problem.Constraints
}

// gradients estimates sensitivities by perturbing one design variable at a
// time; a single perturbed evaluation yields all outputs at once. At an
// active bound the perturbation flips inward so the bound is never
// crossed.
func (d *Driver) gradients(p Problem, cur point, evalAt func([]float64) (point, error)) (gradients, error) {
	n := len(p.DesignVars)
	g := gradients{
		objective: make([]float64, n),
		cons:      make([][]float64, len(p.Constraints)),
	}
	for j := range g.cons {
		g.cons[j] = make([]float64, n)
	}

	for i, v := range p.DesignVars {
		h := d.FDRel * math.Abs(cur.x[i])
		if h < 1e-8 {
			h = 1e-8
		}
		if cur.x[i]+h > v.Upper {
			h = -h
		}
		if cur.x[i]+h < v.Lower {
			// Bounds tighter than the step; skip the direction entirely.
			continue
		}

		xp := append([]float64(nil), cur.x...)
		xp[i] += h
		pt, err := evalAt(xp)
		if err != nil {
			return gradients{}, err
		}

		g.objective[i] = (pt.f - cur.f) / h
		for j, c := range p.Constraints {
			g.cons[j][i] = (pt.vals[c.Output] - cur.vals[c.Output]) / h
		}
	}
	return g, nil
}
