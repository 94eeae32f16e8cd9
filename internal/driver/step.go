package driver

import (
	"math"

	"github.com/tubemdo/tubemdo/internal/solver"
)

// direction picks the search direction for one outer iteration. An
// infeasible point gets a Gauss-Newton restoration step toward the
// violated constraints; a feasible one gets steepest descent projected
// onto the linearized active constraints. Components pushing a variable
// past its bound are zeroed.
func (d *Driver) direction(p Problem, cur point, g gradients) []float64 {
	n := len(cur.x)

	var dir []float64
	if cur.viol > d.Tol {
		dir = d.restoration(p, cur, g)
	} else {
		dir = make([]float64, n)
		for i := range dir {
			dir[i] = -g.objective[i]
		}
		dir = d.project(p, cur, g, dir)
	}

	for i, v := range p.DesignVars {
		atLower := cur.x[i] <= v.Lower && dir[i] < 0
		atUpper := cur.x[i] >= v.Upper && dir[i] > 0
		if atLower || atUpper {
			dir[i] = 0
		}
	}
	return dir
}

// restoration is a Gauss-Newton step minimizing the violated-constraint
// residual: d = -Aᵀ(AAᵀ)⁻¹ c with A the signed constraint Jacobian.
func (d *Driver) restoration(p Problem, cur point, g gradients) []float64 {
	n := len(cur.x)
	var rows [][]float64
	var res []float64
	for j, c := range p.Constraints {
		v := c.Violation(cur.vals[c.Output])
		if v <= d.Tol {
			continue
		}
		row := append([]float64(nil), g.cons[j]...)
		if c.Relation == GreaterEqual || (c.Relation == Equal && cur.vals[c.Output] < c.Bound) {
			for i := range row {
				row[i] = -row[i]
			}
		}
		rows = append(rows, row)
		res = append(res, v)
	}
	if len(rows) == 0 {
		return make([]float64, n)
	}

	m := len(rows)
	aat := make([][]float64, m)
	rhs := make([]float64, m)
	for i := range rows {
		aat[i] = make([]float64, m)
		for j := range rows {
			aat[i][j] = dot(rows[i], rows[j])
		}
		rhs[i] = res[i]
	}

	lam, err := solver.SolveDense(aat, rhs)
	dir := make([]float64, n)
	if err != nil {
		// Degenerate Jacobian: fall back to a plain gradient step on the
		// violation.
		for i := range rows {
			for k := 0; k < n; k++ {
				dir[k] -= rows[i][k] * res[i]
			}
		}
		return dir
	}
	for i := range rows {
		for k := 0; k < n; k++ {
			dir[k] -= rows[i][k] * lam[i]
		}
	}
	return dir
}

// project removes from dir the components along active constraint
// gradients (always for equalities, only when the step would leave the
// feasible side for inequalities), via modified Gram-Schmidt.
func (d *Driver) project(p Problem, cur point, g gradients, dir []float64) []float64 {
	activeTol := math.Max(d.Tol, 1e-9)
	var basis [][]float64

	for j, c := range p.Constraints {
		grad := g.cons[j]
		val := cur.vals[c.Output]
		active := false
		switch c.Relation {
		case Equal:
			active = true
		case LessEqual:
			active = val >= c.Bound-activeTol && dot(dir, grad) > 0
		case GreaterEqual:
			active = val <= c.Bound+activeTol && dot(dir, grad) < 0
		}
		if !active {
			continue
		}

		v := append([]float64(nil), grad...)
		for _, b := range basis {
			axpy(v, -dot(v, b), b)
		}
		norm := math.Sqrt(dot(v, v))
		if norm < 1e-12 {
			continue
		}
		for i := range v {
			v[i] /= norm
		}
		basis = append(basis, v)
		axpy(dir, -dot(dir, v), v)
	}
	return dir
}

// lineSearch walks along dir with backtracking and greedy expansion on an
// exact-penalty merit function, clipping every trial to the variable
// bounds. moved is false when no trial improved on cur.
func (d *Driver) lineSearch(p Problem, cur point, dir []float64, g gradients, evalAt func([]float64) (point, error)) (point, bool, error) {
	merit := func(pt point) float64 { return pt.f + d.Penalty*pt.viol }

	// Initial step: largest component moves about 25% of its magnitude.
	alpha := math.Inf(1)
	for i := range dir {
		if dir[i] == 0 {
			continue
		}
		a := 0.25 * math.Max(1, math.Abs(cur.x[i])) / math.Abs(dir[i])
		alpha = math.Min(alpha, a)
	}
	if math.IsInf(alpha, 1) {
		return cur, false, nil
	}

	trial := func(a float64) (point, error) {
		x := make([]float64, len(cur.x))
		for i, v := range p.DesignVars {
			x[i] = v.Clip(cur.x[i] + a*dir[i])
		}
		return evalAt(x)
	}

	m0 := merit(cur)
	var lastErr error

	// Backtrack until something beats the current merit. Evaluation errors
	// count as failed trials; they only surface when every trial failed.
	var accepted point
	found := false
	evaluated := false
	for bt := 0; bt < 30; bt++ {
		pt, err := trial(alpha)
		if err != nil {
			lastErr = err
			alpha /= 2
			continue
		}
		evaluated = true
		if merit(pt) < m0 {
			accepted = pt
			found = true
			break
		}
		alpha /= 2
	}
	if !found {
		if !evaluated && lastErr != nil {
			return cur, false, lastErr
		}
		return cur, false, nil
	}

	// Expand while the merit keeps dropping.
	for ex := 0; ex < 20; ex++ {
		pt, err := trial(alpha * 2)
		if err != nil || merit(pt) >= merit(accepted) {
			break
		}
		alpha *= 2
		accepted = pt
	}
	return accepted, true, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func axpy(dst []float64, a float64, v []float64) {
	for i := range dst {
		dst[i] += a * v[i]
	}
}
