package solver

import (
	"fmt"
	"sort"

	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Default iteration limits shared by both strategies.
const (
	DefaultTol     = 1e-8
	DefaultMaxIter = 200
	DefaultRelax   = 0.7
)

// unknowns lists the solver state of an implicit group in deterministic
// order: every implicit member output plus every feedback-edge source.
func unknowns(g *graph.Group) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			names = append(names, q)
		}
	}
	for _, m := range g.Members() {
		if _, ok := m.(mdo.Implicit); ok {
			for _, p := range m.Outputs() {
				add(m.Name() + "." + p)
			}
		}
	}
	for _, fb := range g.Feedback() {
		add(fb.From)
	}
	sort.Strings(names)
	return names
}

// seed builds the starting state: caller guesses win, then implicit member
// Guess values, then 1.0 for explicit feedback sources.
func seed(g *graph.Group, ext, guess mdo.Values, names []string) mdo.Values {
	state := make(mdo.Values, len(names))
	for _, q := range names {
		if v, ok := ext[q]; ok {
			state[q] = v
		} else {
			state[q] = 1.0
		}
	}
	for _, m := range g.Members() {
		im, ok := m.(mdo.Implicit)
		if !ok {
			continue
		}
		in, err := g.GatherInputs(m, ext, state)
		if err != nil {
			in = ext
		}
		for k, v := range im.Guess(in) {
			state[m.Name()+"."+k] = v
		}
	}
	for k, v := range guess {
		if _, tracked := state[k]; tracked {
			state[k] = v
		}
	}
	return state
}

// sweep performs one evaluation pass over all members with the current
// state. It returns every produced output (qualified), the proposed new
// state, and the residual per unknown: implicit residuals for implicit
// outputs, iterate mismatch for feedback sources.
func sweep(g *graph.Group, ext, state mdo.Values) (produced, proposed, resid mdo.Values, err error) {
	produced = make(mdo.Values)
	proposed = make(mdo.Values, len(state))
	resid = make(mdo.Values, len(state))

	current := func() mdo.Values {
		merged := state.Clone()
		merged.Merge(produced)
		return merged
	}

	for _, m := range g.Members() {
		in, gerr := g.GatherInputs(m, ext, current())
		if gerr != nil {
			return nil, nil, nil, gerr
		}
		switch c := m.(type) {
		case mdo.Implicit:
			out := make(mdo.Values, len(m.Outputs()))
			for _, p := range m.Outputs() {
				out[p] = state[m.Name()+"."+p]
			}
			r, rerr := c.Residual(in, out)
			if rerr != nil {
				return nil, nil, nil, rerr
			}
			if err := mdo.CheckOutputs(m.Name(), r); err != nil {
				return nil, nil, nil, err
			}
			for _, p := range m.Outputs() {
				q := m.Name() + "." + p
				resid[q] = r[p]
				proposed[q] = out[p] - r[p]
				produced[q] = out[p]
			}
		case mdo.Explicit:
			out, eerr := c.Evaluate(in)
			if eerr != nil {
				return nil, nil, nil, eerr
			}
			if err := mdo.CheckOutputs(m.Name(), out); err != nil {
				return nil, nil, nil, err
			}
			for k, v := range out {
				produced[m.Name()+"."+k] = v
			}
		default:
			return nil, nil, nil, &mdo.EvalError{Component: m.Name(), Wrapped: fmt.Errorf("component is neither explicit nor implicit")}
		}
	}

	for _, fb := range g.Feedback() {
		q := fb.From
		resid[q] = produced[q] - state[q]
		proposed[q] = produced[q]
	}
	return produced, proposed, resid, nil
}

func maxAbs(v mdo.Values, names []string) float64 {
	m := 0.0
	for _, n := range names {
		r := v[n]
		if r < 0 {
			r = -r
		}
		if r > m {
			m = r
		}
	}
	return m
}

func residVector(v mdo.Values, names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = v[n]
	}
	return out
}

// finalize merges the last produced outputs with the converged state.
func finalize(produced, state mdo.Values) mdo.Values {
	out := produced.Clone()
	out.Merge(state)
	return out
}
