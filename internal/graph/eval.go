package graph

import (
	"fmt"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Evaluate computes all member outputs for the given external inputs.
// Explicit groups run a single topological pass; implicit groups delegate
// to the attached solver. Returned values are qualified "member.output".
func (g *Group) Evaluate(in mdo.Values) (mdo.Values, error) {
	if g.implicit {
		if g.solver == nil {
			return nil, &mdo.EvalError{Component: g.name, Wrapped: mdo.ErrNoSolver}
		}
		out, _, err := g.solver.Solve(g, in, nil)
		return out, err
	}
	return g.runExplicit(in)
}

func (g *Group) runExplicit(ext mdo.Values) (mdo.Values, error) {
	produced := make(mdo.Values, len(g.outputs))
	for _, m := range g.Members() {
		in, err := g.GatherInputs(m, ext, produced)
		if err != nil {
			return nil, err
		}
		ex, ok := m.(mdo.Explicit)
		if !ok {
			// Guarded at construction; an implicit member marks the group.
			return nil, &mdo.EvalError{Component: m.Name(), Wrapped: fmt.Errorf("implicit member in explicit pass")}
		}
		out, err := ex.Evaluate(in)
		if err != nil {
			return nil, err
		}
		if err := mdo.CheckOutputs(m.Name(), out); err != nil {
			return nil, err
		}
		for k, v := range out {
			produced[m.Name()+"."+k] = v
		}
	}
	return produced, nil
}

// GatherInputs assembles a member's input map. Connected inputs read from
// state (qualified outputs produced so far, or the solver's current
// iterate); unconnected inputs read from the externals, qualified name
// first, then the bare port name shared across members, then group
// defaults.
func (g *Group) GatherInputs(m mdo.Component, ext, state mdo.Values) (mdo.Values, error) {
	in := make(mdo.Values, len(m.Inputs()))
	for _, p := range m.Inputs() {
		q := m.Name() + "." + p
		if src, wired := g.conns[q]; wired {
			if v, ok := state[src]; ok {
				in[p] = v
				continue
			}
			return nil, &mdo.EvalError{
				Component: g.name,
				Wrapped:   fmt.Errorf("%w: %s (from %s)", mdo.ErrMissingInput, q, src),
			}
		}
		if v, ok := ext[q]; ok {
			in[p] = v
			continue
		}
		if v, ok := ext[p]; ok {
			in[p] = v
			continue
		}
		if v, ok := g.defaults[q]; ok {
			in[p] = v
			continue
		}
		if v, ok := g.defaults[p]; ok {
			in[p] = v
			continue
		}
		return nil, &mdo.EvalError{
			Component: g.name,
			Wrapped:   fmt.Errorf("%w: %s", mdo.ErrMissingInput, q),
		}
	}
	return in, nil
}
