package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tubemdo/tubemdo/internal/mdo"
)

// Connection routes one member's output into another member's input.
// Both ends are qualified as "member.port".
type Connection struct {
	To   string
	From string
}

// Group composes analysis components into one evaluable unit. Members are
// wired by connections; unconnected member inputs become the group's
// external inputs and every member output is exposed qualified by the
// member name.
type Group struct {
	name        string
	members     []mdo.Component
	byName      map[string]mdo.Component
	conns       map[string]string // qualified input -> qualified output
	order       []string          // member evaluation order
	implicit    bool
	solver      Solver
	inputs      []string
	outputs     []string
	feedback    []Connection // cycle-closing connections, implicit groups only
	defaults    mdo.Values   // external input defaults, unqualified names allowed
}

// Stats reports what an implicit solve did.
type Stats struct {
	Iterations  int
	MaxResidual float64
	Converged   bool
}

// Solver drives an implicit group's residuals to zero.
type Solver interface {
	Solve(g *Group, external mdo.Values, guess mdo.Values) (mdo.Values, Stats, error)
}

// Option configures a group at construction.
type Option func(*Group)

// ForceImplicit marks the group implicit even without cycles or implicit
// members, so a solver handles it.
func ForceImplicit() Option {
	return func(g *Group) { g.implicit = true }
}

// WithSolver attaches the solver used when the group is implicit.
func WithSolver(s Solver) Option {
	return func(g *Group) { g.solver = s }
}

// WithDefaults supplies fallback values for external inputs. Keys may be
// qualified ("member.port") or bare port names shared by several members.
func WithDefaults(defaults mdo.Values) Option {
	return func(g *Group) { g.defaults = defaults.Clone() }
}

// New assembles and validates a group. Connection endpoints must exist on
// the named members, and a cycle among members is an error unless some
// member is implicit or ForceImplicit is given.
func New(name string, members []mdo.Component, conns []Connection, opts ...Option) (*Group, error) {
	g := &Group{
		name:   name,
		byName: make(map[string]mdo.Component, len(members)),
		conns:  make(map[string]string, len(conns)),
	}

	for _, m := range members {
		if strings.Contains(m.Name(), ".") {
			return nil, fmt.Errorf("graph: member name %q must not contain '.'", m.Name())
		}
		if _, dup := g.byName[m.Name()]; dup {
			return nil, fmt.Errorf("graph: duplicate member %q in group %q", m.Name(), name)
		}
		g.byName[m.Name()] = m
		g.members = append(g.members, m)
		if _, ok := m.(mdo.Implicit); ok {
			g.implicit = true
		}
		if sub, ok := m.(*Group); ok && sub.implicit && sub.solver == nil {
			return nil, fmt.Errorf("graph: implicit sub-group %q needs its own solver", sub.name)
		}
	}

	for _, o := range opts {
		o(g)
	}

	for _, c := range conns {
		if err := g.checkEndpoint(c.From, false); err != nil {
			return nil, err
		}
		if err := g.checkEndpoint(c.To, true); err != nil {
			return nil, err
		}
		if prev, dup := g.conns[c.To]; dup {
			return nil, fmt.Errorf("graph: input %s connected twice (%s and %s)", c.To, prev, c.From)
		}
		g.conns[c.To] = c.From
	}

	if err := g.resolveOrder(conns); err != nil {
		return nil, err
	}
	g.resolveInterface()
	return g, nil
}

func (g *Group) checkEndpoint(ref string, isInput bool) error {
	member, port, ok := splitRef(ref)
	if !ok {
		return fmt.Errorf("graph: malformed connection endpoint %q", ref)
	}
	m, found := g.byName[member]
	if !found {
		return fmt.Errorf("graph: connection references unknown member %q", member)
	}
	ports := m.Outputs()
	sentinel := mdo.ErrUnknownOutput
	if isInput {
		ports = m.Inputs()
		sentinel = mdo.ErrUnknownInput
	}
	for _, p := range ports {
		if p == port {
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no port %q", sentinel, member, port)
}

// resolveOrder computes the member evaluation order with Kahn's algorithm.
// Cycle-closing connections are recorded as feedback edges; they are only
// legal when the group is implicit.
func (g *Group) resolveOrder(conns []Connection) error {
	edges := make(map[string]map[string]bool) // from member -> to members
	indeg := make(map[string]int, len(g.members))
	for _, m := range g.members {
		indeg[m.Name()] = 0
	}
	for _, c := range conns {
		from, _, _ := splitRef(c.From)
		to, _, _ := splitRef(c.To)
		if from == to {
			// A member feeding itself is the smallest cycle: a solver
			// iterates on it, an explicit group cannot evaluate it.
			if !g.implicit {
				return fmt.Errorf("%w: %s feeds itself", mdo.ErrCycle, from)
			}
			g.feedback = append(g.feedback, c)
			continue
		}
		if edges[from] == nil {
			edges[from] = make(map[string]bool)
		}
		if !edges[from][to] {
			edges[from][to] = true
			indeg[to]++
		}
	}

	ready := make([]string, 0, len(g.members))
	for _, m := range g.members {
		if indeg[m.Name()] == 0 {
			ready = append(ready, m.Name())
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.members))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := make([]string, 0)
		for to := range edges[n] {
			indeg[to]--
			if indeg[to] == 0 {
				next = append(next, to)
			}
		}
		sort.Strings(next)
		ready = append(ready, next...)
		sort.Strings(ready)
	}

	if len(order) == len(g.members) {
		g.order = order
		return nil
	}

	if !g.implicit {
		var cyclic []string
		for n, d := range indeg {
			if d > 0 {
				cyclic = append(cyclic, n)
			}
		}
		sort.Strings(cyclic)
		return fmt.Errorf("%w: members %s", mdo.ErrCycle, strings.Join(cyclic, ", "))
	}

	// Implicit group with feedback: keep declaration order and note which
	// connections close cycles so the solver can iterate on them.
	g.order = g.order[:0]
	pos := make(map[string]int, len(g.members))
	for i, m := range g.members {
		g.order = append(g.order, m.Name())
		pos[m.Name()] = i
	}
	for _, c := range conns {
		from, _, _ := splitRef(c.From)
		to, _, _ := splitRef(c.To)
		// Self-loops were already recorded above.
		if from != to && pos[from] >= pos[to] {
			g.feedback = append(g.feedback, c)
		}
	}
	return nil
}

// resolveInterface collects unconnected member inputs and all member
// outputs, qualified by member name.
func (g *Group) resolveInterface() {
	for _, name := range g.order {
		m := g.byName[name]
		for _, p := range m.Inputs() {
			q := name + "." + p
			if _, wired := g.conns[q]; !wired {
				g.inputs = append(g.inputs, q)
			}
		}
		for _, p := range m.Outputs() {
			g.outputs = append(g.outputs, name+"."+p)
		}
	}
}

func (g *Group) Name() string      { return g.name }
func (g *Group) Inputs() []string  { return g.inputs }
func (g *Group) Outputs() []string { return g.outputs }

// IsImplicit reports whether evaluation needs a residual solver.
func (g *Group) IsImplicit() bool { return g.implicit }

// SetSolver attaches the solver used for implicit evaluation.
func (g *Group) SetSolver(s Solver) { g.solver = s }

// Members returns the components in evaluation order.
func (g *Group) Members() []mdo.Component {
	out := make([]mdo.Component, len(g.order))
	for i, n := range g.order {
		out[i] = g.byName[n]
	}
	return out
}

// Feedback returns the cycle-closing connections of an implicit group.
func (g *Group) Feedback() []Connection {
	out := make([]Connection, len(g.feedback))
	copy(out, g.feedback)
	return out
}

func splitRef(ref string) (member, port string, ok bool) {
	i := strings.Index(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}
