package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

// linearImplicit defines x through the residual x - (k*x + c), whose root
// is c/(1-k). With |k| < 1 the fixed-point sweep contracts.
type linearImplicit struct {
	k, c float64
}

func (u *linearImplicit) Name() string      { return "lin" }
func (u *linearImplicit) Inputs() []string  { return nil }
func (u *linearImplicit) Outputs() []string { return []string{"x"} }

func (u *linearImplicit) Guess(mdo.Values) mdo.Values {
	return mdo.Values{"x": 0}
}

func (u *linearImplicit) Residual(_, out mdo.Values) (mdo.Values, error) {
	x := out["x"]
	return mdo.Values{"x": x - (u.k*x + u.c)}, nil
}

func (u *linearImplicit) Linearize(_, _ mdo.Values) map[string]map[string]float64 {
	return map[string]map[string]float64{
		"x": {"x": 1 - u.k},
	}
}

func linearGroup(t *testing.T, k, c float64, s graph.Solver) *graph.Group {
	t.Helper()
	g, err := graph.New("g", []mdo.Component{&linearImplicit{k: k, c: c}}, nil, graph.WithSolver(s))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return g
}

func TestFixedPointLinear(t *testing.T) {
	s := NewFixedPoint()
	g := linearGroup(t, 0.5, 1, s)

	out, stats, err := s.Solve(g, nil, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !stats.Converged {
		t.Error("expected convergence")
	}
	if math.Abs(out["lin.x"]-2) > 1e-6 {
		t.Errorf("lin.x = %f, want 2", out["lin.x"])
	}
	if stats.MaxResidual >= s.Tol {
		t.Errorf("final residual %g not below tol %g", stats.MaxResidual, s.Tol)
	}
}

func TestFixedPointConvergedSeed(t *testing.T) {
	s := NewFixedPoint()
	g := linearGroup(t, 0.5, 1, s)

	// Seeding at the root must converge without a single update.
	_, stats, err := s.Solve(g, nil, mdo.Values{"lin.x": 2})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if stats.Iterations != 0 {
		t.Errorf("re-solve at the root took %d iterations, want 0", stats.Iterations)
	}
}

func TestFixedPointDivergence(t *testing.T) {
	s := &FixedPoint{Tol: 1e-8, MaxIter: 10, Relax: 1.0}
	// k=2 makes the iteration expand away from the root.
	g := linearGroup(t, 2, 1, s)

	_, stats, err := s.Solve(g, nil, nil)
	var div *mdo.SolverDivergedError
	if !errors.As(err, &div) {
		t.Fatalf("expected SolverDivergedError, got %v", err)
	}
	if div.Iterations != 10 {
		t.Errorf("diverged after %d iterations, want exactly max_iter 10", div.Iterations)
	}
	if stats.Converged {
		t.Error("stats must not report convergence")
	}
	if len(div.Residual) != 1 {
		t.Errorf("expected residual vector of length 1, got %d", len(div.Residual))
	}
}

func TestNewtonLinear(t *testing.T) {
	s := NewNewton()
	g := linearGroup(t, 0.5, 1, s)

	out, stats, err := s.Solve(g, nil, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !stats.Converged {
		t.Error("expected convergence")
	}
	if math.Abs(out["lin.x"]-2) > 1e-6 {
		t.Errorf("lin.x = %f, want 2", out["lin.x"])
	}
	// A linear residual with analytic partials needs one Newton step.
	if stats.Iterations > 2 {
		t.Errorf("took %d iterations on a linear residual", stats.Iterations)
	}
}

func TestNewtonMatchesFixedPoint(t *testing.T) {
	fp := NewFixedPoint()
	nt := NewNewton()

	gf := linearGroup(t, 0.8, 3, fp)
	gn := linearGroup(t, 0.8, 3, nt)

	outF, _, err := fp.Solve(gf, nil, nil)
	if err != nil {
		t.Fatalf("fixed point: %v", err)
	}
	outN, _, err := nt.Solve(gn, nil, nil)
	if err != nil {
		t.Fatalf("newton: %v", err)
	}

	if math.Abs(outF["lin.x"]-outN["lin.x"]) > 1e-6 {
		t.Errorf("strategies disagree: %f vs %f", outF["lin.x"], outN["lin.x"])
	}
	if math.Abs(outN["lin.x"]-15) > 1e-6 {
		t.Errorf("lin.x = %f, want 15", outN["lin.x"])
	}
}

// feedback loop of two explicit members: y = 0.5 z + 1, z = 0.5 y.
// Closed form y = 4/3, z = 2/3.
type affine struct {
	name    string
	in, out string
	k, bias float64
}

func (u *affine) Name() string      { return u.name }
func (u *affine) Inputs() []string  { return []string{u.in} }
func (u *affine) Outputs() []string { return []string{u.out} }

func (u *affine) Evaluate(in mdo.Values) (mdo.Values, error) {
	return mdo.Values{u.out: u.k*in[u.in] + u.bias}, nil
}

func feedbackGroup(t *testing.T, s graph.Solver) *graph.Group {
	t.Helper()
	a := &affine{name: "a", in: "z", out: "y", k: 0.5, bias: 1}
	b := &affine{name: "b", in: "y", out: "z", k: 0.5}
	g, err := graph.New("g", []mdo.Component{a, b}, []graph.Connection{
		{To: "b.y", From: "a.y"},
		{To: "a.z", From: "b.z"},
	}, graph.ForceImplicit(), graph.WithSolver(s))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return g
}

func TestFixedPointFeedbackLoop(t *testing.T) {
	s := NewFixedPoint()
	g := feedbackGroup(t, s)

	out, stats, err := s.Solve(g, nil, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !stats.Converged {
		t.Error("expected convergence")
	}
	if math.Abs(out["a.y"]-4.0/3.0) > 1e-6 {
		t.Errorf("a.y = %f, want %f", out["a.y"], 4.0/3.0)
	}
	if math.Abs(out["b.z"]-2.0/3.0) > 1e-6 {
		t.Errorf("b.z = %f, want %f", out["b.z"], 2.0/3.0)
	}
}

func TestNewtonFeedbackLoop(t *testing.T) {
	s := NewNewton()
	g := feedbackGroup(t, s)

	out, stats, err := s.Solve(g, nil, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !stats.Converged {
		t.Error("expected convergence")
	}
	if math.Abs(out["a.y"]-4.0/3.0) > 1e-6 {
		t.Errorf("a.y = %f, want %f", out["a.y"], 4.0/3.0)
	}
}

func TestFixedPointSelfLoop(t *testing.T) {
	// One member feeding itself: out = 0.5*out + 1, root 2.
	a := &affine{name: "a", in: "in", out: "out", k: 0.5, bias: 1}
	s := NewFixedPoint()
	g, err := graph.New("g", []mdo.Component{a}, []graph.Connection{
		{To: "a.in", From: "a.out"},
	}, graph.ForceImplicit(), graph.WithSolver(s))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, stats, err := s.Solve(g, nil, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !stats.Converged {
		t.Error("expected convergence")
	}
	if math.Abs(out["a.out"]-2) > 1e-6 {
		t.Errorf("a.out = %f, want 2", out["a.out"])
	}
}

func TestUnknowns(t *testing.T) {
	fp := NewFixedPoint()
	g := feedbackGroup(t, fp)
	names := unknowns(g)
	if len(names) != 1 || names[0] != "b.z" {
		t.Errorf("expected unknowns [b.z], got %v", names)
	}

	gl := linearGroup(t, 0.5, 1, fp)
	names = unknowns(gl)
	if len(names) != 1 || names[0] != "lin.x" {
		t.Errorf("expected unknowns [lin.x], got %v", names)
	}
}
