package driver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
)

type plant struct{}

func (plant) Name() string      { return "plant" }
func (plant) Inputs() []string  { return []string{"t"} }
func (plant) Outputs() []string { return []string{"s"} }

func (plant) Evaluate(in mdo.Values) (mdo.Values, error) {
	return mdo.Values{"s": in["t"] * in["t"]}, nil
}

type rollup struct{}

func (rollup) Name() string      { return "cost" }
func (rollup) Inputs() []string  { return []string{"t", "s"} }
func (rollup) Outputs() []string { return []string{"total", "t_out"} }

func (rollup) Evaluate(in mdo.Values) (mdo.Values, error) {
	return mdo.Values{
		"total": in["t"] + 4/in["s"],
		"t_out": in["t"],
	}, nil
}

func tradeGroup(t *testing.T) *graph.Group {
	t.Helper()
	g, err := graph.New("trade", []mdo.Component{plant{}, rollup{}},
		[]graph.Connection{{To: "cost.s", From: "plant.s"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return g
}

// Minimize t + 4/t^2 through a two-member group. The stationary point is
// t = 2 with cost 3; with the floor active the optimum pins to the floor.
func TestOptimizeThroughGroup(t *testing.T) {
	g := tradeGroup(t)
	eval := func(x mdo.Values) (mdo.Values, error) { return g.Evaluate(x) }

	p := Problem{
		DesignVars: []mdo.Variable{mdo.NewBounded("t", 1, "", 0.1, 50)},
		Objective:  "cost.total",
		Constraints: []Constraint{
			{Output: "cost.t_out", Relation: GreaterEqual, Bound: 0.5},
		},
	}

	d := New()
	res, err := d.Optimize(context.Background(), p, eval)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if math.Abs(res.X["t"]-2)/2 > 1e-4 {
		t.Errorf("t = %g, want 2 within 1e-4 relative", res.X["t"])
	}
	if math.Abs(res.Objective-3)/3 > 1e-4 {
		t.Errorf("objective = %g, want 3 within 1e-4 relative", res.Objective)
	}
}

func TestOptimizeThroughGroupActiveFloor(t *testing.T) {
	g := tradeGroup(t)
	eval := func(x mdo.Values) (mdo.Values, error) { return g.Evaluate(x) }

	p := Problem{
		DesignVars: []mdo.Variable{mdo.NewBounded("t", 5, "", 0.1, 50)},
		Objective:  "cost.total",
		Constraints: []Constraint{
			{Output: "cost.t_out", Relation: GreaterEqual, Bound: 3},
		},
	}

	d := New()
	res, err := d.Optimize(context.Background(), p, eval)
	if err != nil {
		var fail *mdo.OptimizationFailedError
		if !errors.As(err, &fail) {
			t.Fatalf("optimize: %v", err)
		}
	}
	if math.Abs(res.X["t"]-3) > 1e-3 {
		t.Errorf("t = %g, want the floor at 3", res.X["t"])
	}
	if res.Violation > 1e-6 {
		t.Errorf("violation %g at the floor", res.Violation)
	}
}
