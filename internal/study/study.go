package study

import (
	"context"
	"sync"

	"github.com/tubemdo/tubemdo/internal/driver"
)

// Point is one sweep value's optimization outcome. A failed point carries
// the error text and the driver's best attempt instead of being dropped,
// so result curves keep their shape.
type Point struct {
	Value  float64       `json:"value"`
	Result driver.Result `json:"result"`
	Err    string        `json:"err,omitempty"`
}

// Builder constructs a fresh problem and evaluator for one sweep value.
// Every call must return independent state: parallel points share nothing.
type Builder func(value float64) (driver.Problem, driver.EvalFunc, error)

// Observer is notified as each point completes. With parallel workers the
// calls arrive serialized but not necessarily in sweep order.
type Observer func(index int, pt Point)

// Study sweeps one exogenous parameter and re-optimizes at every value.
type Study struct {
	Parameter string
	Values    []float64
	Workers   int
	Observer  Observer
}

// Run produces one Point per sweep value, in sweep order. Optimization
// failures are recorded per point and never abort the remaining sweep;
// only cancellation stops early, returning the points finished so far.
func (s *Study) Run(ctx context.Context, d *driver.Driver, build Builder) ([]Point, error) {
	if s.Workers > 1 {
		return s.runParallel(ctx, d, build)
	}

	points := make([]Point, 0, len(s.Values))
	for i, v := range s.Values {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		pt := s.runPoint(ctx, d, build, v)
		points = append(points, pt)
		if s.Observer != nil {
			s.Observer(i, pt)
		}
	}
	return points, nil
}

func (s *Study) runParallel(ctx context.Context, d *driver.Driver, build Builder) ([]Point, error) {
	points := make([]Point, len(s.Values))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.Workers)

	for i, v := range s.Values {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return points[:i], err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, val float64) {
			defer wg.Done()
			defer func() { <-sem }()

			pt := s.runPoint(ctx, d, build, val)
			mu.Lock()
			points[idx] = pt
			if s.Observer != nil {
				s.Observer(idx, pt)
			}
			mu.Unlock()
		}(i, v)
	}

	wg.Wait()
	return points, ctx.Err()
}

func (s *Study) runPoint(ctx context.Context, d *driver.Driver, build Builder, value float64) Point {
	pt := Point{Value: value}

	prob, eval, err := build(value)
	if err != nil {
		pt.Err = err.Error()
		return pt
	}

	res, err := d.Optimize(ctx, prob, eval)
	pt.Result = res
	if err != nil {
		pt.Err = err.Error()
	}
	return pt
}
