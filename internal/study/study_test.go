package study_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/mdo"
	"github.com/tubemdo/tubemdo/internal/study"
)

// trackedBuilder yields a one-variable quadratic whose optimum follows the
// sweep value: minimize (x - v)^2, objective value v at the optimum offset.
func trackedBuilder(offset float64) study.Builder {
	return func(v float64) (driver.Problem, driver.EvalFunc, error) {
		prob := driver.Problem{
			DesignVars: []mdo.Variable{mdo.NewBounded("x", 0, "", -1000, 1000)},
			Objective:  "f",
		}
		eval := func(in mdo.Values) (mdo.Values, error) {
			dx := in["x"] - v
			return mdo.Values{"f": dx*dx + offset*v}, nil
		}
		return prob, eval, nil
	}
}

var _ = Describe("Study", func() {
	var d *driver.Driver

	BeforeEach(func() {
		d = driver.New()
	})

	It("re-optimizes at every sweep value in order", func() {
		s := &study.Study{
			Parameter: "v",
			Values:    []float64{-2, 0, 3, 7},
		}

		points, err := s.Run(context.Background(), d, trackedBuilder(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(4))

		for i, pt := range points {
			Expect(pt.Value).To(Equal(s.Values[i]))
			Expect(pt.Err).To(BeEmpty())
			Expect(pt.Result.X["x"]).To(BeNumerically("~", s.Values[i], 1e-3))
			Expect(pt.Result.Objective).To(BeNumerically("~", 0, 1e-6))
		}
	})

	It("produces a monotonic objective across a monotonic sweep", func() {
		s := &study.Study{
			Parameter: "v",
			Values:    []float64{1, 2, 5, 10, 20},
		}

		points, err := s.Run(context.Background(), d, trackedBuilder(1))
		Expect(err).NotTo(HaveOccurred())

		for i := 1; i < len(points); i++ {
			Expect(points[i].Result.Objective).To(BeNumerically(">", points[i-1].Result.Objective))
		}
	})

	It("records a failed point without aborting the sweep", func() {
		base := trackedBuilder(0)
		build := func(v float64) (driver.Problem, driver.EvalFunc, error) {
			if v == 2 {
				return driver.Problem{}, nil, fmt.Errorf("no model for %v", v)
			}
			return base(v)
		}

		s := &study.Study{Parameter: "v", Values: []float64{1, 2, 3}}
		points, err := s.Run(context.Background(), d, build)
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(3))

		Expect(points[0].Err).To(BeEmpty())
		Expect(points[1].Err).To(ContainSubstring("no model"))
		Expect(points[2].Err).To(BeEmpty())
		Expect(points[2].Result.X["x"]).To(BeNumerically("~", 3, 1e-3))
	})

	It("keeps a failed optimization's best attempt in the point", func() {
		build := func(v float64) (driver.Problem, driver.EvalFunc, error) {
			prob := driver.Problem{
				DesignVars: []mdo.Variable{mdo.NewBounded("x", 0, "", -10, 10)},
				Objective:  "f",
				Constraints: []driver.Constraint{
					{Output: "x", Relation: driver.GreaterEqual, Bound: 1},
					{Output: "x", Relation: driver.LessEqual, Bound: -1},
				},
			}
			eval := func(in mdo.Values) (mdo.Values, error) {
				return mdo.Values{"f": in["x"] * in["x"], "x": in["x"]}, nil
			}
			return prob, eval, nil
		}

		s := &study.Study{Parameter: "v", Values: []float64{1}}
		points, err := s.Run(context.Background(), d, build)
		Expect(err).NotTo(HaveOccurred())
		Expect(points[0].Err).NotTo(BeEmpty())
		Expect(points[0].Result.Violation).To(BeNumerically(">", 0))
	})

	It("matches sequential results when run in parallel", func() {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

		seq := &study.Study{Parameter: "v", Values: values}
		seqPoints, err := seq.Run(context.Background(), d, trackedBuilder(0))
		Expect(err).NotTo(HaveOccurred())

		par := &study.Study{Parameter: "v", Values: values, Workers: 4}
		parPoints, err := par.Run(context.Background(), d, trackedBuilder(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(parPoints).To(HaveLen(len(seqPoints)))

		for i := range seqPoints {
			Expect(parPoints[i].Value).To(Equal(seqPoints[i].Value))
			Expect(parPoints[i].Result.X["x"]).To(BeNumerically("~", seqPoints[i].Result.X["x"], 1e-9))
		}
	})

	It("notifies the observer exactly once per point", func() {
		var mu sync.Mutex
		got := map[int]float64{}

		s := &study.Study{
			Parameter: "v",
			Values:    []float64{1, 2, 3, 4},
			Workers:   2,
			Observer: func(index int, pt study.Point) {
				mu.Lock()
				defer mu.Unlock()
				Expect(got).NotTo(HaveKey(index))
				got[index] = pt.Value
			},
		}

		_, err := s.Run(context.Background(), d, trackedBuilder(0))
		Expect(err).NotTo(HaveOccurred())

		mu.Lock()
		defer mu.Unlock()
		Expect(got).To(HaveLen(4))
		for i, v := range s.Values {
			Expect(got[i]).To(Equal(v))
		}
	})

	It("stops early on cancellation and returns finished points", func() {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		build := func(v float64) (driver.Problem, driver.EvalFunc, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return trackedBuilder(0)(v)
		}

		s := &study.Study{Parameter: "v", Values: []float64{1, 2, 3, 4, 5}}
		points, err := s.Run(ctx, d, build)
		Expect(err).To(MatchError(context.Canceled))
		Expect(len(points)).To(BeNumerically("<", len(s.Values)))
	})
})
