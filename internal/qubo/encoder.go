package qubo

import (
	"fmt"
	"math"

	"fleetopt/internal/model"
)

const (
	DefaultLambda         = 100.0
	DefaultServiceMinutes = 5.0
	// DefaultMaxVars caps the binary variables of one encoding. One-hot
	// groups add a quadratic term per pair, so Q grows much faster than this.
	DefaultMaxVars = 4096
)

// Costs is the travel-time source the encoder reads. *traffic.Matrix
// satisfies it.
type Costs interface {
	N() int
	At(i, j int) float64
	MinPositive() float64
}

// Encoder turns routing problems into QUBOs. Lambda weighs every
// constraint penalty and must dominate any plausible route cost.
type Encoder struct {
	Lambda         float64
	ServiceMinutes float64
	// MaxVars <= 0 means DefaultMaxVars.
	MaxVars int
}

func NewEncoder(lambda float64) *Encoder {
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &Encoder{Lambda: lambda, ServiceMinutes: DefaultServiceMinutes, MaxVars: DefaultMaxVars}
}

func (e *Encoder) checkSize(vars int) error {
	limit := e.MaxVars
	if limit <= 0 {
		limit = DefaultMaxVars
	}
	if vars > limit {
		return &model.ValidationError{Field: "coordinates", Reason: fmt.Sprintf("problem needs %d variables, limit is %d", vars, limit)}
	}
	return nil
}

// addOneHot adds lambda*(sum(vars)-1)^2. With x^2 = x the square
// contributes +lambda and the cross term -2*lambda on each diagonal, 2*lambda
// on every pair, and lambda to the offset; exactly one set variable costs 0.
func (e *Encoder) addOneHot(p *Problem, vars []int) {
	for a := range vars {
		p.Add(vars[a], vars[a], e.Lambda)
		p.Add(vars[a], vars[a], -2*e.Lambda)
		for b := a + 1; b < len(vars); b++ {
			p.Add(vars[a], vars[b], 2*e.Lambda)
		}
	}
	p.Offset += e.Lambda
}

// EncodeTSP builds the node x position formulation: N*N variables, tour
// adjacency cost on consecutive positions (wrapping to close the cycle),
// one-hot rows and columns, and soft time-window penalties.
func (e *Encoder) EncodeTSP(m Costs, windows []model.TimeWindow) (*Problem, error) {
	n := m.N()
	if n < 2 {
		return nil, &model.ValidationError{Field: "matrix", Reason: "at least 2 nodes required"}
	}
	if windows != nil && len(windows) != n {
		return nil, &model.ValidationError{Field: "time_windows", Reason: fmt.Sprintf("expected %d windows, got %d", n, len(windows))}
	}
	if err := e.checkSize(n * n); err != nil {
		return nil, err
	}
	idx := newTSPIndex(n)
	p := newProblem(idx)
	at := func(node, pos int) int { v, _ := idx.TSP(node, pos); return v }

	for pos := 0; pos < n; pos++ {
		next := (pos + 1) % n
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				p.Add(at(i, pos), at(j, next), m.At(i, j))
			}
		}
	}

	group := make([]int, n)
	for i := 0; i < n; i++ {
		for pos := 0; pos < n; pos++ {
			group[pos] = at(i, pos)
		}
		e.addOneHot(p, group)
	}
	for pos := 0; pos < n; pos++ {
		for i := 0; i < n; i++ {
			group[i] = at(i, pos)
		}
		e.addOneHot(p, group)
	}

	if windows != nil {
		e.addTimeWindows(p, m, windows, at)
	}
	for v := 0; v < idx.Len(); v++ {
		p.declare(v)
	}
	return p, nil
}

// addTimeWindows estimates arrival at position pos as a lower bound
// (shortest edge times pos plus service time per stop) and penalizes
// positions that would be early or late. The estimate ignores the realized
// route.
func (e *Encoder) addTimeWindows(p *Problem, m Costs, windows []model.TimeWindow, at func(node, pos int) int) {
	n := m.N()
	step := m.MinPositive()
	for i := 1; i < n; i++ {
		w := windows[i]
		for pos := 0; pos < n; pos++ {
			arrival := step*float64(pos) + e.ServiceMinutes*float64(pos)
			var miss float64
			switch {
			case arrival < w.Earliest:
				miss = w.Earliest - arrival
			case arrival > w.Latest:
				miss = arrival - w.Latest
			default:
				continue
			}
			v := at(i, pos)
			p.Add(v, v, e.Lambda*miss/60.0)
		}
	}
}

// EncodeVRP builds the edge x vehicle formulation: one variable per
// (from, to, vehicle) with from != to, travel time on each diagonal, one
// inbound edge per customer, one depot departure per vehicle, and an
// aggregate capacity surcharge. Windows are validated but not encoded: the
// edge formulation carries no position to estimate arrival from.
func (e *Encoder) EncodeVRP(m Costs, demands []float64, capacity float64, vehicles int, windows []model.TimeWindow) (*Problem, error) {
	n := m.N()
	if n < 2 {
		return nil, &model.ValidationError{Field: "matrix", Reason: "at least 2 nodes required"}
	}
	if vehicles < 1 {
		return nil, &model.ValidationError{Field: "num_vehicles", Reason: "at least one vehicle required"}
	}
	if vehicles > n-1 {
		return nil, &model.ValidationError{Field: "num_vehicles", Reason: fmt.Sprintf("%d vehicles for %d customers", vehicles, n-1)}
	}
	if err := e.checkSize(vehicles * n * (n - 1)); err != nil {
		return nil, err
	}
	if math.IsNaN(capacity) || capacity <= 0 {
		return nil, &model.ValidationError{Field: "vehicle_capacity", Reason: "capacity must be positive"}
	}
	if demands == nil {
		demands = make([]float64, n)
	}
	if len(demands) != n {
		return nil, &model.ValidationError{Field: "demands", Reason: fmt.Sprintf("expected %d demands, got %d", n, len(demands))}
	}
	for i, d := range demands {
		if math.IsNaN(d) || d < 0 {
			return nil, &model.ValidationError{Field: fmt.Sprintf("demands[%d]", i), Reason: "demand must be non-negative"}
		}
	}
	if windows != nil && len(windows) != n {
		return nil, &model.ValidationError{Field: "time_windows", Reason: fmt.Sprintf("expected %d windows, got %d", n, len(windows))}
	}

	idx := newVRPIndex(n, vehicles)
	p := newProblem(idx)
	at := func(i, j, k int) int { v, _ := idx.VRP(i, j, k); return v }

	for k := 0; k < vehicles; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					v := at(i, j, k)
					p.Add(v, v, m.At(i, j))
				}
			}
		}
	}

	for j := 1; j < n; j++ {
		var inbound []int
		for k := 0; k < vehicles; k++ {
			for i := 0; i < n; i++ {
				if i != j {
					inbound = append(inbound, at(i, j, k))
				}
			}
		}
		e.addOneHot(p, inbound)
	}

	for k := 0; k < vehicles; k++ {
		out := make([]int, 0, n-1)
		for j := 1; j < n; j++ {
			out = append(out, at(0, j, k))
		}
		e.addOneHot(p, out)
	}

	total := 0.0
	for _, d := range demands[1:] {
		total += d
	}
	if total > capacity {
		surcharge := e.Lambda * (total - capacity) / capacity
		for k := 0; k < vehicles; k++ {
			for i := 0; i < n; i++ {
				for j := 1; j < n; j++ {
					if i != j {
						v := at(i, j, k)
						p.Add(v, v, surcharge)
					}
				}
			}
		}
	}

	for v := 0; v < idx.Len(); v++ {
		p.declare(v)
	}
	return p, nil
}
