package solver

import (
	"context"
	"math"
	"math/rand"
	"time"

	"fleetopt/internal/qubo"
)

// AnnealSolver is a local single-flip Metropolis sampler with a geometric
// cooling schedule. Each read restarts from a random state; the best state
// over all reads wins.
type AnnealSolver struct {
	Sweeps int
}

const (
	defaultSweeps   = 1000
	defaultNumReads = 10
)

func (AnnealSolver) Name() Name { return Anneal }

func (AnnealSolver) Probe(context.Context) error { return nil }

func (s AnnealSolver) Solve(ctx context.Context, p *qubo.Problem, opts Options) (qubo.Assignment, error) {
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	sweeps := s.Sweeps
	if sweeps <= 0 {
		sweeps = defaultSweeps
	}
	reads := opts.NumReads
	if reads <= 0 {
		reads = defaultNumReads
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	vars := p.Variables()
	adj := p.Adjacency()
	hot, cold := temperatureRange(adj)

	var best qubo.Assignment
	bestE := math.Inf(1)
	for r := 0; r < reads; r++ {
		x := make(qubo.Assignment, len(vars))
		for _, v := range vars {
			x[v] = rng.Intn(2)
		}
		e := p.Energy(x)
		if e < bestE {
			best, bestE = copyAssignment(x), e
		}
		cool := math.Pow(cold/hot, 1/float64(max(sweeps-1, 1)))
		temp := hot
		for sw := 0; sw < sweeps; sw++ {
			if err := ctx.Err(); err != nil {
				if best == nil {
					return nil, err
				}
				return best, nil
			}
			for _, v := range vars {
				d := flipDelta(adj, x, v)
				if d <= 0 || rng.Float64() < math.Exp(-d/temp) {
					x[v] = 1 - x[v]
					e += d
					if e < bestE-1e-12 {
						best, bestE = copyAssignment(x), e
					}
				}
			}
			temp *= cool
		}
	}
	return best, nil
}

// flipDelta is the energy change of toggling v under x.
func flipDelta(adj qubo.Adjacency, x qubo.Assignment, v int) float64 {
	d := adj.Linear[v]
	for _, nb := range adj.Neighbors[v] {
		if x.On(nb.Var) {
			d += nb.Coeff
		}
	}
	if x.On(v) {
		return -d
	}
	return d
}

// temperatureRange picks a starting temperature near the largest single-flip
// move and a final one a thousand times colder.
func temperatureRange(adj qubo.Adjacency) (hot, cold float64) {
	for v, lin := range adj.Linear {
		m := math.Abs(lin)
		for _, nb := range adj.Neighbors[v] {
			m += math.Abs(nb.Coeff)
		}
		hot = math.Max(hot, m)
	}
	if hot == 0 {
		hot = 1
	}
	return hot, hot * 1e-3
}

func copyAssignment(a qubo.Assignment) qubo.Assignment {
	out := make(qubo.Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
