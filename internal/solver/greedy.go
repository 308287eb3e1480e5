package solver

import (
	"context"
	"sort"

	"fleetopt/internal/qubo"
)

// GreedySolver sets every variable whose diagonal coefficient is negative.
// It ignores quadratic terms while choosing and does not repair one-hot
// violations; the decoder tolerates what it produces.
type GreedySolver struct{}

func (GreedySolver) Name() Name { return Greedy }

func (GreedySolver) Probe(context.Context) error { return nil }

func (g GreedySolver) Solve(_ context.Context, p *qubo.Problem, _ Options) (qubo.Assignment, error) {
	a, _ := g.Run(p)
	return a, nil
}

// Run returns the assignment and its energy. The assignment covers every
// variable referenced in Q, with explicit zeros.
func (GreedySolver) Run(p *qubo.Problem) (qubo.Assignment, float64) {
	vars := p.Variables()
	a := make(qubo.Assignment, len(vars))
	for _, v := range vars {
		a[v] = 0
	}
	sort.SliceStable(vars, func(x, y int) bool {
		return p.Linear(vars[x]) < p.Linear(vars[y])
	})
	energy := 0.0
	for _, v := range vars {
		c := p.Linear(v)
		if c >= 0 {
			break
		}
		a[v] = 1
		energy += c
	}
	for k, c := range p.Q {
		if k.I != k.J && a.On(k.I) && a.On(k.J) {
			energy += c
		}
	}
	return a, energy + p.Offset
}
