package solver

import (
	"context"
	"fmt"
	"math/bits"

	"fleetopt/internal/qubo"
)

// DefaultMaxExactVars bounds brute force to about a million states.
const DefaultMaxExactVars = 20

// ExactSolver enumerates every assignment in Gray-code order, one flip per
// step. Problems with more than MaxVars variables fail with ErrTooLarge.
type ExactSolver struct {
	MaxVars int
}

func (ExactSolver) Name() Name { return Exact }

func (ExactSolver) Probe(context.Context) error { return nil }

func (s ExactSolver) limit() int {
	if s.MaxVars <= 0 {
		return DefaultMaxExactVars
	}
	return s.MaxVars
}

func (s ExactSolver) Solve(ctx context.Context, p *qubo.Problem, opts Options) (qubo.Assignment, error) {
	vars := p.Variables()
	if len(vars) > s.limit() {
		return nil, fmt.Errorf("%d variables, limit %d: %w", len(vars), s.limit(), ErrTooLarge)
	}
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	adj := p.Adjacency()
	x := make(qubo.Assignment, len(vars))
	for _, v := range vars {
		x[v] = 0
	}
	best := copyAssignment(x)
	e := p.Offset
	bestE := e
	total := uint64(1) << uint(len(vars))
	for k := uint64(1); k < total; k++ {
		if k&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v := vars[bits.TrailingZeros64(k)]
		e += flipDelta(adj, x, v)
		x[v] = 1 - x[v]
		if e < bestE-1e-12 {
			best, bestE = copyAssignment(x), e
		}
	}
	return best, nil
}
