// Package solver runs QUBO problems through a prioritized chain of
// samplers. Every optional backend may fail; the chain then drops to the
// greedy fallback so callers always get an assignment.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetopt/internal/qubo"
)

// Name identifies a backend, highest quality first.
type Name string

const (
	Hybrid Name = "hybrid"
	QPU    Name = "qpu"
	Anneal Name = "anneal"
	Exact  Name = "exact"
	Greedy Name = "greedy"
	// Auto escalates to the best available backend.
	Auto Name = "auto"
)

// Priority is the fixed chain order.
var Priority = []Name{Hybrid, QPU, Anneal, Exact, Greedy}

// ParseName accepts a backend name or "auto"; empty means auto.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Auto, nil
	}
	n := Name(s)
	if n == Auto {
		return n, nil
	}
	for _, p := range Priority {
		if p == n {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown solver %q", s)
}

var (
	// ErrUnavailable reports a backend whose probe failed or that was disabled.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrTooLarge reports a problem beyond what a backend accepts.
	ErrTooLarge = errors.New("problem too large for backend")
)

// Options are per-call solve parameters. Backends that take a deadline
// honor TimeLimit; samplers that restart honor NumReads.
type Options struct {
	TimeLimit time.Duration
	NumReads  int
	Seed      int64
}

// Backend samples a low-energy assignment of a QUBO.
type Backend interface {
	Name() Name
	// Probe reports whether the backend can be used at all. The chain
	// calls it once and caches the answer.
	Probe(ctx context.Context) error
	Solve(ctx context.Context, p *qubo.Problem, opts Options) (qubo.Assignment, error)
}

// BackendError wraps a failure of a non-greedy backend. It is logged and
// counted by the chain, never returned to its callers.
type BackendError struct {
	Backend Name
	Err     error
}

func (e *BackendError) Error() string { return fmt.Sprintf("backend %s: %v", e.Backend, e.Err) }

func (e *BackendError) Unwrap() error { return e.Err }

// Result is one chain solve.
type Result struct {
	Assignment qubo.Assignment
	Energy     float64
	Elapsed    time.Duration
	Backend    Name
	// Fallback is set when the greedy solver replaced a failed or unavailable backend.
	Fallback bool
	// Cause is the failure that triggered the fallback, if any.
	Cause error
}
