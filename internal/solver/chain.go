package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fleetopt/internal/metrics"
	"fleetopt/internal/qubo"
)

// Chain picks one backend per call and drops to greedy when it fails.
// Capabilities are probed once in NewChain and never re-checked.
type Chain struct {
	mode      Name
	backends  map[Name]Backend
	available map[Name]bool
	probeErr  map[Name]error
	disabled  map[Name]bool
	greedy    GreedySolver
	logger    *slog.Logger
	probeWait time.Duration
}

type ChainOption func(*Chain)

// WithMode sets the default selection, Auto unless given.
func WithMode(n Name) ChainOption { return func(c *Chain) { c.mode = n } }

// WithLogger sets the logger; nil keeps slog.Default().
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDisabled marks backends unavailable without probing them.
func WithDisabled(names ...Name) ChainOption {
	return func(c *Chain) {
		for _, n := range names {
			c.disabled[n] = true
		}
	}
}

// WithProbeTimeout bounds each startup probe.
func WithProbeTimeout(d time.Duration) ChainOption { return func(c *Chain) { c.probeWait = d } }

// NewChain registers backends and probes each once. Greedy is always
// present whether or not it is passed in.
func NewChain(ctx context.Context, backends []Backend, opts ...ChainOption) *Chain {
	c := &Chain{
		mode:      Auto,
		backends:  make(map[Name]Backend, len(backends)),
		available: map[Name]bool{Greedy: true},
		probeErr:  map[Name]error{},
		disabled:  map[Name]bool{},
		logger:    slog.Default(),
		probeWait: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	for _, b := range backends {
		if b.Name() == Greedy {
			continue
		}
		c.backends[b.Name()] = b
	}
	for _, n := range Priority {
		b, ok := c.backends[n]
		if !ok {
			continue
		}
		if c.disabled[n] {
			c.probeErr[n] = fmt.Errorf("disabled by configuration: %w", ErrUnavailable)
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, c.probeWait)
		err := b.Probe(pctx)
		cancel()
		if err != nil {
			c.probeErr[n] = err
			c.logger.Info("backend_unavailable", "backend", n, "err", err)
			continue
		}
		c.available[n] = true
		c.logger.Info("backend_available", "backend", n)
	}
	return c
}

// Available lists usable backends in priority order; greedy is always last.
func (c *Chain) Available() []Name {
	out := make([]Name, 0, len(Priority))
	for _, n := range Priority {
		if c.available[n] {
			out = append(out, n)
		}
	}
	return out
}

// Mode is the default selection.
func (c *Chain) Mode() Name { return c.mode }

// Select resolves a requested mode to the backend that will run. An
// unavailable explicit request resolves to greedy.
func (c *Chain) Select(mode Name) Name {
	if mode == "" {
		mode = c.mode
	}
	if mode == Auto {
		return c.Available()[0]
	}
	if c.available[mode] {
		return mode
	}
	return Greedy
}

// Solve runs p on the chain's default mode.
func (c *Chain) Solve(ctx context.Context, p *qubo.Problem, opts Options) Result {
	return c.SolveWith(ctx, p, "", opts)
}

// SolveWith runs p on the backend selected for mode. It never fails: any
// backend error is wrapped, logged, counted and replaced by a greedy solve.
// Energy is always recomputed from Q and the returned assignment.
func (c *Chain) SolveWith(ctx context.Context, p *qubo.Problem, mode Name, opts Options) Result {
	start := time.Now()
	if mode == "" {
		mode = c.mode
	}
	chosen := c.Select(mode)
	var cause error
	if mode != Auto && chosen != mode {
		err := c.probeErr[mode]
		if err == nil {
			err = ErrUnavailable
		}
		cause = &BackendError{Backend: mode, Err: err}
		c.fallback(mode, cause)
	}

	if chosen != Greedy {
		a, err := c.attempt(ctx, c.backends[chosen], p, opts)
		if err == nil {
			return Result{Assignment: a, Energy: p.Energy(a), Elapsed: time.Since(start), Backend: chosen}
		}
		cause = err
		c.fallback(chosen, err)
	}

	t := time.Now()
	a, _ := c.greedy.Run(p)
	metrics.SolverDuration.WithLabelValues(string(Greedy)).Observe(time.Since(t).Seconds())
	metrics.SolverSolves.WithLabelValues(string(Greedy), "ok").Inc()
	return Result{
		Assignment: a,
		Energy:     p.Energy(a),
		Elapsed:    time.Since(start),
		Backend:    Greedy,
		Fallback:   cause != nil,
		Cause:      cause,
	}
}

// attempt converts every failure mode of a backend, panics included,
// into a *BackendError.
func (c *Chain) attempt(ctx context.Context, b Backend, p *qubo.Problem, opts Options) (a qubo.Assignment, err error) {
	name := b.Name()
	t := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("panic: %v", r)
		}
		metrics.SolverDuration.WithLabelValues(string(name)).Observe(time.Since(t).Seconds())
		if err != nil {
			var be *BackendError
			if !errors.As(err, &be) {
				err = &BackendError{Backend: name, Err: err}
			}
			metrics.SolverSolves.WithLabelValues(string(name), "error").Inc()
			return
		}
		metrics.SolverSolves.WithLabelValues(string(name), "ok").Inc()
	}()
	a, err = b.Solve(ctx, p, opts)
	if err == nil && a == nil {
		err = errors.New("no assignment returned")
	}
	return a, err
}

func (c *Chain) fallback(from Name, err error) {
	metrics.SolverFallbacks.WithLabelValues(string(from)).Inc()
	c.logger.Warn("fallback_greedy", "backend", from, "err", err)
}
