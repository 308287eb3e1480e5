// Package engine runs the optimization pipeline: simulate traffic, build
// the baseline, encode, solve, decode, repair and measure.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
	"fleetopt/internal/opt"
	"fleetopt/internal/qubo"
	"fleetopt/internal/solver"
	"fleetopt/internal/traffic"
)

const (
	DefaultVehicleCapacity = 100.0
	DefaultVehicles        = 3
	DefaultMaxNodes        = 50
	DefaultMaxVehicles     = 10
	polishIterations       = 50
)

// Input is one optimization request. Coords[0] is the depot.
type Input struct {
	Coords    []model.Coordinate
	Scenario  string
	Windows   []model.TimeWindow
	Kind      model.ProblemKind
	Demands   []float64
	Capacity  float64
	Vehicles  int
	Solver    string
	At        time.Time
	Incidents []traffic.Incident
	Polish    bool
}

// Limits bound the problems Optimize accepts. Zero fields use the defaults.
type Limits struct {
	MaxNodes    int
	MaxVehicles int
}

type Engine struct {
	sim     *traffic.Simulator
	enc     *qubo.Encoder
	chain   *solver.Chain
	history *opt.History[Result]
	logger  *slog.Logger
	opts    solver.Options
	limits  Limits
	now     func() time.Time
	newID   func() string
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSolveOptions sets the time limit, read count and seed passed to
// every solve.
func WithSolveOptions(o solver.Options) Option { return func(e *Engine) { e.opts = o } }

// WithLimits caps the node and vehicle counts of a request.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		if l.MaxNodes > 0 {
			e.limits.MaxNodes = l.MaxNodes
		}
		if l.MaxVehicles > 0 {
			e.limits.MaxVehicles = l.MaxVehicles
		}
	}
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(sim *traffic.Simulator, enc *qubo.Encoder, chain *solver.Chain, opts ...Option) *Engine {
	e := &Engine{
		sim:     sim,
		enc:     enc,
		chain:   chain,
		history: opt.NewHistory[Result](),
		logger:  slog.Default(),
		opts:    solver.Options{TimeLimit: 5 * time.Second, NumReads: 100},
		limits:  Limits{MaxNodes: DefaultMaxNodes, MaxVehicles: DefaultMaxVehicles},
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// History returns every result so far, oldest first.
func (e *Engine) History() []Result { return e.history.List() }

// Solvers lists the backends the chain found usable at startup.
func (e *Engine) Solvers() []solver.Name { return e.chain.Available() }

func (e *Engine) Scenarios() []string { return e.sim.Scenarios() }

// Optimize runs the full pipeline. Only a *model.ValidationError (or a
// failure building the matrix) is returned; solver trouble degrades to the
// greedy fallback instead.
func (e *Engine) Optimize(ctx context.Context, in Input) (*Result, error) {
	if err := model.ValidateStops(in.Coords, in.Windows); err != nil {
		return nil, err
	}
	if n := len(in.Coords); n > e.limits.MaxNodes {
		return nil, &model.ValidationError{Field: "coordinates", Reason: fmt.Sprintf("%d stops exceed the limit of %d", n, e.limits.MaxNodes)}
	}
	kind := in.Kind
	if kind == "" {
		kind = model.KindTSP
	}
	// an empty solver keeps the chain's configured mode
	var mode solver.Name
	if in.Solver != "" {
		var err error
		if mode, err = solver.ParseName(in.Solver); err != nil {
			return nil, &model.ValidationError{Field: "solver", Reason: err.Error()}
		}
	}

	m, cond, err := e.sim.Compute(traffic.Request{Coords: in.Coords, Scenario: in.Scenario, At: in.At, Incidents: in.Incidents})
	if err != nil {
		return nil, err
	}

	baseline := opt.NearestNeighbor(m)
	baseCost := opt.RouteCost(baseline, m)

	var p *qubo.Problem
	switch kind {
	case model.KindVRP:
		capacity, vehicles := in.Capacity, in.Vehicles
		if capacity == 0 {
			capacity = DefaultVehicleCapacity
		}
		switch {
		case vehicles < 0:
			return nil, &model.ValidationError{Field: "num_vehicles", Reason: "must be >= 0"}
		case vehicles == 0:
			vehicles = DefaultVehicles
		case vehicles > e.limits.MaxVehicles:
			return nil, &model.ValidationError{Field: "num_vehicles", Reason: fmt.Sprintf("%d vehicles exceed the limit of %d", vehicles, e.limits.MaxVehicles)}
		}
		// vehicles beyond one per customer would only stay idle
		vehicles = min(vehicles, len(in.Coords)-1)
		p, err = e.enc.EncodeVRP(m, in.Demands, capacity, vehicles, in.Windows)
	default:
		p, err = e.enc.EncodeTSP(m, in.Windows)
	}
	if err != nil {
		return nil, err
	}

	sol := e.chain.SolveWith(ctx, p, mode, e.opts)
	decoded := qubo.Decode(sol.Assignment, p.Vars)
	for _, a := range decoded.Ambiguities {
		e.logger.Debug("decode_ambiguity", "kind", a.Kind, "index", a.Index, "active", a.Active)
	}
	if n := len(decoded.Ambiguities); n > 0 {
		e.logger.Warn("decode_ambiguities", "count", n, "backend", sol.Backend)
	}

	optimized := OptimizedSummary{
		Energy:      sol.Energy,
		SolveTime:   sol.Elapsed.Seconds(),
		SolverType:  string(sol.Backend),
		Fallback:    sol.Fallback,
		Ambiguities: decoded.Ambiguities,
	}
	if kind == model.KindVRP {
		routes, repaired := opt.RepairFleet(decoded.Routes, m)
		if in.Polish {
			for i := range routes {
				routes[i] = opt.ImproveOrder2Opt(m, routes[i], polishIterations)
			}
			optimized.Polished = true
		}
		optimized.Routes = routes
		optimized.Repaired = repaired
		optimized.Route = flatten(routes)
		optimized.TotalTime = opt.FleetCost(routes, m)
		optimized.OnTimeDeliveries = opt.FleetOnTimeRatio(routes, m, in.Windows)
	} else {
		route, repaired := opt.RepairTour(decoded.Route, m)
		if in.Polish {
			route = opt.ImproveOrder2Opt(m, route, polishIterations)
			optimized.Polished = true
		}
		optimized.Route = route
		optimized.Repaired = repaired
		optimized.TotalTime = opt.RouteCost(route, m)
		optimized.OnTimeDeliveries = opt.OnTimeRatio(route, m, in.Windows)
	}
	if optimized.Repaired {
		e.logger.Info("route_repaired", "kind", kind, "ambiguities", len(decoded.Ambiguities))
	}

	cmp := opt.CompareCosts(baseCost, optimized.TotalTime)
	res := Result{
		ID:          e.newID(),
		Success:     true,
		Scenario:    cond.Scenario,
		ProblemType: kind,
		Traffic: TrafficSummary{
			Weather:     cond.Weather,
			Incidents:   len(cond.Incidents),
			CurrentTime: cond.At,
			Multiplier:  cond.Multiplier,
			Details:     cond.Incidents,
		},
		Baseline: RouteSummary{
			Route:            baseline,
			TotalTime:        baseCost,
			OnTimeDeliveries: opt.OnTimeRatio(baseline, m, in.Windows),
		},
		Optimized:   optimized,
		Improvement: savings(cmp.TimeSaved, cmp.ImprovementPercent),
		Coordinates: append([]model.Coordinate(nil), in.Coords...),
		TimeMatrix:  m.Rows(),
		Timestamp:   float64(e.now().UnixNano()) / 1e9,
	}
	e.history.Append(res)

	metrics.Optimizations.WithLabelValues(res.Scenario, string(kind)).Inc()
	metrics.Improvement.Observe(cmp.ImprovementPercent)
	e.logger.Info("optimization_complete",
		"id", res.ID,
		"scenario", res.Scenario,
		"kind", kind,
		"nodes", len(in.Coords),
		"backend", sol.Backend,
		"baseline_min", fmt.Sprintf("%.2f", baseCost),
		"optimized_min", fmt.Sprintf("%.2f", optimized.TotalTime),
	)
	return &res, nil
}

func flatten(routes [][]int) []int {
	out := []int{}
	for _, r := range routes {
		out = append(out, r...)
	}
	return out
}
