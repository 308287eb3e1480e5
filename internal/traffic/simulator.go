// Package traffic synthesizes time-dependent travel-time matrices from
// coordinates and a named traffic scenario.
package traffic

import (
	"fmt"
	"math"
	"time"

	"fleetopt/internal/model"
)

const (
	// DefaultSpeedKmh converts distance to minutes before any multiplier.
	DefaultSpeedKmh = 30.0
	peakHourBonus   = 1.2
	weekendDiscount = 0.8
)

// Simulator computes travel-time matrices. It holds no per-call state, so a
// single Simulator is safe for concurrent use.
type Simulator struct {
	speedKmh  float64
	detailed  bool
	now       func() time.Time
	order     []string
	scenarios map[string]Scenario
}

type Option func(*Simulator)

// WithDetailed enables the weekend discount and weather factors.
func WithDetailed(on bool) Option { return func(s *Simulator) { s.detailed = on } }

// WithClock replaces time.Now as the default simulated clock.
func WithClock(now func() time.Time) Option { return func(s *Simulator) { s.now = now } }

// WithSpeed overrides the base speed in km/h.
func WithSpeed(kmh float64) Option {
	return func(s *Simulator) {
		if kmh > 0 {
			s.speedKmh = kmh
		}
	}
}

// WithScenario registers an extra scenario or replaces a built-in one.
func WithScenario(sc Scenario) Option {
	return func(s *Simulator) { s.register(sc) }
}

func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{speedKmh: DefaultSpeedKmh, now: time.Now, scenarios: map[string]Scenario{}}
	for _, sc := range builtinScenarios() {
		s.register(sc)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Simulator) register(sc Scenario) {
	if _, ok := s.scenarios[sc.Name]; !ok {
		s.order = append(s.order, sc.Name)
	}
	if sc.BaseFactor <= 0 {
		sc.BaseFactor = 1.0
	}
	s.scenarios[sc.Name] = sc
}

// Scenarios lists scenario names, built-ins first.
func (s *Simulator) Scenarios() []string { return append([]string(nil), s.order...) }

// Request is the input to Compute. A zero At means the simulator clock.
type Request struct {
	Coords    []model.Coordinate
	Scenario  string
	At        time.Time
	Incidents []Incident
}

// Conditions describes the traffic state a matrix was computed under.
type Conditions struct {
	Scenario   string     `json:"scenario"`
	Weather    Weather    `json:"weather"`
	At         time.Time  `json:"current_time"`
	Multiplier float64    `json:"multiplier"`
	Incidents  []Incident `json:"incidents"`
}

// Compute builds the travel-time matrix for req. Output is a pure function
// of the coordinates, scenario, resolved timestamp and incidents.
func (s *Simulator) Compute(req Request) (*Matrix, Conditions, error) {
	if err := model.ValidateStops(req.Coords, nil); err != nil {
		return nil, Conditions{}, err
	}
	name := req.Scenario
	if name == "" {
		name = ScenarioNormal
	}
	sc, ok := s.scenarios[name]
	if !ok {
		return nil, Conditions{}, &model.ValidationError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", name)}
	}
	n := len(req.Coords)
	for i, in := range req.Incidents {
		if err := in.validate(n); err != nil {
			return nil, Conditions{}, &model.ValidationError{Field: fmt.Sprintf("incidents[%d]", i), Reason: err.Error()}
		}
	}

	at := req.At
	if at.IsZero() {
		at = s.now()
	}
	if sc.ForcePeak {
		at = time.Date(at.Year(), at.Month(), at.Day(), 8, 30, 0, 0, at.Location())
	}

	incidents := append([]Incident(nil), req.Incidents...)
	if sc.Incidents != nil {
		incidents = append(incidents, sc.Incidents(n, at)...)
	}
	edge := make(map[[2]int]float64, len(incidents))
	for _, in := range incidents {
		if !in.ActiveAt(at) {
			continue
		}
		k := [2]int{in.From, in.To}
		if cur, ok := edge[k]; ok {
			edge[k] = cur * in.Multiplier()
		} else {
			edge[k] = in.Multiplier()
		}
	}

	mult := s.multiplier(sc, at)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i == j {
				continue
			}
			minutes := HaversineKm(req.Coords[i], req.Coords[j]) / s.speedKmh * 60
			v := minutes * mult
			if f, ok := edge[[2]int{i, j}]; ok {
				v *= f
			}
			if math.IsNaN(v) || v < 0 {
				return nil, Conditions{}, fmt.Errorf("traffic: edge %d->%d produced invalid time %v", i, j, v)
			}
			rows[i][j] = v
		}
	}
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, Conditions{}, err
	}
	return m, Conditions{Scenario: name, Weather: sc.Weather, At: at, Multiplier: mult, Incidents: incidents}, nil
}

func (s *Simulator) multiplier(sc Scenario, at time.Time) float64 {
	m := sc.BaseFactor
	if isPeakHour(at.Hour()) {
		m *= peakHourBonus
	}
	if s.detailed {
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			m *= weekendDiscount
		}
		m *= sc.Weather.Factor()
	}
	return m
}
