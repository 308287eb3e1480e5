package traffic

import (
	"fmt"
	"math"
	"time"
)

type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherFog   Weather = "fog"
	WeatherStorm Weather = "storm"
)

var weatherFactors = map[Weather]float64{
	WeatherClear: 1.0,
	WeatherRain:  1.3,
	WeatherFog:   1.5,
	WeatherStorm: 1.8,
}

// Factor returns the weather slowdown; unknown labels count as clear.
func (w Weather) Factor() float64 {
	if f, ok := weatherFactors[w]; ok {
		return f
	}
	return 1.0
}

type IncidentType string

const (
	Accident     IncidentType = "accident"
	Construction IncidentType = "construction"
	RoadClosure  IncidentType = "road_closure"
	Protest      IncidentType = "protest"
)

var incidentFactors = map[IncidentType]float64{
	Accident:     1.8,
	Construction: 1.5,
	RoadClosure:  2.0,
	Protest:      1.6,
}

// defaultIncidentDuration is the validity window of scenario-injected incidents.
const defaultIncidentDuration = 2 * time.Hour

// Incident slows the directed edge From->To while Start <= t <= End.
type Incident struct {
	From     int          `json:"from"`
	To       int          `json:"to"`
	Type     IncidentType `json:"type"`
	Severity float64      `json:"severity"`
	Start    time.Time    `json:"start"`
	End      time.Time    `json:"end"`
}

// Multiplier is the type factor scaled by severity.
func (in Incident) Multiplier() float64 {
	f, ok := incidentFactors[in.Type]
	if !ok {
		f = 1.0
	}
	return f * in.Severity
}

// ActiveAt reports whether t falls in the validity window (inclusive).
func (in Incident) ActiveAt(t time.Time) bool {
	return !t.Before(in.Start) && !t.After(in.End)
}

func (in Incident) validate(n int) error {
	if in.From < 0 || in.From >= n || in.To < 0 || in.To >= n || in.From == in.To {
		return fmt.Errorf("edge %d->%d outside %d nodes", in.From, in.To, n)
	}
	if _, ok := incidentFactors[in.Type]; !ok {
		return fmt.Errorf("unknown incident type %q", in.Type)
	}
	if math.IsNaN(in.Severity) || math.IsInf(in.Severity, 0) || in.Severity <= 0 {
		return fmt.Errorf("severity %v must be positive", in.Severity)
	}
	if in.End.Before(in.Start) {
		return fmt.Errorf("incident ends before it starts")
	}
	return nil
}

func newIncident(from, to int, typ IncidentType, severity float64, at time.Time) Incident {
	return Incident{From: from, To: to, Type: typ, Severity: severity, Start: at, End: at.Add(defaultIncidentDuration)}
}

// Scenario parameterizes the simulator. Incidents, when set, returns the
// incidents the scenario injects for n nodes at simulated time at.
type Scenario struct {
	Name       string
	BaseFactor float64
	Weather    Weather
	ForcePeak  bool
	Incidents  func(n int, at time.Time) []Incident
}

const (
	ScenarioNormal   = "normal"
	ScenarioPeak     = "peak"
	ScenarioIncident = "incident"
	ScenarioStorm    = "storm"
)

func builtinScenarios() []Scenario {
	return []Scenario{
		{Name: ScenarioNormal, BaseFactor: 1.0, Weather: WeatherClear},
		{Name: ScenarioPeak, BaseFactor: 1.4, Weather: WeatherClear, ForcePeak: true},
		{Name: ScenarioIncident, BaseFactor: 1.8, Weather: WeatherRain, Incidents: func(n int, at time.Time) []Incident {
			var out []Incident
			if n > 1 {
				out = append(out, newIncident(0, 1, Accident, 1.5, at))
			}
			if n > 2 {
				out = append(out, newIncident(1, 2, Construction, 1.2, at))
			}
			return out
		}},
		{Name: ScenarioStorm, BaseFactor: 2.0, Weather: WeatherStorm, Incidents: func(n int, at time.Time) []Incident {
			out := make([]Incident, 0, n)
			for i := 0; i+1 < n; i++ {
				out = append(out, newIncident(i, i+1, RoadClosure, 2.0, at))
			}
			return out
		}},
	}
}

// peakHours are inclusive hour ranges with heavier traffic.
var peakHours = [][2]int{{7, 10}, {17, 20}}

func isPeakHour(h int) bool {
	for _, r := range peakHours {
		if r[0] <= h && h <= r[1] {
			return true
		}
	}
	return false
}
