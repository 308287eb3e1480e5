package model

// Wire types for the HTTP surface. Coordinates and windows arrive as JSON
// pairs ([lat, lon] and [earliest, latest]) to match the sample payloads.

type OptimizeRequest struct {
	Coordinates     [][]float64    `json:"coordinates"`
	Scenario        string         `json:"scenario,omitempty"`
	TimeWindows     [][]float64    `json:"time_windows,omitempty"`
	ProblemType     string         `json:"problem_type,omitempty"`
	Demands         []float64      `json:"demands,omitempty"`
	VehicleCapacity float64        `json:"vehicle_capacity,omitempty"`
	NumVehicles     int            `json:"num_vehicles,omitempty"`
	Solver          string         `json:"solver,omitempty"`
	Timestamp       string         `json:"timestamp,omitempty"` // RFC3339; empty means now
	Polish          bool           `json:"polish,omitempty"`
	StopSet         string         `json:"stop_set,omitempty"` // use a stored stop set instead of coordinates
	Incidents       []IncidentSpec `json:"incidents,omitempty"`
}

// IncidentSpec is a caller-supplied slowdown on the directed edge From->To,
// active for DurationMinutes (default 120) from the request timestamp.
type IncidentSpec struct {
	From            int     `json:"from"`
	To              int     `json:"to"`
	Type            string  `json:"type"`
	Severity        float64 `json:"severity"`
	DurationMinutes float64 `json:"duration_minutes,omitempty"`
}

// StopSet is a named, reusable list of stops with optional windows and demands.
type StopSet struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Coordinates []Coordinate `json:"coordinates"`
	TimeWindows []TimeWindow `json:"time_windows,omitempty"`
	Demands     []float64    `json:"demands,omitempty"`
}

type SampleResponse struct {
	Coordinates []Coordinate `json:"coordinates"`
	TimeWindows []TimeWindow `json:"time_windows"`
	Scenarios   []string     `json:"scenarios"`
}

type HealthResponse struct {
	Status           string            `json:"status"`
	Timestamp        float64           `json:"timestamp"`
	AvailableSolvers []string          `json:"available_solvers"`
	Store            string            `json:"store"`
	Broker           string            `json:"broker"`
	Build            map[string]string `json:"build"`
}
