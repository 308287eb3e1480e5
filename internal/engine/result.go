package engine

import (
	"time"

	"fleetopt/internal/model"
	"fleetopt/internal/qubo"
	"fleetopt/internal/traffic"
)

// Result is one optimization call. It is built once and never modified
// afterwards; history and subscribers share it read-only.
type Result struct {
	ID          string             `json:"id"`
	Success     bool               `json:"success"`
	Scenario    string             `json:"scenario"`
	ProblemType model.ProblemKind  `json:"problem_type"`
	Traffic     TrafficSummary     `json:"traffic_conditions"`
	Baseline    RouteSummary       `json:"baseline"`
	Optimized   OptimizedSummary   `json:"optimized"`
	Improvement Savings            `json:"improvement"`
	Coordinates []model.Coordinate `json:"coordinates"`
	TimeMatrix  [][]float64        `json:"time_matrix"`
	// Timestamp is Unix seconds.
	Timestamp float64 `json:"timestamp"`
}

type TrafficSummary struct {
	Weather     traffic.Weather    `json:"weather"`
	Incidents   int                `json:"incidents"`
	CurrentTime time.Time          `json:"current_time"`
	Multiplier  float64            `json:"multiplier"`
	Details     []traffic.Incident `json:"incident_details,omitempty"`
}

type RouteSummary struct {
	Route            []int   `json:"route"`
	TotalTime        float64 `json:"total_time"`
	OnTimeDeliveries float64 `json:"on_time_deliveries"`
}

type OptimizedSummary struct {
	RouteSummary
	// Routes holds one route per vehicle for VRP; Route is then their
	// concatenation, which costs the same as the fleet.
	Routes      [][]int          `json:"routes,omitempty"`
	Energy      float64          `json:"energy"`
	SolveTime   float64          `json:"solve_time"`
	SolverType  string           `json:"solver_type"`
	Fallback    bool             `json:"fallback"`
	Repaired    bool             `json:"repaired"`
	Polished    bool             `json:"polished"`
	Ambiguities []qubo.Ambiguity `json:"ambiguities,omitempty"`
}

type Savings struct {
	TimeSavedMinutes   float64 `json:"time_saved_minutes"`
	ImprovementPercent float64 `json:"improvement_percent"`
	CO2SavingsKg       float64 `json:"co2_savings_kg"`
	FuelSavingsLiters  float64 `json:"fuel_savings_liters"`
}

const (
	savingsSpeedKmh = 30.0
	co2KgPerKm      = 0.2
	fuelLitersPerKm = 0.08
)

// savings converts minutes saved to distance at the base speed and applies
// the per-km emission and fuel factors. Negative savings stay negative.
func savings(timeSaved, improvement float64) Savings {
	km := timeSaved / 60 * savingsSpeedKmh
	return Savings{
		TimeSavedMinutes:   timeSaved,
		ImprovementPercent: improvement,
		CO2SavingsKg:       km * co2KgPerKm,
		FuelSavingsLiters:  km * fuelLitersPerKm,
	}
}
