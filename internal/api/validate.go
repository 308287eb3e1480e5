package api

import (
	"context"
	"fmt"
	"time"

	"fleetopt/internal/engine"
	"fleetopt/internal/model"
	"fleetopt/internal/traffic"
)

const defaultIncidentMinutes = 120

// buildInput converts the wire request into an engine input, resolving a
// referenced stop set. Explicit windows and demands override the set's.
func (s *Server) buildInput(ctx context.Context, req model.OptimizeRequest) (engine.Input, error) {
	kind, err := model.ParseProblemKind(req.ProblemType)
	if err != nil {
		return engine.Input{}, err
	}
	in := engine.Input{
		Scenario: req.Scenario,
		Kind:     kind,
		Demands:  req.Demands,
		Capacity: req.VehicleCapacity,
		Vehicles: req.NumVehicles,
		Solver:   req.Solver,
		Polish:   req.Polish,
	}
	if req.VehicleCapacity < 0 {
		return in, &model.ValidationError{Field: "vehicle_capacity", Reason: "must be >= 0"}
	}
	if req.NumVehicles < 0 {
		return in, &model.ValidationError{Field: "num_vehicles", Reason: "must be >= 0"}
	}

	switch {
	case req.StopSet != "" && len(req.Coordinates) > 0:
		return in, &model.ValidationError{Field: "stop_set", Reason: "give either stop_set or coordinates, not both"}
	case req.StopSet != "":
		set, err := s.Store.GetStopSet(ctx, req.StopSet)
		if err != nil {
			return in, fmt.Errorf("stop set %q: %w", req.StopSet, err)
		}
		in.Coords = set.Coordinates
		in.Windows = set.TimeWindows
		if in.Demands == nil {
			in.Demands = set.Demands
		}
	default:
		if in.Coords, err = coordinates(req.Coordinates); err != nil {
			return in, err
		}
	}
	if req.TimeWindows != nil {
		if in.Windows, err = windows(req.TimeWindows); err != nil {
			return in, err
		}
	}

	if req.Timestamp != "" {
		at, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return in, &model.ValidationError{Field: "timestamp", Reason: "must be RFC3339"}
		}
		in.At = at
	}
	if len(req.Incidents) > 0 {
		start := in.At
		if start.IsZero() {
			start = time.Now()
		}
		for i, spec := range req.Incidents {
			if spec.DurationMinutes < 0 {
				return in, &model.ValidationError{Field: fmt.Sprintf("incidents[%d].duration_minutes", i), Reason: "must be >= 0"}
			}
			d := spec.DurationMinutes
			if d == 0 {
				d = defaultIncidentMinutes
			}
			in.Incidents = append(in.Incidents, traffic.Incident{
				From:     spec.From,
				To:       spec.To,
				Type:     traffic.IncidentType(spec.Type),
				Severity: spec.Severity,
				Start:    start,
				End:      start.Add(time.Duration(d * float64(time.Minute))),
			})
		}
		// pin the simulated clock to the incident start so they are active
		in.At = start
	}
	return in, nil
}

func coordinates(pairs [][]float64) ([]model.Coordinate, error) {
	if len(pairs) == 0 {
		return nil, &model.ValidationError{Field: "coordinates", Reason: "no coordinates provided"}
	}
	out := make([]model.Coordinate, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, &model.ValidationError{Field: fmt.Sprintf("coordinates[%d]", i), Reason: "must be [lat, lon]"}
		}
		out[i] = model.Coordinate{Lat: p[0], Lon: p[1]}
	}
	return out, nil
}

func windows(pairs [][]float64) ([]model.TimeWindow, error) {
	out := make([]model.TimeWindow, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, &model.ValidationError{Field: fmt.Sprintf("time_windows[%d]", i), Reason: "must be [earliest, latest]"}
		}
		out[i] = model.TimeWindow{Earliest: p[0], Latest: p[1]}
	}
	return out, nil
}
