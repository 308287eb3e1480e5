package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Coordinate is a (latitude, longitude) pair in degrees. Index 0 of any
// coordinate list is the depot.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate rejects NaN/Inf and out-of-range values; idx is used in the message.
func (c Coordinate) Validate(idx int) error {
	field := fmt.Sprintf("coordinates[%d]", idx)
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return &ValidationError{Field: field, Reason: "latitude and longitude must be finite"}
	}
	if c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("latitude %v out of range [-90,90]", c.Lat)}
	}
	if c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("longitude %v out of range [-180,180]", c.Lon)}
	}
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must be [lat, lon], got %d values", len(pair))
	}
	c.Lat, c.Lon = pair[0], pair[1]
	return nil
}

// TimeWindow bounds the arrival at a stop, in minutes from departure.
type TimeWindow struct {
	Earliest float64
	Latest   float64
}

// Contains reports whether t lies inside the closed window.
func (w TimeWindow) Contains(t float64) bool { return w.Earliest <= t && t <= w.Latest }

func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{w.Earliest, w.Latest})
}

func (w *TimeWindow) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("time window must be [earliest, latest], got %d values", len(pair))
	}
	w.Earliest, w.Latest = pair[0], pair[1]
	return nil
}

// ProblemKind selects the routing formulation.
type ProblemKind string

const (
	KindTSP ProblemKind = "tsp"
	KindVRP ProblemKind = "vrp"
)

// ParseProblemKind maps the wire value; empty means tsp.
func ParseProblemKind(s string) (ProblemKind, error) {
	switch s {
	case "", string(KindTSP):
		return KindTSP, nil
	case string(KindVRP):
		return KindVRP, nil
	default:
		return "", &ValidationError{Field: "problem_type", Reason: fmt.Sprintf("unknown problem type %q (allowed: tsp,vrp)", s)}
	}
}

// ValidateStops checks a stop list: at least two valid coordinates, and
// when windows are given, one per coordinate with earliest <= latest.
func ValidateStops(coords []Coordinate, windows []TimeWindow) error {
	if len(coords) == 0 {
		return &ValidationError{Field: "coordinates", Reason: "no coordinates provided"}
	}
	if len(coords) < 2 {
		return &ValidationError{Field: "coordinates", Reason: "at least 2 coordinates required"}
	}
	for i, c := range coords {
		if err := c.Validate(i); err != nil {
			return err
		}
	}
	if windows == nil {
		return nil
	}
	if len(windows) != len(coords) {
		return &ValidationError{Field: "time_windows", Reason: fmt.Sprintf("expected %d windows, got %d", len(coords), len(windows))}
	}
	for i, w := range windows {
		if math.IsNaN(w.Earliest) || math.IsNaN(w.Latest) || w.Earliest > w.Latest {
			return &ValidationError{Field: fmt.Sprintf("time_windows[%d]", i), Reason: "earliest must not exceed latest"}
		}
	}
	return nil
}
