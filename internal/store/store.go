// Package store keeps named stop sets: reusable sample problems that
// optimize requests can reference instead of sending coordinates.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"fleetopt/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	ListStopSets(ctx context.Context) ([]model.StopSet, error)
	GetStopSet(ctx context.Context, name string) (model.StopSet, error)
	PutStopSet(ctx context.Context, s model.StopSet) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")

// DefaultStopSet names the set served by /api/sample.
const DefaultStopSet = "delhi"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Sample is a district hospital depot with eight clinics around it and
// staggered two-hour delivery windows.
func Sample() model.StopSet {
	const lat, lon = 28.6139, 77.2090
	offsets := [][2]float64{
		{0, 0},
		{0.01, 0.01},
		{-0.005, 0.015},
		{0.008, -0.008},
		{-0.012, -0.005},
		{0.015, 0.005},
		{-0.008, 0.012},
		{0.005, -0.012},
		{-0.015, -0.008},
	}
	s := model.StopSet{Name: DefaultStopSet, Description: "District hospital and eight clinics, Delhi"}
	for i, o := range offsets {
		s.Coordinates = append(s.Coordinates, model.Coordinate{Lat: lat + o[0], Lon: lon + o[1]})
		w := model.TimeWindow{Earliest: float64(60 * i), Latest: float64(60*i + 120)}
		if i == 0 {
			w = model.TimeWindow{Earliest: 0, Latest: 480}
		}
		s.TimeWindows = append(s.TimeWindows, w)
	}
	return s
}

// Validate checks a stop set before it is stored.
func Validate(s model.StopSet) error {
	if !namePattern.MatchString(s.Name) {
		return &model.ValidationError{Field: "name", Reason: "must be 1-64 lowercase letters, digits, '-' or '_'"}
	}
	if err := model.ValidateStops(s.Coordinates, s.TimeWindows); err != nil {
		return err
	}
	if len(s.Demands) > 0 && len(s.Demands) != len(s.Coordinates) {
		return &model.ValidationError{Field: "demands", Reason: fmt.Sprintf("got %d demands for %d stops", len(s.Demands), len(s.Coordinates))}
	}
	for i, d := range s.Demands {
		if d < 0 {
			return &model.ValidationError{Field: fmt.Sprintf("demands[%d]", i), Reason: "must be >= 0"}
		}
	}
	return nil
}
