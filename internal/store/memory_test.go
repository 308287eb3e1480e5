package store

import (
	"context"
	"errors"
	"testing"

	"fleetopt/internal/model"
)

func TestSampleIsValid(t *testing.T) {
	s := Sample()
	if err := Validate(s); err != nil {
		t.Fatal(err)
	}
	if len(s.Coordinates) != 9 || len(s.TimeWindows) != 9 {
		t.Fatalf("sample has %d stops, %d windows", len(s.Coordinates), len(s.TimeWindows))
	}
	if w := s.TimeWindows[3]; w.Earliest != 180 || w.Latest != 300 {
		t.Fatalf("clinic 3 window = %+v", w)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.GetStopSet(ctx, DefaultStopSet); err != nil {
		t.Fatalf("sample not seeded: %v", err)
	}
	if _, err := m.GetStopSet(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	in := model.StopSet{
		Name:        "airport",
		Coordinates: []model.Coordinate{{Lat: 28.55, Lon: 77.1}, {Lat: 28.56, Lon: 77.11}},
		Demands:     []float64{0, 4},
	}
	if err := m.PutStopSet(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Coordinates[0].Lat = 0
	got, err := m.GetStopSet(ctx, "airport")
	if err != nil {
		t.Fatal(err)
	}
	if got.Coordinates[0].Lat != 28.55 {
		t.Fatalf("stored set aliases caller slice")
	}
	got.Demands[1] = 99
	again, _ := m.GetStopSet(ctx, "airport")
	if again.Demands[1] != 4 {
		t.Fatalf("returned set aliases stored slice")
	}

	all, _ := m.ListStopSets(ctx)
	if len(all) != 2 || all[0].Name != "airport" || all[1].Name != DefaultStopSet {
		t.Fatalf("list = %+v", all)
	}
}

func TestValidateRejects(t *testing.T) {
	two := []model.Coordinate{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	cases := map[string]model.StopSet{
		"empty name":      {Coordinates: two},
		"upper case name": {Name: "Delhi", Coordinates: two},
		"one stop":        {Name: "x", Coordinates: two[:1]},
		"demand count":    {Name: "x", Coordinates: two, Demands: []float64{1}},
		"negative demand": {Name: "x", Coordinates: two, Demands: []float64{0, -1}},
		"bad window":      {Name: "x", Coordinates: two, TimeWindows: []model.TimeWindow{{Earliest: 5, Latest: 1}, {}}},
	}
	for name, s := range cases {
		var ve *model.ValidationError
		if err := NewMemory().PutStopSet(context.Background(), s); !errors.As(err, &ve) {
			t.Fatalf("%s: want ValidationError, got %v", name, err)
		}
	}
}
