package qubo

import (
	"errors"
	"math"
	"testing"

	"fleetopt/internal/model"
	"fleetopt/internal/traffic"
)

func testMatrix(t *testing.T) *traffic.Matrix {
	t.Helper()
	m, err := traffic.NewMatrix([][]float64{
		{0, 4, 9, 7},
		{5, 0, 3, 8},
		{9, 2, 0, 6},
		{7, 8, 4, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func tourAssignment(idx *Index, tour []int) Assignment {
	a := Assignment{}
	for pos, node := range tour {
		v, _ := idx.TSP(node, pos)
		a[v] = 1
	}
	return a
}

func cycleCost(m Costs, tour []int) float64 {
	total := 0.0
	for p := range tour {
		total += m.At(tour[p], tour[(p+1)%len(tour)])
	}
	return total
}

func TestEncodeTSPVariableCount(t *testing.T) {
	m := testMatrix(t)
	p, err := NewEncoder(0).EncodeTSP(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Vars.Len() != 16 {
		t.Fatalf("Len = %d, want 16", p.Vars.Len())
	}
	if got := len(p.Variables()); got != 16 {
		t.Fatalf("referenced variables = %d, want 16", got)
	}
	for v := 0; v < 16; v++ {
		if _, ok := p.Q[Pair{I: v, J: v}]; !ok {
			t.Fatalf("variable %d has no diagonal term", v)
		}
	}
	if p.Offset != 8*DefaultLambda {
		t.Fatalf("offset = %v, want %v", p.Offset, 8*DefaultLambda)
	}
}

func TestEncodeTSPValidTourHasNoPenalty(t *testing.T) {
	m := testMatrix(t)
	p, err := NewEncoder(100).EncodeTSP(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tour := range [][]int{{0, 1, 2, 3}, {0, 2, 1, 3}, {3, 1, 0, 2}} {
		e := p.Energy(tourAssignment(p.Vars, tour))
		if want := cycleCost(m, tour); math.Abs(e-want) > 1e-9 {
			t.Fatalf("tour %v: energy %v, want cycle cost %v", tour, e, want)
		}
	}
}

func TestEncodeTSPPenalizesBrokenAssignments(t *testing.T) {
	zero, _ := traffic.NewMatrix([][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	p, err := NewEncoder(10).EncodeTSP(zero, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e := p.Energy(tourAssignment(p.Vars, []int{2, 0, 1})); e != 0 {
		t.Fatalf("valid one-hot energy = %v, want 0", e)
	}
	// every family sums to 0: 6 families * lambda
	if e := p.Energy(Assignment{}); e != 60 {
		t.Fatalf("empty assignment energy = %v, want 60", e)
	}
	// node 0 at two positions: its row sums to 2 (+lambda), positions 0 and 1
	// are fine, position 2 is empty (+lambda), nodes 1 and 2 unplaced (+2 lambda)
	a := tourAssignment(p.Vars, []int{0, 0})
	if e := p.Energy(a); e != 40 {
		t.Fatalf("duplicate node energy = %v, want 40", e)
	}
}

func TestEncodeTSPTimeWindowPenalty(t *testing.T) {
	m := testMatrix(t)
	enc := NewEncoder(60)
	plain, _ := enc.EncodeTSP(m, nil)
	windows := []model.TimeWindow{{Latest: 480}, {Latest: 480}, {Latest: 1}, {Earliest: 100, Latest: 480}}
	p, err := enc.EncodeTSP(m, windows)
	if err != nil {
		t.Fatal(err)
	}
	// min positive entry is 2, so the estimate at position pos is 7*pos
	for pos := 0; pos < 4; pos++ {
		arrival := 7.0 * float64(pos)
		v1, _ := p.Vars.TSP(1, pos)
		if p.Linear(v1) != plain.Linear(v1) {
			t.Fatalf("node 1 pos %d: wide window must not add penalty", pos)
		}
		v2, _ := p.Vars.TSP(2, pos)
		wantLate := 0.0
		if arrival > 1 {
			wantLate = 60 * (arrival - 1) / 60
		}
		if got := p.Linear(v2) - plain.Linear(v2); math.Abs(got-wantLate) > 1e-9 {
			t.Fatalf("node 2 pos %d: late penalty %v, want %v", pos, got, wantLate)
		}
		v3, _ := p.Vars.TSP(3, pos)
		wantEarly := 60 * (100 - arrival) / 60
		if got := p.Linear(v3) - plain.Linear(v3); math.Abs(got-wantEarly) > 1e-9 {
			t.Fatalf("node 3 pos %d: early penalty %v, want %v", pos, got, wantEarly)
		}
	}
	v0, _ := p.Vars.TSP(0, 3)
	if p.Linear(v0) != plain.Linear(v0) {
		t.Fatalf("depot must not receive window penalties")
	}
}

func TestEncodeTSPWindowLengthMismatch(t *testing.T) {
	_, err := NewEncoder(0).EncodeTSP(testMatrix(t), []model.TimeWindow{{Latest: 1}})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func vrpAssignment(idx *Index, edges []VRPVar) Assignment {
	a := Assignment{}
	for _, e := range edges {
		v, _ := idx.VRP(e.From, e.To, e.Vehicle)
		a[v] = 1
	}
	return a
}

var twoVehicleRoutes = []VRPVar{
	{From: 0, To: 1, Vehicle: 0}, {From: 1, To: 2, Vehicle: 0}, {From: 2, To: 0, Vehicle: 0},
	{From: 0, To: 3, Vehicle: 1}, {From: 3, To: 0, Vehicle: 1},
}

func TestEncodeVRP(t *testing.T) {
	m := testMatrix(t)
	p, err := NewEncoder(100).EncodeVRP(m, []float64{0, 1, 1, 1}, 10, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := 2 * 4 * 3; p.Vars.Len() != want {
		t.Fatalf("Len = %d, want %d", p.Vars.Len(), want)
	}
	want := 0.0
	for _, e := range twoVehicleRoutes {
		want += m.At(e.From, e.To)
	}
	if e := p.Energy(vrpAssignment(p.Vars, twoVehicleRoutes)); math.Abs(e-want) > 1e-9 {
		t.Fatalf("energy = %v, want %v", e, want)
	}
	for v := 0; v < p.Vars.Len(); v++ {
		if _, ok := p.Q[Pair{I: v, J: v}]; !ok {
			t.Fatalf("variable %d has no diagonal term", v)
		}
	}
}

func TestEncodeVRPCapacitySurcharge(t *testing.T) {
	m := testMatrix(t)
	enc := NewEncoder(100)
	roomy, _ := enc.EncodeVRP(m, []float64{0, 5, 5, 5}, 15, 2, nil)
	tight, err := enc.EncodeVRP(m, []float64{0, 5, 5, 5}, 10, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	surcharge := 100.0 * (15 - 10) / 10
	for k := 0; k < 2; k++ {
		in, _ := tight.Vars.VRP(0, 2, k)
		if got := tight.Linear(in) - roomy.Linear(in); math.Abs(got-surcharge) > 1e-9 {
			t.Fatalf("vehicle %d: surcharge %v, want %v", k, got, surcharge)
		}
		back, _ := tight.Vars.VRP(2, 0, k)
		if tight.Linear(back) != roomy.Linear(back) {
			t.Fatalf("vehicle %d: edge into depot must not be surcharged", k)
		}
	}
}

func TestEncodeVRPValidation(t *testing.T) {
	m := testMatrix(t)
	enc := NewEncoder(0)
	cases := map[string]func() error{
		"vehicles": func() error { _, err := enc.EncodeVRP(m, nil, 10, 0, nil); return err },
		"capacity": func() error { _, err := enc.EncodeVRP(m, nil, 0, 1, nil); return err },
		"demands":  func() error { _, err := enc.EncodeVRP(m, []float64{1}, 10, 1, nil); return err },
		"negative": func() error { _, err := enc.EncodeVRP(m, []float64{0, -1, 0, 0}, 10, 1, nil); return err },
		"fleet":    func() error { _, err := enc.EncodeVRP(m, nil, 10, 400000, nil); return err },
	}
	for name, f := range cases {
		var ve *model.ValidationError
		if err := f(); !errors.As(err, &ve) {
			t.Fatalf("%s: want ValidationError, got %v", name, err)
		}
	}
}

func TestEncodeRejectsOversizedProblems(t *testing.T) {
	m := testMatrix(t)
	small := &Encoder{Lambda: 10, MaxVars: 15}
	var ve *model.ValidationError
	if _, err := small.EncodeTSP(m, nil); !errors.As(err, &ve) {
		t.Fatalf("16 TSP variables over a limit of 15: got %v", err)
	}
	// 2 vehicles x 4 nodes x 3 targets
	if _, err := small.EncodeVRP(m, nil, 10, 2, nil); !errors.As(err, &ve) {
		t.Fatalf("24 VRP variables over a limit of 15: got %v", err)
	}
	if _, err := (&Encoder{Lambda: 10, MaxVars: 16}).EncodeTSP(m, nil); err != nil {
		t.Fatalf("problem at the limit rejected: %v", err)
	}
	if _, err := (&Encoder{Lambda: 10}).EncodeTSP(m, nil); err != nil {
		t.Fatalf("zero MaxVars should use the default: %v", err)
	}
}
