package qubo

import (
	"reflect"
	"testing"
)

func TestDecodeTSP(t *testing.T) {
	idx := newTSPIndex(4)
	got := Decode(tourAssignment(idx, []int{0, 3, 1, 2}), idx)
	if !reflect.DeepEqual(got.Route, []int{0, 3, 1, 2}) {
		t.Fatalf("route = %v", got.Route)
	}
	if len(got.Ambiguities) != 0 {
		t.Fatalf("ambiguities = %v", got.Ambiguities)
	}
}

func TestDecodeTSPToleratesMalformed(t *testing.T) {
	idx := newTSPIndex(4)
	a := tourAssignment(idx, []int{0, 3, 1, 2})
	// position 1 loses its node, position 2 gains a second one
	v, _ := idx.TSP(3, 1)
	delete(a, v)
	v, _ = idx.TSP(0, 2)
	a[v] = 1
	got := Decode(a, idx)
	if !reflect.DeepEqual(got.Route, []int{0, 2}) {
		t.Fatalf("route = %v, want [0 2]", got.Route)
	}
	want := []Ambiguity{{Kind: "position", Index: 1, Active: 0}, {Kind: "position", Index: 2, Active: 2}}
	if !reflect.DeepEqual(got.Ambiguities, want) {
		t.Fatalf("ambiguities = %v", got.Ambiguities)
	}

	all := Assignment{}
	for v := 0; v < idx.Len(); v++ {
		all[v] = 1
	}
	if got := Decode(all, idx); len(got.Route) != 0 || len(got.Ambiguities) != 4 {
		t.Fatalf("all-ones decode = %+v", got)
	}
	if got := Decode(nil, idx); len(got.Route) != 0 {
		t.Fatalf("nil assignment decode = %+v", got)
	}
}

func TestDecodeVRP(t *testing.T) {
	idx := newVRPIndex(4, 3)
	got := Decode(vrpAssignment(idx, twoVehicleRoutes), idx)
	want := [][]int{{0, 1, 2}, {0, 3}}
	if !reflect.DeepEqual(got.Routes, want) {
		t.Fatalf("routes = %v, want %v", got.Routes, want)
	}
}

func TestDecodeVRPStopsOnCycles(t *testing.T) {
	idx := newVRPIndex(4, 2)
	edges := []VRPVar{
		{From: 0, To: 1, Vehicle: 0}, {From: 1, To: 2, Vehicle: 0}, {From: 2, To: 1, Vehicle: 0},
		// vehicle 1 never leaves the depot
		{From: 2, To: 3, Vehicle: 1},
	}
	got := Decode(vrpAssignment(idx, edges), idx)
	if !reflect.DeepEqual(got.Routes, [][]int{{0, 1, 2}}) {
		t.Fatalf("routes = %v", got.Routes)
	}
}
