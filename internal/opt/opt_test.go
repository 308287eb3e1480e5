package opt

import (
	"math"
	"reflect"
	"sync"
	"testing"

	"fleetopt/internal/model"
)

type grid [][]float64

func (g grid) N() int              { return len(g) }
func (g grid) At(i, j int) float64 { return g[i][j] }

var fiveNodes = grid{
	{0, 10, 15, 20, 25},
	{12, 0, 35, 25, 30},
	{14, 30, 0, 15, 20},
	{22, 26, 12, 0, 11},
	{24, 28, 18, 13, 0},
}

func TestRouteCost(t *testing.T) {
	cases := []struct {
		route []int
		want  float64
	}{
		{nil, 0},
		{[]int{0}, 0},
		{[]int{0, 1}, 10 + 12},
		{[]int{0, 1, 2, 0}, 10 + 35 + 14},
		{[]int{0, 1, 2, 3, 4}, 10 + 35 + 15 + 11 + 24},
	}
	for _, tc := range cases {
		if got := RouteCost(tc.route, fiveNodes); got != tc.want {
			t.Fatalf("RouteCost(%v) = %v, want %v", tc.route, got, tc.want)
		}
	}
}

func TestRouteCostRelabelInvariant(t *testing.T) {
	// relabel nodes 1..4 with perm, keeping the depot at 0
	perm := []int{0, 3, 1, 4, 2}
	n := len(fiveNodes)
	relabeled := make(grid, n)
	for i := range relabeled {
		relabeled[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			relabeled[perm[i]][perm[j]] = fiveNodes[i][j]
		}
	}
	for _, route := range [][]int{{0, 1, 2, 3, 4}, {0, 4, 2, 1, 3}, {0, 3, 1}} {
		mapped := make([]int, len(route))
		for i, v := range route {
			mapped[i] = perm[v]
		}
		if a, b := RouteCost(route, fiveNodes), RouteCost(mapped, relabeled); a != b {
			t.Fatalf("route %v: cost %v, relabeled %v", route, a, b)
		}
	}
}

func TestOnTimeRatio(t *testing.T) {
	route := []int{0, 1, 2, 3, 4}
	if got := OnTimeRatio(route, fiveNodes, nil); got != 100 {
		t.Fatalf("no windows: %v", got)
	}
	if got := OnTimeRatio([]int{0}, fiveNodes, []model.TimeWindow{{}}); got != 100 {
		t.Fatalf("short route: %v", got)
	}
	// elapsed on arrival at 1,2,3,4 is 0, 35, 50, 61: the first stop is
	// checked before any travel is added
	windows := []model.TimeWindow{
		{Latest: 480},
		{Latest: 5},
		{Earliest: 30, Latest: 40},
		{Earliest: 60, Latest: 70},
		{Earliest: 62, Latest: 70},
	}
	if got := OnTimeRatio(route, fiveNodes, windows); got != 50 {
		t.Fatalf("OnTimeRatio = %v, want 50", got)
	}
}

func TestCompare(t *testing.T) {
	route := []int{0, 2, 4, 3, 1}
	c := Compare(fiveNodes, route, route)
	if c.ImprovementPercent != 0 || c.TimeSaved != 0 {
		t.Fatalf("self comparison = %+v", c)
	}
	c = Compare(fiveNodes, []int{0, 1, 2, 3, 4}, []int{0, 1, 3, 4, 2})
	// 95 vs 10+25+11+18+14 = 78
	if c.BaselineTime != 95 || c.OptimizedTime != 78 || c.TimeSaved != 17 {
		t.Fatalf("compare = %+v", c)
	}
	if math.Abs(c.ImprovementPercent-17.0/95*100) > 1e-9 {
		t.Fatalf("improvement = %v", c.ImprovementPercent)
	}
	if c := CompareCosts(0, 0); c.ImprovementPercent != 0 {
		t.Fatalf("zero baseline: %+v", c)
	}
}

func TestNearestNeighbor(t *testing.T) {
	route := NearestNeighbor(fiveNodes)
	if len(route) != 5 || route[0] != 0 {
		t.Fatalf("route = %v", route)
	}
	seen := map[int]bool{}
	for _, v := range route[1:] {
		if v == 0 || seen[v] {
			t.Fatalf("route %v repeats or revisits depot", route)
		}
		seen[v] = true
	}
	// 0->1 (10), 1->3 (25), 3->4 (11), 4->2 (18)
	if want := []int{0, 1, 3, 4, 2}; !reflect.DeepEqual(route, want) {
		t.Fatalf("route = %v, want %v", route, want)
	}
}

func TestNearestNeighborTieBreak(t *testing.T) {
	flat := grid{{0, 5, 5, 5}, {5, 0, 5, 5}, {5, 5, 0, 5}, {5, 5, 5, 0}}
	if got := NearestNeighbor(flat); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("route = %v", got)
	}
}

func TestImproveOrder2Opt(t *testing.T) {
	start := []int{0, 1, 2, 3, 4}
	got := ImproveOrder2Opt(fiveNodes, start, 10)
	if got[0] != 0 || len(got) != 5 {
		t.Fatalf("route = %v", got)
	}
	if RouteCost(got, fiveNodes) >= RouteCost(start, fiveNodes) {
		t.Fatalf("2-opt did not improve %v (cost %v)", got, RouteCost(got, fiveNodes))
	}
	if !reflect.DeepEqual(start, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("input mutated: %v", start)
	}
}

func TestRepairTour(t *testing.T) {
	cases := []struct {
		in      []int
		want    []int
		changed bool
	}{
		{[]int{0, 1, 3, 4, 2}, []int{0, 1, 3, 4, 2}, false},
		{[]int{3, 4, 0, 1, 2}, []int{0, 1, 2, 3, 4}, true},
		// depot missing: prepend it, then append the one node left
		{[]int{3, 4, 2}, []int{0, 3, 4, 2, 1}, true},
		{[]int{}, []int{0, 1, 3, 4, 2}, true},
		{[]int{0, 2, 2, 7, 1}, []int{0, 2, 1, 3, 4}, true},
	}
	for _, tc := range cases {
		got, changed := RepairTour(tc.in, fiveNodes)
		if !reflect.DeepEqual(got, tc.want) || changed != tc.changed {
			t.Fatalf("RepairTour(%v) = %v, %v; want %v, %v", tc.in, got, changed, tc.want, tc.changed)
		}
	}
}

func TestRepairFleet(t *testing.T) {
	routes := [][]int{{0, 1}, {0, 3, 1}}
	got, changed := RepairFleet(routes, fiveNodes)
	if !changed {
		t.Fatalf("expected repair")
	}
	served := map[int]int{}
	for _, r := range got {
		if r[0] != 0 {
			t.Fatalf("route %v does not start at the depot", r)
		}
		for _, v := range r[1:] {
			served[v]++
		}
	}
	for v := 1; v < 5; v++ {
		if served[v] != 1 {
			t.Fatalf("customer %d served %d times in %v", v, served[v], got)
		}
	}
	if _, changed := RepairFleet([][]int{{0, 1, 2}, {0, 3, 4}}, fiveNodes); changed {
		t.Fatalf("complete fleet must not change")
	}
	if got, _ := RepairFleet(nil, fiveNodes); len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("empty fleet repaired to %v", got)
	}
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistory[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Append(w*100 + i)
			}
		}(w)
	}
	wg.Wait()
	if h.Len() != 800 {
		t.Fatalf("Len = %d, want 800", h.Len())
	}
	list := h.List()
	list[0] = -1
	if h.List()[0] == -1 {
		t.Fatalf("List must return a copy")
	}
	if got := NewHistory[string]().List(); got == nil || len(got) != 0 {
		t.Fatalf("empty history list = %#v", got)
	}
}
