package qubo

import (
	"sort"

	"fleetopt/internal/model"
)

// Ambiguity records a position or vehicle the decoder could not read
// cleanly. It is not an error: the slot is omitted from the route.
type Ambiguity struct {
	Kind   string `json:"kind"` // "position" or "vehicle"
	Index  int    `json:"index"`
	Active int    `json:"active"`
}

// Decoded holds the route(s) read from an assignment.
type Decoded struct {
	Kind        model.ProblemKind
	Route       []int   // tsp
	Routes      [][]int // vrp, one per vehicle that leaves the depot
	Ambiguities []Ambiguity
}

// Decode reads a, which may be partial or non-physical, against idx.
func Decode(a Assignment, idx *Index) Decoded {
	if idx.Kind == model.KindVRP {
		return decodeVRP(a, idx)
	}
	return decodeTSP(a, idx)
}

func decodeTSP(a Assignment, idx *Index) Decoded {
	active := make(map[int][]int, idx.Nodes)
	for v := 0; v < idx.Len(); v++ {
		if !a.On(v) {
			continue
		}
		tv, _ := idx.TSPVarAt(v)
		active[tv.Pos] = append(active[tv.Pos], tv.Node)
	}
	out := Decoded{Kind: model.KindTSP, Route: []int{}}
	for pos := 0; pos < idx.Nodes; pos++ {
		nodes := active[pos]
		if len(nodes) == 1 {
			out.Route = append(out.Route, nodes[0])
			continue
		}
		out.Ambiguities = append(out.Ambiguities, Ambiguity{Kind: "position", Index: pos, Active: len(nodes)})
	}
	return out
}

func decodeVRP(a Assignment, idx *Index) Decoded {
	edges := make(map[int][]VRPVar, idx.Vehicles)
	for v := 0; v < idx.Len(); v++ {
		if !a.On(v) {
			continue
		}
		ev, _ := idx.VRPVarAt(v)
		edges[ev.Vehicle] = append(edges[ev.Vehicle], ev)
	}
	vehicles := make([]int, 0, len(edges))
	for k := range edges {
		vehicles = append(vehicles, k)
	}
	sort.Ints(vehicles)

	out := Decoded{Kind: model.KindVRP, Routes: [][]int{}}
	for _, k := range vehicles {
		route, branching := walk(edges[k])
		if branching {
			out.Ambiguities = append(out.Ambiguities, Ambiguity{Kind: "vehicle", Index: k, Active: len(edges[k])})
		}
		if len(route) > 1 {
			out.Routes = append(out.Routes, route)
		}
	}
	return out
}

// walk follows edges from the depot, taking the first unused edge leaving
// the current node, until none remains, the depot is re-entered or a node
// repeats. branching reports a node with more than one outgoing edge.
func walk(edges []VRPVar) (route []int, branching bool) {
	outdeg := make(map[int]int, len(edges))
	for _, e := range edges {
		outdeg[e.From]++
		if outdeg[e.From] > 1 {
			branching = true
		}
	}
	used := make([]bool, len(edges))
	seen := map[int]bool{0: true}
	route = []int{0}
	cur := 0
	for {
		next := -1
		for i, e := range edges {
			if !used[i] && e.From == cur {
				used[i] = true
				next = e.To
				break
			}
		}
		if next <= 0 || seen[next] {
			return route, branching
		}
		seen[next] = true
		route = append(route, next)
		cur = next
	}
}
