package qubo

import "fleetopt/internal/model"

// TSPVar is "node occupies tour position".
type TSPVar struct{ Node, Pos int }

// VRPVar is "vehicle travels directly From -> To".
type VRPVar struct{ From, To, Vehicle int }

// Index is the bijection between decision variables and integer indices.
type Index struct {
	Kind     model.ProblemKind
	Nodes    int
	Vehicles int

	tsp    []TSPVar
	tspIdx map[TSPVar]int
	vrp    []VRPVar
	vrpIdx map[VRPVar]int
}

func newTSPIndex(n int) *Index {
	idx := &Index{Kind: model.KindTSP, Nodes: n, Vehicles: 1, tspIdx: make(map[TSPVar]int, n*n)}
	for i := 0; i < n; i++ {
		for p := 0; p < n; p++ {
			v := TSPVar{Node: i, Pos: p}
			idx.tspIdx[v] = len(idx.tsp)
			idx.tsp = append(idx.tsp, v)
		}
	}
	return idx
}

func newVRPIndex(n, vehicles int) *Index {
	idx := &Index{Kind: model.KindVRP, Nodes: n, Vehicles: vehicles, vrpIdx: make(map[VRPVar]int, vehicles*n*(n-1))}
	for k := 0; k < vehicles; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				v := VRPVar{From: i, To: j, Vehicle: k}
				idx.vrpIdx[v] = len(idx.vrp)
				idx.vrp = append(idx.vrp, v)
			}
		}
	}
	return idx
}

// Len is the number of decision variables.
func (x *Index) Len() int {
	if x.Kind == model.KindVRP {
		return len(x.vrp)
	}
	return len(x.tsp)
}

func (x *Index) TSP(node, pos int) (int, bool) {
	i, ok := x.tspIdx[TSPVar{Node: node, Pos: pos}]
	return i, ok
}

func (x *Index) VRP(from, to, vehicle int) (int, bool) {
	i, ok := x.vrpIdx[VRPVar{From: from, To: to, Vehicle: vehicle}]
	return i, ok
}

// TSPVarAt is the inverse of TSP; ok is false outside the index.
func (x *Index) TSPVarAt(i int) (TSPVar, bool) {
	if i < 0 || i >= len(x.tsp) {
		return TSPVar{}, false
	}
	return x.tsp[i], true
}

// VRPVarAt is the inverse of VRP; ok is false outside the index.
func (x *Index) VRPVarAt(i int) (VRPVar, bool) {
	if i < 0 || i >= len(x.vrp) {
		return VRPVar{}, false
	}
	return x.vrp[i], true
}
