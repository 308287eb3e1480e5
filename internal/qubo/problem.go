// Package qubo encodes routing problems as quadratic unconstrained binary
// optimization problems and decodes binary assignments back into routes.
package qubo

import (
	"sort"

	"fleetopt/internal/model"
)

// Pair is an unordered pair of variable indices, stored with I <= J.
// I == J is a linear (diagonal) term.
type Pair struct{ I, J int }

func pairOf(i, j int) Pair {
	if j < i {
		i, j = j, i
	}
	return Pair{I: i, J: j}
}

// Assignment maps a variable index to 0 or 1. Missing indices read as 0.
type Assignment map[int]int

// On reports whether variable i is set.
func (a Assignment) On(i int) bool { return a[i] == 1 }

// Problem is a sparse QUBO: minimize Offset + sum Q[i,j]*x_i*x_j.
type Problem struct {
	Q      map[Pair]float64
	Offset float64
	Vars   *Index
}

func newProblem(idx *Index) *Problem {
	return &Problem{Q: make(map[Pair]float64), Vars: idx}
}

// Add accumulates c into the coefficient of (i, j) in either order.
func (p *Problem) Add(i, j int, c float64) { p.Q[pairOf(i, j)] += c }

// declare makes sure i has a diagonal entry so samplers see every variable.
func (p *Problem) declare(i int) {
	k := Pair{I: i, J: i}
	if _, ok := p.Q[k]; !ok {
		p.Q[k] = 0
	}
}

// Kind is the routing formulation the variables describe.
func (p *Problem) Kind() model.ProblemKind { return p.Vars.Kind }

// Linear returns the diagonal coefficient of i.
func (p *Problem) Linear(i int) float64 { return p.Q[Pair{I: i, J: i}] }

// Variables returns every index referenced by any term, ascending.
func (p *Problem) Variables() []int {
	seen := make(map[int]struct{}, p.Vars.Len())
	for k := range p.Q {
		seen[k.I] = struct{}{}
		seen[k.J] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Energy evaluates the objective, constant offset included, under a.
func (p *Problem) Energy(a Assignment) float64 {
	e := p.Offset
	for k, c := range p.Q {
		if a.On(k.I) && a.On(k.J) {
			e += c
		}
	}
	return e
}

// Adjacency lists every variable's quadratic neighbours and the linear
// coefficients, the shape local-search samplers work on.
type Adjacency struct {
	Linear    map[int]float64
	Neighbors map[int][]Neighbor
}

type Neighbor struct {
	Var   int
	Coeff float64
}

func (p *Problem) Adjacency() Adjacency {
	adj := Adjacency{Linear: make(map[int]float64), Neighbors: make(map[int][]Neighbor)}
	keys := make([]Pair, 0, len(p.Q))
	for k := range p.Q {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].I != keys[b].I {
			return keys[a].I < keys[b].I
		}
		return keys[a].J < keys[b].J
	})
	for _, k := range keys {
		c := p.Q[k]
		if k.I == k.J {
			adj.Linear[k.I] += c
			continue
		}
		if _, ok := adj.Linear[k.I]; !ok {
			adj.Linear[k.I] = 0
		}
		if _, ok := adj.Linear[k.J]; !ok {
			adj.Linear[k.J] = 0
		}
		adj.Neighbors[k.I] = append(adj.Neighbors[k.I], Neighbor{Var: k.J, Coeff: c})
		adj.Neighbors[k.J] = append(adj.Neighbors[k.J], Neighbor{Var: k.I, Coeff: c})
	}
	return adj
}
