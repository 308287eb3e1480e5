package opt

import "slices"

// RepairTour turns a decoded, possibly partial, tour into a complete one:
// repeated nodes and out-of-range indices are dropped, the depot is moved
// to the front (rotating the cycle) or prepended, and every missing node is
// appended nearest-first from the current tail. changed reports whether
// the output differs from the input.
func RepairTour(route []int, m Costs) (out []int, changed bool) {
	n := m.N()
	seen := make([]bool, n)
	clean := make([]int, 0, n)
	for _, v := range route {
		if v < 0 || v >= n || seen[v] {
			continue
		}
		seen[v] = true
		clean = append(clean, v)
	}

	out = make([]int, 0, n)
	if seen[0] {
		at := 0
		for i, v := range clean {
			if v == 0 {
				at = i
				break
			}
		}
		out = append(out, clean[at:]...)
		out = append(out, clean[:at]...)
	} else {
		seen[0] = true
		out = append(out, 0)
		out = append(out, clean...)
	}

	for len(out) < n {
		next := nearestFrom(m, out[len(out)-1], seen)
		seen[next] = true
		out = append(out, next)
	}
	return out, !slices.Equal(route, out)
}

// RepairFleet makes sure every customer is served by some vehicle. Routes
// are deduplicated across the fleet and the depot leads every route. While
// a customer is unserved, the shortest route is extended with the unserved
// customer nearest its tail. A fleet with no routes gets one.
func RepairFleet(routes [][]int, m Costs) (out [][]int, changed bool) {
	n := m.N()
	seen := make([]bool, n)
	seen[0] = true
	for _, r := range routes {
		route := []int{0}
		for _, v := range r {
			if v <= 0 || v >= n || seen[v] {
				continue
			}
			seen[v] = true
			route = append(route, v)
		}
		if len(route) > 1 {
			out = append(out, route)
		}
	}
	for slices.Contains(seen, false) {
		if len(out) == 0 {
			out = append(out, []int{0})
		}
		shortest := 0
		for i := range out {
			if len(out[i]) < len(out[shortest]) {
				shortest = i
			}
		}
		r := out[shortest]
		next := nearestFrom(m, r[len(r)-1], seen)
		seen[next] = true
		out[shortest] = append(r, next)
	}
	if out == nil {
		out = [][]int{}
	}
	if len(out) != len(routes) {
		return out, true
	}
	for i := range out {
		if !slices.Equal(out[i], routes[i]) {
			return out, true
		}
	}
	return out, false
}
