package opt

// NearestNeighbor builds the baseline tour: start at the depot and
// repeatedly move to the unvisited node with the smallest travel time.
// Ties go to the lower index, so the result is deterministic.
func NearestNeighbor(m Costs) []int {
	n := m.N()
	if n == 0 {
		return []int{}
	}
	visited := make([]bool, n)
	visited[0] = true
	route := make([]int, 1, n)
	cur := 0
	for len(route) < n {
		next := nearestFrom(m, cur, visited)
		visited[next] = true
		route = append(route, next)
		cur = next
	}
	return route
}

// nearestFrom returns the unvisited node closest to cur, or -1.
func nearestFrom(m Costs, cur int, visited []bool) int {
	best := -1
	for j := 0; j < m.N(); j++ {
		if visited[j] {
			continue
		}
		if best == -1 || m.At(cur, j) < m.At(cur, best) {
			best = j
		}
	}
	return best
}
