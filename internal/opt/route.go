// Package opt holds classical route heuristics and metrics: cost and
// on-time evaluation, the nearest-neighbor baseline, route repair, 2-opt
// polishing and the in-memory result history.
package opt

import "fleetopt/internal/model"

// Costs is a square travel-time matrix in minutes.
type Costs interface {
	N() int
	At(i, j int) float64
}

// RouteCost sums consecutive edges and closes the loop back to the depot
// unless the route already ends there. Routes shorter than 2 cost 0.
func RouteCost(route []int, m Costs) float64 {
	if len(route) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		total += m.At(route[i], route[i+1])
	}
	if last := route[len(route)-1]; last != 0 {
		total += m.At(last, 0)
	}
	return total
}

// onTime counts stops after the first whose window contains the elapsed
// time on arrival, and returns the denominator max(1, len-1).
func onTime(route []int, m Costs, windows []model.TimeWindow) (hits, stops int) {
	stops = max(1, len(route)-1)
	elapsed := 0.0
	for i := 1; i < len(route); i++ {
		node := route[i]
		if node < len(windows) && windows[node].Contains(elapsed) {
			hits++
		}
		next := 0
		if i < len(route)-1 {
			next = route[i+1]
		}
		elapsed += m.At(node, next)
	}
	return hits, stops
}

// OnTimeRatio is the percentage of stops reached inside their window. No
// windows, or a route shorter than 2, is 100.
func OnTimeRatio(route []int, m Costs, windows []model.TimeWindow) float64 {
	if len(windows) == 0 || len(route) < 2 {
		return 100
	}
	hits, stops := onTime(route, m, windows)
	return float64(hits) / float64(stops) * 100
}

// FleetCost is the summed cost of every vehicle route.
func FleetCost(routes [][]int, m Costs) float64 {
	total := 0.0
	for _, r := range routes {
		total += RouteCost(r, m)
	}
	return total
}

// FleetOnTimeRatio pools on-time stops over every vehicle route that has
// at least one stop.
func FleetOnTimeRatio(routes [][]int, m Costs, windows []model.TimeWindow) float64 {
	if len(windows) == 0 {
		return 100
	}
	hits, stops := 0, 0
	for _, r := range routes {
		if len(r) < 2 {
			continue
		}
		h, s := onTime(r, m, windows)
		hits += h
		stops += s
	}
	if stops == 0 {
		return 100
	}
	return float64(hits) / float64(stops) * 100
}

// Comparison is an optimized route measured against a baseline.
type Comparison struct {
	BaselineTime       float64 `json:"baseline_time"`
	OptimizedTime      float64 `json:"optimized_time"`
	ImprovementPercent float64 `json:"improvement_percent"`
	TimeSaved          float64 `json:"time_saved"`
}

// Compare costs both routes on m. A zero-cost baseline reports 0% improvement.
func Compare(m Costs, baseline, optimized []int) Comparison {
	return CompareCosts(RouteCost(baseline, m), RouteCost(optimized, m))
}

func CompareCosts(baselineTime, optimizedTime float64) Comparison {
	c := Comparison{
		BaselineTime:  baselineTime,
		OptimizedTime: optimizedTime,
		TimeSaved:     baselineTime - optimizedTime,
	}
	if baselineTime != 0 {
		c.ImprovementPercent = c.TimeSaved / baselineTime * 100
	}
	return c
}
