// Package risk selects the high-risk subset of a road network's
// intersections using a connectivity-degree threshold with a deterministic
// fallback ladder.
package risk

import "github.com/lifeline-labs/goldenhour/internal/model"

// FallbackMinDegree is the fixed secondary threshold used when the
// caller's minimum degree qualifies too few nodes. It is independent of
// the requested threshold so the relaxed selection is likely a superset.
const FallbackMinDegree = 2

// Classify returns the risk-qualifying subset of nodes for clustering.
// Selection preserves the input order of nodes and is fully deterministic.
//
// The fallback ladder, in fixed priority order:
//  1. degree >= minDegree; returned if it qualifies at least requiredCount nodes
//  2. degree >= FallbackMinDegree; returned if it qualifies at least requiredCount nodes
//  3. the full node sequence, unchanged
//
// The second return value is true when step 1 under-qualified and a lower
// rung was used; callers surface it as a threshold_fallback warning.
// requiredCount is the facility count: a heuristic to hand the optimizer
// at least that many samples, not a geometric guarantee.
func Classify(nodes []model.NetworkNode, minDegree, requiredCount int) ([]model.NetworkNode, bool) {
	primary := selectByDegree(nodes, minDegree)
	if len(primary) >= requiredCount {
		return primary, false
	}

	secondary := selectByDegree(nodes, FallbackMinDegree)
	if len(secondary) >= requiredCount {
		return secondary, true
	}

	return nodes, true
}

// selectByDegree returns the nodes with degree >= min, in input order.
func selectByDegree(nodes []model.NetworkNode, min int) []model.NetworkNode {
	var out []model.NetworkNode
	for _, n := range nodes {
		if n.Degree >= min {
			out = append(out, n)
		}
	}
	return out
}
