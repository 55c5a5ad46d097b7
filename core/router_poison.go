package core

import (
	"slices"

	"github.com/encodeous/ripple/state"
)

// VectorFor builds the vector advertised to target. Routes whose next hop is target are
// poisoned (advertised as state.INF), so target never routes back through us for them.
// It must be recomputed for every neighbour, as the poisoned set differs per target.
func VectorFor(s *state.RouterState, target state.NodeId) map[state.NodeId]state.Cost {
	routes := s.Vectors.BestRoutes()
	out := make(map[state.NodeId]state.Cost, len(routes))
	for dst, entry := range routes {
		if s.PoisonedReverse && entry.NextHop == target {
			out[dst] = state.INF
		} else {
			out[dst] = entry.Cost
		}
	}
	return out
}

// AdvertiseTargets lists the live neighbours plus every configured link that is currently
// evicted, in NodeId order. Configured links keep receiving vectors so the far end rediscovers
// the link once it heals.
func AdvertiseTargets(s *state.RouterState) []state.NodeId {
	targets := s.Neighbours.Ids()
	for _, id := range state.SortedIds(s.Static) {
		if !s.Neighbours.Contains(id) {
			targets = append(targets, id)
		}
	}
	slices.SortFunc(targets, state.NodeId.Compare)
	return targets
}
