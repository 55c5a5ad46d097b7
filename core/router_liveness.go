package core

import "github.com/encodeous/ripple/state"

// RunLiveness ages every neighbour by one tick. Neighbours silent for state.EvictionThreshold
// ticks are evicted, together with their cached vector and every route through them; the
// affected destinations are then recomputed from the remaining neighbours.
func RunLiveness(s *state.RouterState, r Router) []state.NodeId {
	evicted := s.Neighbours.Tick()
	for _, neigh := range evicted {
		dropped := s.Vectors.Forget(neigh)
		r.Log(NeighbourEvicted, "neighbour evicted", "neigh", neigh, "routes", len(dropped))
		for _, dst := range dropped {
			if !reselect(s, r, dst) {
				r.Log(RouteRetracted, "route retracted", "dst", dst, "via", neigh)
			}
		}
	}
	return evicted
}
