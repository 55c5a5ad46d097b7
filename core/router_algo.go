package core

import (
	"github.com/encodeous/ripple/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteImproved
	RouteWorsened
	RouteRetracted
	NeighbourAdded
	NeighbourDiscovered
	NeighbourEvicted
	LinkWeightChanged
	MessageDelivered
	MessageForwarded
	MessageDropped
)

// warn events

const (
	InconsistentState RouterEvent = iota + 1000
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteImproved:
		return "RouteImproved"
	case RouteWorsened:
		return "RouteWorsened"
	case RouteRetracted:
		return "RouteRetracted"
	case NeighbourAdded:
		return "NeighbourAdded"
	case NeighbourDiscovered:
		return "NeighbourDiscovered"
	case NeighbourEvicted:
		return "NeighbourEvicted"
	case LinkWeightChanged:
		return "LinkWeightChanged"
	case MessageDelivered:
		return "MessageDelivered"
	case MessageForwarded:
		return "MessageForwarded"
	case MessageDropped:
		return "MessageDropped"
	case InconsistentState:
		return "InconsistentState"
	default:
		return "Unknown"
	}
}

// Router receives the events produced while the routing state changes
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

func setRoute(s *state.RouterState, r Router, next state.RoutingEntry) {
	if next.Cost == state.INF {
		retract(s, r, next.Destination)
		return
	}
	old, had := s.Vectors.Route(next.Destination)
	if had && old == next {
		return
	}
	s.Vectors.SetRoute(next)
	switch {
	case !had:
		r.Log(RouteAdded, "route added", "dst", next.Destination, "route", next)
	case next.Cost <= old.Cost:
		r.Log(RouteImproved, "route improved", "dst", next.Destination, "old", old, "route", next)
	default:
		r.Log(RouteWorsened, "route worsened", "dst", next.Destination, "old", old, "route", next)
	}
}

func retract(s *state.RouterState, r Router, dst state.NodeId) {
	old, had := s.Vectors.Route(dst)
	if !had {
		return
	}
	s.Vectors.DeleteRoute(dst)
	r.Log(RouteRetracted, "route retracted", "dst", dst, "old", old)
}

// costVia is the cost of reaching dst through the neighbour nh, using nh's cached vector.
func costVia(s *state.RouterState, nh, dst state.NodeId) state.Cost {
	w, err := s.Neighbours.WeightOf(nh)
	if err != nil {
		return state.INF
	}
	if nh == dst {
		return w
	}
	return AddCost(s.Vectors.CachedCost(nh, dst), w)
}

// reselect recomputes the route to dst from the links and cached vectors of every live neighbour.
// Ties go to the lowest neighbour id. It reports whether any route was found.
func reselect(s *state.RouterState, r Router, dst state.NodeId) bool {
	if dst == s.Id {
		return false
	}
	best := state.RoutingEntry{Destination: dst, Cost: state.INF}
	for _, nh := range s.Neighbours.Ids() {
		c := costVia(s, nh, dst)
		if c < best.Cost {
			best.Cost = c
			best.NextHop = nh
		}
	}
	if best.Cost == state.INF {
		retract(s, r, dst)
		return false
	}
	setRoute(s, r, best)
	return true
}

// relaxFrom applies the Bellman-Ford update rule to every destination advertised by sender.
func relaxFrom(s *state.RouterState, r Router, sender state.NodeId, entries map[state.NodeId]state.Cost) {
	for _, dst := range state.SortedIds(entries) {
		if dst == s.Id {
			continue
		}
		candidate := costVia(s, sender, dst)
		cur, ok := s.Vectors.Route(dst)
		switch {
		case !ok:
			if candidate != state.INF {
				setRoute(s, r, state.RoutingEntry{Destination: dst, Cost: candidate, NextHop: sender})
			}
		case cur.NextHop == sender:
			// the sender is authoritative for this route, so the cost follows it, even upwards
			if candidate == state.INF {
				reselect(s, r, dst)
			} else {
				setRoute(s, r, state.RoutingEntry{Destination: dst, Cost: candidate, NextHop: sender})
			}
		case candidate < cur.Cost:
			setRoute(s, r, state.RoutingEntry{Destination: dst, Cost: candidate, NextHop: sender})
		}
	}
}

// enforceDirectLinks makes sure no neighbour is reached at a cost worse than the link to it.
func enforceDirectLinks(s *state.RouterState, r Router) {
	for _, n := range s.Neighbours.Snapshot() {
		cur, ok := s.Vectors.Route(n.Id)
		if !ok || n.LinkWeight < cur.Cost {
			setRoute(s, r, state.RoutingEntry{Destination: n.Id, Cost: n.LinkWeight, NextHop: n.Id})
		}
	}
}

func discoverWeight(s *state.RouterState, vec state.AdvertisedVector) state.Cost {
	if w, ok := s.Static[vec.Sender]; ok {
		return w
	}
	if vec.LinkWeight != 0 && vec.LinkWeight < state.INFM {
		return vec.LinkWeight
	}
	if c, ok := vec.Entries[s.Id]; ok && c != 0 && c < state.INFM {
		return c
	}
	return state.DefaultLinkWeight
}

// HandleVector processes a full distance vector advertised by sender.
func HandleVector(s *state.RouterState, r Router, sender state.NodeId, vec state.AdvertisedVector) {
	if sender == s.Id {
		r.Log(InconsistentState, "ignored vector advertised by ourselves", "sender", sender)
		return
	}
	vec.Sender = sender

	if !s.Neighbours.Contains(sender) {
		w := discoverWeight(s, vec)
		s.Neighbours.Add(sender, w)
		r.Log(NeighbourDiscovered, "neighbour discovered", "neigh", sender, "weight", w)
	}
	s.Neighbours.Reset(sender)
	s.Vectors.CacheVector(vec)

	relaxFrom(s, r, sender, vec.Entries)

	// the vector replaces the previous one in full, so anything it no longer mentions is withdrawn
	for _, dst := range s.Vectors.RoutesVia(sender) {
		if dst == sender {
			continue
		}
		if _, ok := vec.Entries[dst]; !ok {
			reselect(s, r, dst)
		}
	}

	enforceDirectLinks(s, r)
}

func applyLinkWeight(s *state.RouterState, r Router, neigh state.NodeId, weight state.Cost) {
	s.Static[neigh] = weight
	s.Neighbours.Add(neigh, weight)

	for _, dst := range s.Vectors.RoutesVia(neigh) {
		candidate := costVia(s, neigh, dst)
		if candidate == state.INF {
			reselect(s, r, dst)
		} else {
			setRoute(s, r, state.RoutingEntry{Destination: dst, Cost: candidate, NextHop: neigh})
		}
	}
	if v, ok := s.Vectors.Cached(neigh); ok {
		relaxFrom(s, r, neigh, v.Entries)
	}

	enforceDirectLinks(s, r)
}

// AddNeighbour registers a configured link.
func AddNeighbour(s *state.RouterState, r Router, neigh state.NodeId, weight state.Cost) {
	if neigh == s.Id {
		r.Log(InconsistentState, "attempted to add ourselves as a neighbour", "neigh", neigh)
		return
	}
	r.Log(NeighbourAdded, "neighbour added", "neigh", neigh, "weight", weight)
	applyLinkWeight(s, r, neigh, weight)
}

// HandleLinkWeightChange updates the weight of the link to neigh and re-relaxes every route
// using it from the vector neigh last advertised.
func HandleLinkWeightChange(s *state.RouterState, r Router, neigh state.NodeId, weight state.Cost) {
	if neigh == s.Id {
		r.Log(InconsistentState, "attempted to change the weight of a link to ourselves", "neigh", neigh)
		return
	}
	old, err := s.Neighbours.WeightOf(neigh)
	if err != nil {
		r.Log(LinkWeightChanged, "link weight set for new neighbour", "neigh", neigh, "weight", weight)
	} else {
		r.Log(LinkWeightChanged, "link weight changed", "neigh", neigh, "old", old, "weight", weight)
	}
	applyLinkWeight(s, r, neigh, weight)
}
