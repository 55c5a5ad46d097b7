package state

import (
	"fmt"
	"maps"
	"slices"
)

// VectorStore holds the router's own best routes and the last vector heard from each neighbour.
type VectorStore struct {
	routes RoutingTable
	cache  map[NodeId]AdvertisedVector
}

func NewVectorStore() *VectorStore {
	return &VectorStore{
		routes: make(RoutingTable),
		cache:  make(map[NodeId]AdvertisedVector),
	}
}

// CacheVector replaces the cached advertisement of v.Sender with a private copy of v.
func (vs *VectorStore) CacheVector(v AdvertisedVector) {
	vs.cache[v.Sender] = v.Clone()
}

func (vs *VectorStore) Cached(sender NodeId) (AdvertisedVector, bool) {
	v, ok := vs.cache[sender]
	return v, ok
}

// CachedCost is the cost sender last advertised for dst, or INF.
func (vs *VectorStore) CachedCost(sender, dst NodeId) Cost {
	v, ok := vs.cache[sender]
	if !ok {
		return INF
	}
	c, ok := v.Entries[dst]
	if !ok {
		return INF
	}
	return c
}

// CachedSenders returns the senders with a cached vector, in NodeId order.
func (vs *VectorStore) CachedSenders() []NodeId {
	return slices.SortedFunc(maps.Keys(vs.cache), NodeId.Compare)
}

// Forget drops the cached vector of sender and every route that uses it as next hop.
// The destinations of the dropped routes are returned in NodeId order.
func (vs *VectorStore) Forget(sender NodeId) []NodeId {
	delete(vs.cache, sender)
	dropped := make([]NodeId, 0)
	for dst, entry := range vs.routes {
		if entry.NextHop == sender {
			dropped = append(dropped, dst)
			delete(vs.routes, dst)
		}
	}
	slices.SortFunc(dropped, NodeId.Compare)
	return dropped
}

func (vs *VectorStore) Route(dst NodeId) (RoutingEntry, bool) {
	e, ok := vs.routes[dst]
	return e, ok
}

func (vs *VectorStore) Lookup(dst NodeId) (RoutingEntry, error) {
	e, ok := vs.routes[dst]
	if !ok {
		return RoutingEntry{}, fmt.Errorf("%w: %s", ErrUnknownDestination, dst)
	}
	return e, nil
}

// SetRoute replaces the entry for e.Destination. Unreachable entries are never stored.
func (vs *VectorStore) SetRoute(e RoutingEntry) {
	if e.Cost == INF {
		delete(vs.routes, e.Destination)
		return
	}
	vs.routes[e.Destination] = e
}

func (vs *VectorStore) DeleteRoute(dst NodeId) {
	delete(vs.routes, dst)
}

// BestRoutes returns a copy of the routing table.
func (vs *VectorStore) BestRoutes() RoutingTable {
	return maps.Clone(vs.routes)
}

// RoutesVia returns the destinations currently routed through nh, in NodeId order.
func (vs *VectorStore) RoutesVia(nh NodeId) []NodeId {
	out := make([]NodeId, 0)
	for dst, entry := range vs.routes {
		if entry.NextHop == nh {
			out = append(out, dst)
		}
	}
	slices.SortFunc(out, NodeId.Compare)
	return out
}
