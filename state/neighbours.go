package state

import (
	"fmt"
	"maps"
	"slices"
)

type NeighbourInfo struct {
	Id          NodeId
	LinkWeight  Cost
	MissedTicks int
}

// NeighbourTable tracks directly adjacent routers, their link weights and liveness.
type NeighbourTable struct {
	neighbours map[NodeId]*NeighbourInfo
}

func NewNeighbourTable() *NeighbourTable {
	return &NeighbourTable{
		neighbours: make(map[NodeId]*NeighbourInfo),
	}
}

// Add registers a neighbour, or replaces the weight of an existing one. Either way the neighbour is considered alive.
func (t *NeighbourTable) Add(id NodeId, weight Cost) {
	n, ok := t.neighbours[id]
	if !ok {
		n = &NeighbourInfo{Id: id}
		t.neighbours[id] = n
	}
	n.LinkWeight = weight
	n.MissedTicks = 0
}

func (t *NeighbourTable) Contains(id NodeId) bool {
	_, ok := t.neighbours[id]
	return ok
}

func (t *NeighbourTable) WeightOf(id NodeId) (Cost, error) {
	n, ok := t.neighbours[id]
	if !ok {
		return INF, fmt.Errorf("%w: %s", ErrUnknownNeighbour, id)
	}
	return n.LinkWeight, nil
}

// Reset marks the neighbour as heard from during the current liveness cycle.
func (t *NeighbourTable) Reset(id NodeId) {
	if n, ok := t.neighbours[id]; ok {
		n.MissedTicks = 0
	}
}

func (t *NeighbourTable) Remove(id NodeId) {
	delete(t.neighbours, id)
}

// Tick ages every neighbour by one cycle, removing and returning those that reached EvictionThreshold.
// Neighbours heard from since the previous tick are aged too, so a neighbour is evicted on the
// EvictionThreshold-th tick after its last vector, which is between EvictionThreshold-1 and
// EvictionThreshold full intervals of silence.
func (t *NeighbourTable) Tick() []NodeId {
	evicted := make([]NodeId, 0)
	for id, n := range t.neighbours {
		n.MissedTicks++
		if n.MissedTicks >= EvictionThreshold {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		delete(t.neighbours, id)
	}
	slices.SortFunc(evicted, NodeId.Compare)
	return evicted
}

// Ids returns the neighbour ids in NodeId order.
func (t *NeighbourTable) Ids() []NodeId {
	return slices.SortedFunc(maps.Keys(t.neighbours), NodeId.Compare)
}

// Snapshot returns copies of every neighbour, ordered by id.
func (t *NeighbourTable) Snapshot() []NeighbourInfo {
	out := make([]NeighbourInfo, 0, len(t.neighbours))
	for _, id := range t.Ids() {
		out = append(out, *t.neighbours[id])
	}
	return out
}

func (t *NeighbourTable) Len() int {
	return len(t.neighbours)
}
