package state

import (
	"fmt"
	"strings"
)

// RouterState is the full routing context of one router. It is owned by the dispatch goroutine.
type RouterState struct {
	Id         NodeId
	Neighbours *NeighbourTable
	Vectors    *VectorStore
	// Static holds the link weights from the topology (and later CHANGE commands), used when a
	// neighbour that was evicted is heard from again.
	Static          map[NodeId]Cost
	PoisonedReverse bool
}

func NewRouterState(id NodeId, poisonedReverse bool) *RouterState {
	return &RouterState{
		Id:              id,
		Neighbours:      NewNeighbourTable(),
		Vectors:         NewVectorStore(),
		Static:          make(map[NodeId]Cost),
		PoisonedReverse: poisonedReverse,
	}
}

func (s *RouterState) Lookup(dst NodeId) (RoutingEntry, error) {
	return s.Vectors.Lookup(dst)
}

// StringRoutes renders the routing table, one destination per line.
func (s *RouterState) StringRoutes() string {
	return s.Vectors.BestRoutes().String()
}

// StringNeighbours renders every neighbour together with the vector it last advertised.
func (s *RouterState) StringNeighbours() string {
	sb := strings.Builder{}
	for _, n := range s.Neighbours.Snapshot() {
		sb.WriteString(fmt.Sprintf("%s weight %s missed %d\n", n.Id, n.LinkWeight, n.MissedTicks))
		v, ok := s.Vectors.Cached(n.Id)
		if !ok || len(v.Entries) == 0 {
			sb.WriteString("  (no vector)\n")
			continue
		}
		for _, dst := range SortedIds(v.Entries) {
			sb.WriteString(fmt.Sprintf("  %s %s\n", dst, v.Entries[dst]))
		}
	}
	return sb.String()
}
