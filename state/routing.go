package state

import (
	"fmt"
	"maps"
	"strings"
)

// Cost is a path metric. INF marks an unreachable destination.
type Cost uint32

func (c Cost) String() string {
	if c == INF {
		return "inf"
	}
	return fmt.Sprintf("%d", uint32(c))
}

type RoutingEntry struct {
	Destination NodeId
	Cost        Cost
	NextHop     NodeId
}

// IsDirect is true when the entry routes over the link to the destination itself.
func (e RoutingEntry) IsDirect() bool {
	return e.NextHop == e.Destination
}

func (e RoutingEntry) String() string {
	return fmt.Sprintf("(nh: %s, cost: %s)", e.NextHop, e.Cost)
}

// RoutingTable maps a destination to the single best known route towards it.
type RoutingTable map[NodeId]RoutingEntry

// Destinations returns the table's keys in NodeId order.
func (t RoutingTable) Destinations() []NodeId {
	return SortedIds(t)
}

func (t RoutingTable) String() string {
	sb := strings.Builder{}
	for i, dst := range t.Destinations() {
		if i != 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s via %s", dst, t[dst]))
	}
	return sb.String()
}

// AdvertisedVector is a neighbour's advertisement; the next hop for every entry is the sender.
type AdvertisedVector struct {
	Sender  NodeId
	Entries map[NodeId]Cost
	// LinkWeight is the sender's configured weight for the link to us, 0 if it did not say.
	LinkWeight Cost
}

func (v AdvertisedVector) Clone() AdvertisedVector {
	v.Entries = maps.Clone(v.Entries)
	if v.Entries == nil {
		v.Entries = make(map[NodeId]Cost)
	}
	return v
}

func (v AdvertisedVector) String() string {
	sb := strings.Builder{}
	for i, dst := range SortedIds(v.Entries) {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", dst, v.Entries[dst]))
	}
	return fmt.Sprintf("%s {%s}", v.Sender, sb.String())
}
