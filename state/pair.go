package state

import (
	"maps"
	"slices"
)

type Pair[Ty1, Ty2 any] struct {
	V1 Ty1
	V2 Ty2
}

// SortedIds returns the keys of m in NodeId order.
func SortedIds[V any](m map[NodeId]V) []NodeId {
	return slices.SortedFunc(maps.Keys(m), NodeId.Compare)
}
