package state

import "errors"

var (
	// ErrUnknownDestination is returned on a routing table miss; callers treat it as "no route".
	ErrUnknownDestination = errors.New("unknown destination")
	ErrUnknownNeighbour   = errors.New("unknown neighbour")
)
