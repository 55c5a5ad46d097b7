package state

import "time"

const (
	INF = ^(Cost)(0)
	// INFM is the maximum value for a cost that is not a retraction.
	INFM = INF - 1
)

var (
	// EvictionThreshold is the number of consecutive liveness ticks a neighbour may stay silent.
	EvictionThreshold  = 3
	DefaultLinkWeight  = (Cost)(1)
	AdvertiseDelay     = time.Second * 10
	LivenessDelay      = time.Second * 10
	InitialDelay       = time.Millisecond * 100
	MessageDedupTTL    = time.Second * 30
	MessageTTL         = (uint8)(32)
	TraceBufferSize    = 128
	DispatchBufferSize = 128
	// SafeMTU bounds a single encoded datagram
	SafeMTU = 64 * 1024

	// log rotation defaults
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
)
