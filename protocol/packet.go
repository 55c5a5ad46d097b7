// Package protocol implements the datagram wire format exchanged between routers.
//
// Every datagram holds exactly one Packet, encoded in the protobuf wire format described by
// ripple.proto. The codec is written against protowire directly, so no generated code is needed.
package protocol

import (
	"errors"
	"net/netip"

	"github.com/google/uuid"
)

const (
	// Infinity is the reserved cost advertising an unreachable destination.
	Infinity = ^uint32(0)
	// MaxPacketSize is the largest UDP payload over IPv4.
	MaxPacketSize = 65507
)

var (
	ErrMalformedPacket = errors.New("malformed packet")
	ErrPacketTooLarge  = errors.New("packet too large")
)

type Packet struct {
	Vector       *Vector
	Message      *Message
	WeightUpdate *WeightUpdate
}

type Vector struct {
	Sender     netip.AddrPort
	LinkWeight uint32
	Entries    []Entry
}

type Entry struct {
	Destination netip.AddrPort
	Cost        uint32
}

type Message struct {
	Id          uuid.UUID
	Source      netip.AddrPort
	Destination netip.AddrPort
	TTL         uint8
	Body        []byte
}

type WeightUpdate struct {
	Sender netip.AddrPort
	Weight uint32
}
