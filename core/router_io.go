package core

import (
	"fmt"
	"net/netip"

	"github.com/encodeous/ripple/perf"
	"github.com/encodeous/ripple/protocol"
	"github.com/encodeous/ripple/state"
)

func toWireCost(c state.Cost) uint32 {
	if c == state.INF {
		return protocol.Infinity
	}
	return uint32(c)
}

func fromWireCost(c uint32) state.Cost {
	if c == protocol.Infinity {
		return state.INF
	}
	return state.Cost(c)
}

// EncodeVector builds the vector packet sent to target, with poisoned reverse applied.
func EncodeVector(s *state.RouterState, target state.NodeId) *protocol.Packet {
	entries := VectorFor(s, target)
	vec := &protocol.Vector{
		Sender:  s.Id.AddrPort(),
		Entries: make([]protocol.Entry, 0, len(entries)),
	}
	if w, err := s.Neighbours.WeightOf(target); err == nil {
		vec.LinkWeight = toWireCost(w)
	} else if w, ok := s.Static[target]; ok {
		vec.LinkWeight = toWireCost(w)
	}
	for _, dst := range state.SortedIds(entries) {
		vec.Entries = append(vec.Entries, protocol.Entry{
			Destination: dst.AddrPort(),
			Cost:        toWireCost(entries[dst]),
		})
	}
	return &protocol.Packet{Vector: vec}
}

// DecodeVector converts a received vector into routing state. Entries with invalid addresses are skipped.
func DecodeVector(v *protocol.Vector) state.AdvertisedVector {
	out := state.AdvertisedVector{
		Sender:  state.NodeIdFrom(v.Sender.Addr(), v.Sender.Port()),
		Entries: make(map[state.NodeId]state.Cost, len(v.Entries)),
	}
	if v.LinkWeight != protocol.Infinity {
		out.LinkWeight = state.Cost(v.LinkWeight)
	}
	for _, e := range v.Entries {
		dst := state.NodeIdFrom(e.Destination.Addr(), e.Destination.Port())
		if !dst.IsValid() {
			continue
		}
		out.Entries[dst] = fromWireCost(e.Cost)
	}
	return out
}

func sendPacket(s *state.State, to state.NodeId, pkt *protocol.Packet) error {
	t := Get[*Transport](s)
	data, err := protocol.Encode(pkt)
	if err != nil {
		return err
	}
	err = t.Link.Send(to.AddrPort(), data)
	if err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	perf.SentBytesPerSecond.Add(float64(len(data)))
	return nil
}

// advertiseAll sends every advertisement target its own copy of our vector. Send failures are
// logged, as the next round retries anyway.
func advertiseAll(s *state.State) {
	for _, neigh := range AdvertiseTargets(s.RouterState) {
		err := sendPacket(s, neigh, EncodeVector(s.RouterState, neigh))
		if err != nil {
			s.Log.Warn("failed to advertise vector", "neigh", neigh, "err", err)
			continue
		}
		perf.VectorsSentPerSecond.Add(1)
	}
}

func sendWeightUpdate(s *state.State, neigh state.NodeId, weight state.Cost) {
	err := sendPacket(s, neigh, &protocol.Packet{WeightUpdate: &protocol.WeightUpdate{
		Sender: s.Id.AddrPort(),
		Weight: toWireCost(weight),
	}})
	if err != nil {
		s.Log.Warn("failed to send weight update", "neigh", neigh, "err", err)
	}
}

// packet handlers

func handlePacket(s *state.State, from netip.AddrPort, pkt *protocol.Packet) error {
	switch {
	case pkt.Vector != nil:
		return routerHandleVector(s, pkt.Vector)
	case pkt.WeightUpdate != nil:
		return routerHandleWeightUpdate(s, pkt.WeightUpdate)
	case pkt.Message != nil:
		return Get[*Messenger](s).Handle(s, pkt.Message)
	}
	s.Log.Warn("received empty packet", "from", from)
	return nil
}

func routerHandleVector(s *state.State, v *protocol.Vector) error {
	r := Get[*DvRouter](s)
	vec := DecodeVector(v)
	if !vec.Sender.IsValid() {
		s.Log.Warn("received vector with invalid sender", "sender", v.Sender)
		return nil
	}
	perf.VectorsRecvPerSecond.Add(1)
	HandleVector(s.RouterState, r, vec.Sender, vec)
	return nil
}

func routerHandleWeightUpdate(s *state.State, w *protocol.WeightUpdate) error {
	r := Get[*DvRouter](s)
	neigh := state.NodeIdFrom(w.Sender.Addr(), w.Sender.Port())
	weight := fromWireCost(w.Weight)
	if err := state.WeightValidator(weight); err != nil {
		s.Log.Warn("received invalid weight update", "from", neigh, "err", err)
		return nil
	}
	if neigh == s.Id || !neigh.IsValid() {
		s.Log.Warn("received weight update with invalid sender", "from", neigh)
		return nil
	}
	HandleLinkWeightChange(s.RouterState, r, neigh, weight)
	return nil
}
