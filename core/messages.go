package core

import (
	"fmt"

	"github.com/encodeous/ripple/protocol"
	"github.com/encodeous/ripple/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Messenger forwards text messages hop by hop along the routing table.
type Messenger struct {
	seen *ttlcache.Cache[uuid.UUID, struct{}]
}

func (m *Messenger) Init(s *state.State) error {
	m.seen = ttlcache.New[uuid.UUID, struct{}](
		ttlcache.WithTTL[uuid.UUID, struct{}](state.MessageDedupTTL),
		ttlcache.WithDisableTouchOnHit[uuid.UUID, struct{}](),
	)
	s.Env.RepeatTask(func(s *state.State) error {
		m.seen.DeleteExpired()
		return nil
	}, state.MessageDedupTTL, state.MessageDedupTTL)
	return nil
}

func (m *Messenger) Cleanup(s *state.State) error {
	m.seen.DeleteAll()
	return nil
}

// SendMessage originates a message to dst. It fails if dst is currently unreachable.
func (m *Messenger) SendMessage(s *state.State, dst state.NodeId, body string) (uuid.UUID, error) {
	msg := &protocol.Message{
		Id:          uuid.New(),
		Source:      s.Id.AddrPort(),
		Destination: dst.AddrPort(),
		TTL:         state.MessageTTL,
		Body:        []byte(body),
	}
	if dst == s.Id {
		m.seen.Set(msg.Id, struct{}{}, ttlcache.DefaultTTL)
		m.deliver(s, msg)
		return msg.Id, nil
	}
	entry, err := s.Lookup(dst)
	if err != nil {
		return uuid.Nil, err
	}
	m.seen.Set(msg.Id, struct{}{}, ttlcache.DefaultTTL)
	err = sendPacket(s, entry.NextHop, &protocol.Packet{Message: msg})
	if err != nil {
		return uuid.Nil, err
	}
	return msg.Id, nil
}

// Handle processes a message received from a neighbour.
func (m *Messenger) Handle(s *state.State, msg *protocol.Message) error {
	r := Get[*DvRouter](s)
	if m.seen.Has(msg.Id) {
		r.Log(MessageDropped, "duplicate message", "id", msg.Id)
		return nil
	}
	m.seen.Set(msg.Id, struct{}{}, ttlcache.DefaultTTL)

	dst := state.NodeIdFrom(msg.Destination.Addr(), msg.Destination.Port())
	if dst == s.Id {
		m.deliver(s, msg)
		return nil
	}
	if msg.TTL <= 1 {
		r.Log(MessageDropped, "message ttl expired", "id", msg.Id, "dst", dst)
		return nil
	}
	entry, err := s.Lookup(dst)
	if err != nil {
		r.Log(MessageDropped, "no route for message", "id", msg.Id, "dst", dst)
		return nil
	}
	fwd := *msg
	fwd.TTL--
	err = sendPacket(s, entry.NextHop, &protocol.Packet{Message: &fwd})
	if err != nil {
		s.Log.Warn("failed to forward message", "id", msg.Id, "nh", entry.NextHop, "err", err)
		return nil
	}
	r.Log(MessageForwarded, "message forwarded", "id", msg.Id, "dst", dst, "nh", entry.NextHop)
	return nil
}

func (m *Messenger) deliver(s *state.State, msg *protocol.Message) {
	r := Get[*DvRouter](s)
	r.Log(MessageDelivered, fmt.Sprintf("message from %s: %s", msg.Source, msg.Body),
		"id", msg.Id, "hops", int(state.MessageTTL)-int(msg.TTL))
}
