package core

import (
	"errors"
	"net"

	"github.com/encodeous/ripple/impl"
	"github.com/encodeous/ripple/perf"
	"github.com/encodeous/ripple/protocol"
	"github.com/encodeous/ripple/state"
)

// Transport owns the packet link and feeds decoded packets into the dispatch loop.
type Transport struct {
	Link state.PacketLink
	done chan struct{}
}

func (t *Transport) Init(s *state.State) error {
	if l, ok := s.AuxConfig["link"]; ok {
		t.Link = l.(state.PacketLink)
	} else {
		l, err := impl.NewUdpLink(s.NodeCfg.Id.AddrPort(), s.NodeCfg.AcceptFrom)
		if err != nil {
			return err
		}
		t.Link = l
	}
	s.Log.Info("listening", "addr", s.NodeCfg.Id)
	t.done = make(chan struct{})
	go t.receiveLoop(s.Env)
	return nil
}

func (t *Transport) receiveLoop(e *state.Env) {
	defer close(t.done)
	for {
		data, from, err := t.Link.Receive()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || e.Context.Err() != nil {
				return
			}
			e.Log.Warn("receive failed", "err", err)
			continue
		}
		perf.RecvBytesPerSecond.Add(float64(len(data)))
		pkt, err := protocol.Decode(data)
		if err != nil {
			e.Log.Warn("dropped malformed packet", "from", from, "err", err)
			continue
		}
		e.Dispatch(func(s *state.State) error {
			return handlePacket(s, from, pkt)
		})
	}
}

func (t *Transport) Cleanup(s *state.State) error {
	if t.Link == nil {
		return nil
	}
	err := t.Link.Close()
	<-t.done
	return err
}
