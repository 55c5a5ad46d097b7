package mock

import (
	"math/rand/v2"
	"net"
	"net/netip"
	"sync"
)

type datagram struct {
	from netip.AddrPort
	data []byte
}

// Network is an in-memory datagram network. Links between nodes can be cut or made lossy.
type Network struct {
	mu    sync.Mutex
	nodes map[netip.AddrPort]*Link
	loss  map[[2]netip.AddrPort]float64
	cut   map[[2]netip.AddrPort]bool
}

func NewNetwork() *Network {
	return &Network{
		nodes: make(map[netip.AddrPort]*Link),
		loss:  make(map[[2]netip.AddrPort]float64),
		cut:   make(map[[2]netip.AddrPort]bool),
	}
}

func edge(a, b netip.AddrPort) [2]netip.AddrPort {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return [2]netip.AddrPort{a, b}
}

// Attach creates the endpoint for addr, replacing any previous one.
func (n *Network) Attach(addr netip.AddrPort) *Link {
	n.mu.Lock()
	defer n.mu.Unlock()
	l := &Link{
		addr:  addr,
		net:   n,
		inbox: make(chan datagram, 1024),
		done:  make(chan struct{}),
	}
	n.nodes[addr] = l
	return l
}

// SetLoss drops the given fraction of datagrams in both directions between a and b.
func (n *Network) SetLoss(a, b netip.AddrPort, loss float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loss[edge(a, b)] = loss
}

// Cut drops every datagram between a and b until Restore is called.
func (n *Network) Cut(a, b netip.AddrPort) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cut[edge(a, b)] = true
}

func (n *Network) Restore(a, b netip.AddrPort) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.cut, edge(a, b))
}

func (n *Network) deliver(from, to netip.AddrPort, data []byte) {
	n.mu.Lock()
	dst, ok := n.nodes[to]
	e := edge(from, to)
	drop := n.cut[e] || (n.loss[e] > 0 && rand.Float64() < n.loss[e])
	n.mu.Unlock()
	if !ok || drop {
		return
	}
	select {
	case dst.inbox <- datagram{from: from, data: append([]byte(nil), data...)}:
	case <-dst.done:
	default:
		// receiver is not keeping up
	}
}

func (n *Network) detach(l *Link) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nodes[l.addr] == l {
		delete(n.nodes, l.addr)
	}
}

// Link is one node's endpoint on a Network. It implements state.PacketLink.
type Link struct {
	addr  netip.AddrPort
	net   *Network
	inbox chan datagram
	done  chan struct{}
	once  sync.Once
}

func (l *Link) Send(to netip.AddrPort, data []byte) error {
	select {
	case <-l.done:
		return net.ErrClosed
	default:
	}
	l.net.deliver(l.addr, to, data)
	return nil
}

func (l *Link) Receive() ([]byte, netip.AddrPort, error) {
	select {
	case d := <-l.inbox:
		return d.data, d.from, nil
	case <-l.done:
		return nil, netip.AddrPort{}, net.ErrClosed
	}
}

func (l *Link) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.net.detach(l)
	})
	return nil
}
