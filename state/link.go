package state

import "net/netip"

// PacketLink moves datagrams between routers. Delivery is unreliable and unordered.
type PacketLink interface {
	// Send transmits one datagram to the router listening on to
	Send(to netip.AddrPort, data []byte) error
	// Receive blocks until a datagram arrives. It returns net.ErrClosed once the link is closed.
	Receive() ([]byte, netip.AddrPort, error)
	Close() error
}
