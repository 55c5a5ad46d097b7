package impl

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/encodeous/ripple/state"
	"github.com/gaissmai/bart"
	"golang.org/x/net/ipv4"
)

// tosControl marks datagrams as network control traffic (DSCP CS6)
const tosControl = 0xc0

// UdpLink is a state.PacketLink over a single UDP socket bound to the router's own address.
type UdpLink struct {
	conn   *net.UDPConn
	filter *bart.Table[struct{}]
	buf    []byte
}

// NewUdpLink binds to addr. If acceptFrom is not empty, datagrams from any other source are discarded.
func NewUdpLink(addr netip.AddrPort, acceptFrom []netip.Prefix) (*UdpLink, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	if addr.Addr().Is4() {
		// best effort, not every platform allows setting the TOS byte
		_ = ipv4.NewConn(conn).SetTOS(tosControl)
	}
	l := &UdpLink{
		conn: conn,
		buf:  make([]byte, state.SafeMTU),
	}
	if len(acceptFrom) != 0 {
		l.filter = &bart.Table[struct{}]{}
		for _, p := range acceptFrom {
			l.filter.Insert(p.Masked(), struct{}{})
		}
	}
	return l, nil
}

func (u *UdpLink) Send(to netip.AddrPort, data []byte) error {
	_, err := u.conn.WriteToUDPAddrPort(data, to)
	return err
}

func (u *UdpLink) accepts(from netip.AddrPort) bool {
	if u.filter == nil {
		return true
	}
	return u.filter.Contains(from.Addr().Unmap())
}

// Receive must only be called from a single goroutine; the returned slice is a fresh copy.
func (u *UdpLink) Receive() ([]byte, netip.AddrPort, error) {
	for {
		n, from, err := u.conn.ReadFromUDPAddrPort(u.buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, netip.AddrPort{}, net.ErrClosed
			}
			return nil, netip.AddrPort{}, err
		}
		if !u.accepts(from) {
			continue
		}
		data := make([]byte, n)
		copy(data, u.buf[:n])
		return data, netip.AddrPortFrom(from.Addr().Unmap(), from.Port()), nil
	}
}

func (u *UdpLink) LocalAddr() netip.AddrPort {
	return u.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (u *UdpLink) Close() error {
	return u.conn.Close()
}
