package state

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// NodeId identifies a router by the (address, port) pair it listens on.
type NodeId netip.AddrPort

func NodeIdFrom(addr netip.Addr, port uint16) NodeId {
	return NodeId(netip.AddrPortFrom(addr.Unmap(), port))
}

// ParseNodeId accepts either "ip:port" or the two-field form "ip port" used by topology files.
func ParseNodeId(s string) (NodeId, error) {
	if f := strings.Fields(s); len(f) == 2 {
		return ParseNodeIdParts(f[0], f[1])
	}
	ap, err := netip.ParseAddrPort(strings.TrimSpace(s))
	if err == nil {
		return NodeIdFrom(ap.Addr(), ap.Port()), nil
	}
	return NodeId{}, fmt.Errorf("invalid node id %q: %w", s, err)
}

func ParseNodeIdParts(host, port string) (NodeId, error) {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return NodeId{}, fmt.Errorf("invalid node address %q: %w", host, err)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return NodeId{}, fmt.Errorf("invalid node port %q: %w", port, err)
	}
	return NodeIdFrom(addr, uint16(p)), nil
}

func MustParseNodeId(s string) NodeId {
	id, err := ParseNodeId(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (n NodeId) AddrPort() netip.AddrPort {
	return netip.AddrPort(n)
}

func (n NodeId) Addr() netip.Addr {
	return netip.AddrPort(n).Addr()
}

func (n NodeId) Port() uint16 {
	return netip.AddrPort(n).Port()
}

func (n NodeId) IsValid() bool {
	return netip.AddrPort(n).IsValid() && n.Port() != 0
}

// Compare orders node ids by address, then port.
func (n NodeId) Compare(o NodeId) int {
	return netip.AddrPort(n).Compare(netip.AddrPort(o))
}

func (n NodeId) String() string {
	return netip.AddrPort(n).String()
}

func (n NodeId) MarshalText() ([]byte, error) {
	return netip.AddrPort(n).MarshalText()
}

func (n *NodeId) UnmarshalText(text []byte) error {
	id, err := ParseNodeId(string(text))
	if err != nil {
		return err
	}
	*n = id
	return nil
}
