package impl

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUdpLinkRoundTrip(t *testing.T) {
	a, err := NewUdpLink(netip.MustParseAddrPort("127.0.0.1:0"), nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewUdpLink(netip.MustParseAddrPort("127.0.0.1:0"), []netip.Prefix{netip.MustParsePrefix("127.0.0.0/8")})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Send(b.LocalAddr(), []byte("ping")))
	data, from, err := b.Receive()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(data))
	assert.Equal(t, a.LocalAddr(), from)
}

func TestUdpLinkFilter(t *testing.T) {
	l, err := NewUdpLink(netip.MustParseAddrPort("127.0.0.1:0"), []netip.Prefix{
		netip.MustParsePrefix("10.1.2.3/8"),
		netip.MustParsePrefix("192.168.0.0/24"),
	})
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, l.accepts(netip.MustParseAddrPort("10.9.9.9:1")))
	assert.True(t, l.accepts(netip.MustParseAddrPort("[::ffff:192.168.0.7]:1")))
	assert.False(t, l.accepts(netip.MustParseAddrPort("127.0.0.1:1")))
	assert.False(t, l.accepts(netip.MustParseAddrPort("192.168.1.1:1")))
}

func TestUdpLinkClose(t *testing.T) {
	l, err := NewUdpLink(netip.MustParseAddrPort("127.0.0.1:0"), nil)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, _, err := l.Receive()
		done <- err
	}()
	require.NoError(t, l.Close())
	assert.True(t, errors.Is(<-done, net.ErrClosed))
}
