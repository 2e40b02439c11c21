package proxy

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen starts a TCP server that runs handle for every connection
func listen(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()
	return ln.Addr().String()
}

func socksServer(accept bool) func(net.Conn) {
	return func(conn net.Conn) {
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		if accept {
			_, _ = conn.Write([]byte{0x05, 0x00})
		} else {
			_, _ = conn.Write([]byte{0x05, 0xFF})
		}
	}
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestNewPoolParsesSpecs(t *testing.T) {
	p, err := NewPool([]string{"socks5://10.0.0.1:1080", "10.0.0.2:3128", " HTTP://proxy.local:8080 "})
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	assert.Equal(t, "socks5://10.0.0.1:1080", p.entries[0].URL)
	assert.Equal(t, "http://10.0.0.2:3128", p.entries[1].URL)
	assert.Equal(t, "http", p.entries[2].Scheme)
}

func TestNewPoolRejectsInvalid(t *testing.T) {
	for _, spec := range []string{"", "ftp://1.2.3.4:21", "socks5://1.2.3.4"} {
		_, err := NewPool([]string{spec})
		assert.Error(t, err, spec)
	}
}

func TestPickPrefersWorkingProxies(t *testing.T) {
	good := listen(t, socksServer(true))
	refused := listen(t, socksServer(false))
	dead := closedAddr(t)

	p, err := NewPool([]string{"socks5://" + dead, "socks5://" + refused, "socks5://" + good})
	require.NoError(t, err)

	assert.Equal(t, "socks5://"+good, p.Pick(context.Background()))

	top := p.Top(5)
	require.Len(t, top, 1)
	assert.True(t, top[0].Working)
}

func TestPickHTTPProxyNeedsOnlyTCP(t *testing.T) {
	addr := listen(t, func(net.Conn) {})

	p, err := NewPool([]string{addr})
	require.NoError(t, err)
	assert.Equal(t, "http://"+addr, p.Pick(context.Background()))
}

func TestPickWithoutWorkingProxies(t *testing.T) {
	p, err := NewPool([]string{"socks5://" + closedAddr(t)})
	require.NoError(t, err)
	assert.Equal(t, "", p.Pick(context.Background()))

	empty, err := NewPool(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty.Pick(context.Background()))
}
