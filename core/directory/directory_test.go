package directory

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory accepts one connection, reads the registration line, then
// answers every "nodes" query with a fixed response.
func fakeDirectory(t *testing.T, response []string) (addr string, close func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		// registration line
		_, _ = r.ReadString('\n')

		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimSpace(line) != "nodes" {
				continue
			}
			for _, l := range response {
				_, _ = conn.Write([]byte(l + "\n"))
			}
			_, _ = conn.Write([]byte("end\n"))
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func TestNodesFiltersSelf(t *testing.T) {
	addr, closeFn := fakeDirectory(t, []string{
		"node 127.0.0.1 4001",
		"node 127.0.0.1 4002",
	})
	defer closeFn()

	c, err := Dial(addr, 4002, time.Second)
	require.NoError(t, err)
	defer c.Close()

	peers, err := c.Nodes()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "127.0.0.1", peers[0].Host)
	assert.Equal(t, 4001, peers[0].Port)
}

func TestNodesEmptyList(t *testing.T) {
	addr, closeFn := fakeDirectory(t, nil)
	defer closeFn()

	c, err := Dial(addr, 4000, time.Second)
	require.NoError(t, err)
	defer c.Close()

	peers, err := c.Nodes()
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestNodesIgnoresMalformedLines(t *testing.T) {
	addr, closeFn := fakeDirectory(t, []string{
		"garbage line",
		"node 127.0.0.1 notaport",
		"node 127.0.0.1 5555",
	})
	defer closeFn()

	c, err := Dial(addr, 9999, time.Second)
	require.NoError(t, err)
	defer c.Close()

	peers, err := c.Nodes()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, 5555, peers[0].Port)
}
