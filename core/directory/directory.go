// Package directory implements the line-oriented client for the external
// directory service: register this node, list peers.
package directory

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parityfleet/paritynode/lib/cache"
)

// Peer is a (host, port) endpoint returned by the directory, already
// filtered to exclude the local node.
type Peer struct {
	Host string
	Port int
}

func (p Peer) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

const peerListCacheKey = "peers"
const peerListCacheTTL = 2 * time.Second
const keepAlivePeriod = 30 * time.Second

type cachedPeers struct {
	peers    []Peer
	cachedAt time.Time
}

// Client is a single-threaded connection to the directory: only one
// outstanding Nodes() call is allowed at a time, enforced by mu.
type Client struct {
	conn net.Conn
	w    *bufio.Writer
	r    *bufio.Reader

	localHost string
	localPort int

	mu    sync.Mutex
	cache *cache.LRU[string, cachedPeers]
}

// Dial connects to the directory and registers this node's listening
// endpoint. localPort is the node's own accept-loop port (already resolved
// from a :0 bind, if applicable). timeout bounds the TCP handshake; the
// resulting connection is kept alive for the life of the client.
func Dial(directoryAddr string, localPort int, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", directoryAddr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial directory: %w", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(keepAlivePeriod)
	}

	localHost, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve local address: %w", err)
	}

	c := &Client{
		conn:      conn,
		w:         bufio.NewWriter(conn),
		r:         bufio.NewReader(conn),
		localHost: localHost,
		localPort: localPort,
		cache:     cache.NewLRU[string, cachedPeers](1),
	}

	if err := c.register(); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) register() error {
	_, err := fmt.Fprintf(c.w, "INSC %s %d\n", c.localHost, c.localPort)
	if err != nil {
		return fmt.Errorf("register with directory: %w", err)
	}
	return c.w.Flush()
}

// Nodes requests the current peer list, filtered to exclude this node's
// own advertised endpoint. Returns an error if the connection fails or the
// directory closes mid-response. A short-lived cache absorbs bursts of
// concurrent correction attempts querying the peer list within the same
// couple of seconds.
func (c *Client) Nodes() ([]Peer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache.Get(peerListCacheKey); ok && time.Since(cached.cachedAt) < peerListCacheTTL {
		return cached.peers, nil
	}

	if _, err := fmt.Fprintln(c.w, "nodes"); err != nil {
		return nil, fmt.Errorf("send nodes query: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush nodes query: %w", err)
	}

	var lines []string
	for {
		line, err := c.r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil {
			if line != "" {
				lines = append(lines, line)
			}
			return nil, fmt.Errorf("read nodes response: %w", err)
		}
		if strings.EqualFold(line, "end") {
			break
		}
		lines = append(lines, line)
	}

	peers := c.parsePeers(lines)
	c.cache.Put(peerListCacheKey, cachedPeers{peers: peers, cachedAt: time.Now()})
	return peers, nil
}

func (c *Client) parsePeers(lines []string) []Peer {
	peers := make([]Peer, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 3 || !strings.EqualFold(fields[0], "node") {
			continue
		}

		port, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}

		if fields[1] == c.localHost && port == c.localPort {
			continue
		}

		peers = append(peers, Peer{Host: fields[1], Port: port})
	}
	return peers
}

// Close closes the directory connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
