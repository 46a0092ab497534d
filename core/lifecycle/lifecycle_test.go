package lifecycle

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parityfleet/paritynode/core/config"
)

// registryDirectory is a minimal in-test stand-in for the external
// directory service: it accepts registrations and answers "nodes" with
// whatever has registered so far.
type registryDirectory struct {
	ln    net.Listener
	peers []string // "host port"
}

func startRegistryDirectory(t *testing.T) *registryDirectory {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &registryDirectory{ln: ln}
	go d.acceptLoop(t)
	return d
}

func (d *registryDirectory) addr() string { return d.ln.Addr().String() }

func (d *registryDirectory) acceptLoop(t *testing.T) {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handle(t, conn)
	}
}

func (d *registryDirectory) handle(t *testing.T, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	regLine, err := r.ReadString('\n')
	if err != nil {
		return
	}
	fields := strings.Fields(regLine)
	if len(fields) == 3 && strings.EqualFold(fields[0], "INSC") {
		d.peers = append(d.peers, fields[1]+" "+fields[2])
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if strings.TrimSpace(line) != "nodes" {
			continue
		}
		for _, p := range d.peers {
			conn.Write([]byte("node " + p + "\n"))
		}
		conn.Write([]byte("end\n"))
	}
}

func testTunables() *config.Tunables {
	return &config.Tunables{
		ScannerCount:            2,
		CorrectionRetryInterval: 20 * time.Millisecond,
		CorrectionPassInterval:  50 * time.Millisecond,
		DialTimeout:             time.Second,
	}
}

func TestSoloSeedBootstrap(t *testing.T) {
	dir := startRegistryDirectory(t)
	defer dir.ln.Close()

	_, dirPortStr, err := net.SplitHostPort(dir.addr())
	require.NoError(t, err)
	dirPort, err := strconv.Atoi(dirPortStr)
	require.NoError(t, err)

	// A non-zero fill, so B's freshly allocated all-zero store cannot pass
	// the convergence check before bootstrap has actually copied A's data.
	const seedFill = byte(0x5A)
	seedFile := writeSeedFile(t, 1_000_000, seedFill)

	// Node A: pre-seeded, serves data, never bootstraps.
	argsA, err := config.ParseArgs([]string{"127.0.0.1", strconv.Itoa(dirPort), "0", seedFile})
	require.NoError(t, err)
	nodeA, err := New(argsA, testTunables(), nil)
	require.NoError(t, err)

	go nodeA.Run()

	// Give A time to bind and register before B asks the directory for
	// peers.
	require.Eventually(t, func() bool { return len(dir.peers) >= 1 }, 2*time.Second, 10*time.Millisecond)

	// Node B: bootstraps from A.
	argsB, err := config.ParseArgs([]string{"127.0.0.1", strconv.Itoa(dirPort), "0"})
	require.NoError(t, err)
	nodeB, err := New(argsB, testTunables(), nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- nodeB.Run() }()

	require.Eventually(t, func() bool {
		return nodeB.store != nil && allEqual(nodeB.store, seedFill)
	}, 15*time.Second, 50*time.Millisecond)

	assert.Equal(t, 1_000_000, nodeB.store.Len())
}

func allEqual(s interface {
	Len() int
	Get(int) (byte, bool)
}, want byte) bool {
	// sample rather than scan a million bytes on every poll
	for _, i := range []int{0, 1, 500_000, 999_999} {
		v, ok := s.Get(i)
		if !ok || v != want {
			return false
		}
	}
	return true
}

func writeSeedFile(t *testing.T, size int, fill byte) string {
	t.Helper()
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fill
	}
	path := filepath.Join(t.TempDir(), "seed.bin")
	require.NoError(t, os.WriteFile(path, buf, 0o600))
	return path
}
