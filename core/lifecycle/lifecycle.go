// Package lifecycle wires every other package into a running node: bind,
// register, bootstrap-or-skip, start background loops, accept peer
// connections, and shut down cleanly.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/config"
	"github.com/parityfleet/paritynode/core/console"
	"github.com/parityfleet/paritynode/core/corrector"
	"github.com/parityfleet/paritynode/core/correctionloop"
	"github.com/parityfleet/paritynode/core/directory"
	"github.com/parityfleet/paritynode/core/downloader"
	"github.com/parityfleet/paritynode/core/nodeserver"
	"github.com/parityfleet/paritynode/core/protocol"
	"github.com/parityfleet/paritynode/core/queue"
	"github.com/parityfleet/paritynode/core/store"
	"github.com/parityfleet/paritynode/lib/logger"
)

// Node holds every long-lived collaborator wired together by Run.
type Node struct {
	id uuid.UUID

	args     *config.Args
	tunables *config.Tunables

	store          *store.Store
	storePreloaded bool
	directory      *directory.Client
	corrector      *corrector.Corrector
	listener       net.Listener
	shuttingDown   atomic.Bool

	log *zap.SugaredLogger

	console io.Reader
}

var (
	errNoBootstrapPeers    = errors.New("bootstrap failed: directory returned no peers")
	errBootstrapIncomplete = errors.New("bootstrap failed: all download workers exited without completing the queue")
)

// New constructs an unstarted node. consoleInput is the source of operator
// error-injection commands (os.Stdin in production).
func New(args *config.Args, tunables *config.Tunables, consoleInput io.Reader) (*Node, error) {
	log, err := logger.New("lifecycle")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	id := uuid.New()
	return &Node{
		id:       id,
		args:     args,
		tunables: tunables,
		log:      log.With("nodeID", id.String()),
		console:  consoleInput,
	}, nil
}

// Run executes the full lifecycle: bind, register, bootstrap-or-skip,
// start background loops, install the shutdown hook, and accept peer
// connections until the listener is closed. It returns only on fatal
// startup failure or clean shutdown.
func (n *Node) Run() error {
	if err := n.loadOrAllocateStore(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(n.args.NodePort)))
	if err != nil {
		return fmt.Errorf("bind listening endpoint: %w", err)
	}
	n.listener = ln

	_, boundPortStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		ln.Close()
		return fmt.Errorf("resolve bound port: %w", err)
	}
	boundPort, err := strconv.Atoi(boundPortStr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("parse bound port: %w", err)
	}

	directoryAddr := net.JoinHostPort(n.args.DirectoryHost, strconv.Itoa(n.args.DirectoryPort))
	dir, err := directory.Dial(directoryAddr, boundPort, n.tunables.DialTimeout)
	if err != nil {
		ln.Close()
		return fmt.Errorf("register with directory: %w", err)
	}
	n.directory = dir
	n.corrector = corrector.New(n.store, dir, n.mustLogger("corrector"), n.tunables.DialTimeout)

	if !n.storePreloaded {
		if err := n.bootstrap(); err != nil {
			dir.Close()
			ln.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.startBackgroundLoops(ctx)

	n.installShutdownHook(cancel)

	n.log.Infow("ready, listening for node connections", "port", boundPort)
	err = n.acceptLoop(ln)
	if err != nil && n.shuttingDown.Load() && errors.Is(err, net.ErrClosed) {
		n.log.Infow("accept loop stopped for shutdown")
		return nil
	}
	return err
}

// loadOrAllocateStore either seeds the store from a data file — skipping
// bootstrap entirely — or allocates a fresh all-zero store to be filled by
// bootstrap. A wrong-size data file is a configuration error, never an
// assertion.
func (n *Node) loadOrAllocateStore() error {
	if n.args.DataFile == "" {
		n.store = store.New(protocol.StoreSize)
		return nil
	}

	raw, err := os.ReadFile(n.args.DataFile)
	if err != nil {
		return config.Errorf("read data file %q: %v", n.args.DataFile, err)
	}
	if len(raw) != protocol.StoreSize {
		return config.Errorf("data file %q must be exactly %d bytes, got %d", n.args.DataFile, protocol.StoreSize, len(raw))
	}

	n.store = store.FromBytes(raw)
	n.storePreloaded = true
	n.log.Infow("loaded data from file", "path", n.args.DataFile)
	return nil
}

func (n *Node) bootstrap() error {
	peers, err := n.directory.Nodes()
	if err != nil {
		return fmt.Errorf("request peer list: %w", err)
	}
	if len(peers) == 0 {
		return errNoBootstrapPeers
	}

	requests := protocol.AllRequests(n.store.Len())
	n.log.Infow("starting bootstrap", "requests", len(requests), "peers", len(peers))

	q := queue.New(requests, len(peers))
	for _, p := range peers {
		w := downloader.New(p, q, n.store, n.mustLogger("downloader"), n.tunables.DialTimeout)
		go w.Run()
	}

	q.Await()
	if !q.IsComplete() {
		return errBootstrapIncomplete
	}

	n.log.Infow("bootstrap complete")
	return nil
}

func (n *Node) startBackgroundLoops(ctx context.Context) {
	for i := 1; i <= n.tunables.ScannerCount; i++ {
		scanner := correctionloop.New(i, n.store, n.corrector,
			n.tunables.CorrectionRetryInterval, n.tunables.CorrectionPassInterval,
			n.mustLogger("correction-scanner"))
		go scanner.Run(ctx)
	}

	if n.console != nil {
		go console.New(n.console, n.store, n.mustLogger("console")).Run()
	}
}

func (n *Node) installShutdownHook(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		n.log.Infow("shutting down")
		n.shuttingDown.Store(true)
		cancel()
		if n.directory != nil {
			n.directory.Close()
		}
		if n.listener != nil {
			n.listener.Close()
		}
	}()
}

func (n *Node) acceptLoop(ln net.Listener) error {
	return nodeserver.Serve(ln, n.store, n.corrector, n.mustLogger("node-server"))
}

func (n *Node) mustLogger(component string) *zap.SugaredLogger {
	l, err := logger.New(component)
	if err != nil {
		return n.log
	}
	return l.With("nodeID", n.id.String())
}
