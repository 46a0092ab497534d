// Package corrector implements per-index repair by majority vote across
// peers, coalescing concurrent repair attempts on the same index behind a
// single correction ticket.
package corrector

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/directory"
	"github.com/parityfleet/paritynode/core/store"
	concurrentmap "github.com/parityfleet/paritynode/lib/concurrent_map"
	rpcpeer "github.com/parityfleet/paritynode/rpc/peer"
)

// defaultDialTimeout bounds a correction's peer dials when a Corrector is
// constructed without an explicit timeout (e.g. from a test).
const defaultDialTimeout = 5 * time.Second

// ticket marks "a correction is currently in progress for index i". Only
// the goroutine that creates a ticket dispatches peer queries; everyone
// else waits on done.
type ticket struct {
	done    chan struct{}
	success bool
}

func newTicket() *ticket {
	return &ticket{done: make(chan struct{})}
}

func (t *ticket) finish(success bool) {
	t.success = success
	close(t.done)
}

func (t *ticket) wait() bool {
	<-t.done
	return t.success
}

// Corrector consults peers to repair a suspect byte and overwrite it in
// the local store.
type Corrector struct {
	store       *store.Store
	dir         *directory.Client
	log         *zap.SugaredLogger
	dialTimeout time.Duration

	mu      sync.Mutex
	tickets concurrentmap.Map[int, *ticket]
}

func New(s *store.Store, dir *directory.Client, log *zap.SugaredLogger, dialTimeout time.Duration) *Corrector {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Corrector{
		store:       s,
		dir:         dir,
		log:         log,
		dialTimeout: dialTimeout,
		tickets:     concurrentmap.NewMap[int, *ticket](),
	}
}

// IsCorrecting reports whether a ticket currently exists for index i.
func (c *Corrector) IsCorrecting(i int) bool {
	_, ok := c.tickets.Get(i)
	return ok
}

// TryCorrect makes one non-blocking attempt to repair index i. It returns
// false without doing any work if a correction is already in progress for
// i (collapsed) or if peers do not produce a majority; it returns true if
// the byte was already parity-ok or was just successfully repaired.
func (c *Corrector) TryCorrect(i int) bool {
	if c.store.IsParityOk(i) {
		return true
	}

	t := newTicket()
	existingPtr, loaded := c.tickets.LoadOrStore(i, t)
	if loaded {
		// Another goroutine owns this repair; this call does not wait.
		_ = existingPtr
		return false
	}

	success := c.dispatchCorrection(i)
	c.tickets.Delete(i)
	t.finish(success)
	return success
}

// Correct blocks until index i is known to be parity-ok, initiating a
// correction itself if none is in progress, or waiting for and re-checking
// after someone else's correction if one is. Used by the node server,
// which must never forward data it knows to be wrong.
func (c *Corrector) Correct(i int) bool {
	for {
		if c.store.IsParityOk(i) {
			return true
		}

		t := newTicket()
		existingPtr, loaded := c.tickets.LoadOrStore(i, t)
		if loaded {
			(*existingPtr).wait()
			continue
		}

		success := c.dispatchCorrection(i)
		c.tickets.Delete(i)
		t.finish(success)
		return success
	}
}

// dispatchCorrection queries every known peer for the single byte at i and
// commits the strict-majority value, if any. The caller must hold the
// ticket for i.
func (c *Corrector) dispatchCorrection(i int) bool {
	peers, err := c.dir.Nodes()
	if err != nil {
		c.log.Warnw("correction failed: directory unreachable", "index", i, "error", err)
		return false
	}
	if len(peers) == 0 {
		c.log.Warnw("correction failed: no peers", "index", i)
		return false
	}

	votes := make(map[byte]int, len(peers))
	responders := 0
	for _, p := range peers {
		value, ok := c.queryPeer(p, i)
		if !ok {
			continue
		}
		responders++
		votes[value]++
	}

	for value, count := range votes {
		if count*2 > responders {
			c.store.Set(i, value)
			c.log.Infow("corrected index", "index", i, "value", value, "responders", responders, "votes", count)
			return true
		}
	}

	c.log.Warnw("correction failed: no majority", "index", i, "responders", responders, "votes", votes)
	return false
}

// queryPeer opens a short-lived connection to peer, requests the single
// byte at index i, and returns it if the peer answered non-null.
func (c *Corrector) queryPeer(p directory.Peer, i int) (byte, bool) {
	client, err := rpcpeer.Dial(p.Address(), c.dialTimeout)
	if err != nil {
		c.log.Debugw("peer unreachable during correction", "peer", p.Address(), "error", err)
		return 0, false
	}
	defer client.Close()

	args := &rpcpeer.BlockRequestArgs{StartIndex: int32(i), Length: 1}
	var reply rpcpeer.BlockResponseReply
	if err := client.Call("PeerService.FetchBlock", args, &reply); err != nil {
		c.log.Debugw("peer call failed during correction", "peer", p.Address(), "error", err)
		return 0, false
	}

	if !reply.Ok || len(reply.Data) != 1 {
		return 0, false
	}

	return reply.Data[0], true
}
