// Package downloader implements the bootstrap-time worker that drains a
// shared request queue against exactly one peer.
package downloader

import (
	"net/rpc"
	"time"

	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/directory"
	"github.com/parityfleet/paritynode/core/protocol"
	"github.com/parityfleet/paritynode/core/queue"
	"github.com/parityfleet/paritynode/core/store"
	rpcpeer "github.com/parityfleet/paritynode/rpc/peer"
)

// defaultDialTimeout bounds the initial peer dial when a worker is
// constructed without an explicit timeout (e.g. from a test).
const defaultDialTimeout = 5 * time.Second

// Worker owns exactly one long-lived connection to one peer for the
// duration of bootstrap. It never retries against a different peer;
// liveness during bootstrap comes from having other workers drain the
// queue if this one's peer dies.
type Worker struct {
	peer        directory.Peer
	queue       *queue.SharedRequestQueue
	store       *store.Store
	log         *zap.SugaredLogger
	dialTimeout time.Duration
}

func New(p directory.Peer, q *queue.SharedRequestQueue, s *store.Store, log *zap.SugaredLogger, dialTimeout time.Duration) *Worker {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Worker{peer: p, queue: q, store: s, log: log.With("peer", p.Address()), dialTimeout: dialTimeout}
}

// Run dials the peer once, then repeatedly takes a request, sends it, and
// writes the response into the store, until the queue drains or an error
// occurs. It always calls MarkWorkerDone exactly once before returning.
func (w *Worker) Run() {
	defer w.queue.MarkWorkerDone()

	client, err := rpcpeer.Dial(w.peer.Address(), w.dialTimeout)
	if err != nil {
		w.log.Warnw("failed to dial peer, worker exiting without downloading anything", "error", err)
		return
	}
	defer client.Close()

	for {
		req, ok := w.queue.Take()
		if !ok {
			return
		}

		if err := w.download(client, req); err != nil {
			w.log.Warnw("download failed, requeueing and exiting", "request", req, "error", err)
			w.queue.Requeue(req)
			return
		}
	}
}

func (w *Worker) download(client *rpc.Client, req protocol.BlockRequest) error {
	args := &rpcpeer.BlockRequestArgs{StartIndex: req.StartIndex, Length: req.Length}
	var reply rpcpeer.BlockResponseReply

	if err := client.Call("PeerService.FetchBlock", args, &reply); err != nil {
		return err
	}
	if !reply.Ok {
		return errNullResponse{req}
	}
	if int32(len(reply.Data)) != req.Length {
		return errShortResponse{req, len(reply.Data)}
	}

	w.store.WriteRange(int(req.StartIndex), reply.Data)
	return nil
}
