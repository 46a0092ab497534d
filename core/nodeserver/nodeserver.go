// Package nodeserver implements the peer-facing side of the block
// protocol: it accepts a Block Request, repairs every requested byte
// locally before serving it, and answers with either the data or the null
// sentinel — never leaving the peer waiting for a response it will never
// get.
package nodeserver

import (
	"net"
	"net/http"
	"net/rpc"
	"time"

	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/corrector"
	"github.com/parityfleet/paritynode/core/store"
	rpcpeer "github.com/parityfleet/paritynode/rpc/peer"
)

const keepAlivePeriod = 30 * time.Second

// keepAliveListener enables TCP keepalives on every accepted connection,
// the same pattern net/http's own server uses for its listener.
type keepAliveListener struct {
	net.Listener
}

func (l keepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(keepAlivePeriod)
	}
	return conn, nil
}

// PeerService is the RPC receiver registered against the node's listening
// endpoint through a dedicated rpc.Server mounted at rpc.DefaultRPCPath and
// served with http.Serve.
type PeerService struct {
	store     *store.Store
	corrector *corrector.Corrector
	log       *zap.SugaredLogger
}

func New(s *store.Store, c *corrector.Corrector, log *zap.SugaredLogger) *PeerService {
	return &PeerService{store: s, corrector: c, log: log}
}

// FetchBlock serves a block request, invoking local repair on every
// requested index before responding. Every call produces exactly one
// reply: data, or the null sentinel (Ok == false).
func (s *PeerService) FetchBlock(args *rpcpeer.BlockRequestArgs, reply *rpcpeer.BlockResponseReply) error {
	start := int(args.StartIndex)
	length := int(args.Length)
	end := start + length

	if args.Length <= 0 || start < 0 || end > s.store.Len() {
		s.log.Debugw("rejecting out-of-range block request", "start", start, "length", length)
		reply.Ok = false
		return nil
	}

	for i := start; i < end; i++ {
		if !s.corrector.Correct(i) {
			s.log.Warnw("cannot serve block, correction failed", "index", i)
			reply.Ok = false
			return nil
		}
	}

	reply.Ok = true
	reply.Data = s.store.ReadRange(start, length)
	return nil
}

// Serve registers PeerService against the given listener over HTTP-wrapped
// net/rpc and blocks serving connections until the listener is closed.
func Serve(ln net.Listener, s *store.Store, c *corrector.Corrector, log *zap.SugaredLogger) error {
	service := New(s, c, log)

	server := rpc.NewServer()
	if err := server.RegisterName("PeerService", service); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)

	return http.Serve(keepAliveListener{ln}, mux)
}
