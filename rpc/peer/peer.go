// Package peer defines the net/rpc argument and reply types exchanged
// between fleet nodes, following the paired *Args/*Reply convention used
// throughout this codebase's rpc packages.
package peer

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"net/rpc"
	"time"
)

const connectedToGoRPC = "200 Connected to Go RPC"

// keepAlivePeriod is applied to every dialed peer connection once
// established.
const keepAlivePeriod = 30 * time.Second

// Dial connects to a peer's block-serving endpoint, bounding the TCP
// handshake by timeout and enabling keepalives on the resulting
// connection, then performs the same CONNECT handshake net/rpc's
// DialHTTP does so it can talk to a server registered under
// rpc.DefaultRPCPath.
func Dial(address string, timeout time.Duration) (*rpc.Client, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(keepAlivePeriod)
	}

	io.WriteString(conn, "CONNECT "+rpc.DefaultRPCPath+" HTTP/1.0\n\n")

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: "CONNECT"})
	if err == nil && resp.Status == connectedToGoRPC {
		return rpc.NewClient(conn), nil
	}
	if err == nil {
		err = errors.New("unexpected HTTP response: " + resp.Status)
	}
	conn.Close()
	return nil, &net.OpError{Op: "dial-http", Net: "tcp", Addr: nil, Err: err}
}

// BlockRequestArgs is a peer's request for a contiguous range of the
// remote node's byte store.
type BlockRequestArgs struct {
	StartIndex int32
	Length     int32
}

// BlockResponseReply is the server's answer. Ok is false exactly when the
// server sends the "null sentinel": either the request was out of range,
// or at least one requested index could not be corrected before serving.
// Whenever Ok is true, Data holds exactly Length parity-valid data bytes.
type BlockResponseReply struct {
	Ok   bool
	Data []byte
}

// Service documents the one exported peer RPC method. It exists purely as
// documentation of the wire contract; the concrete implementation lives in
// core/nodeserver so it can hold the store and corrector it needs.
type Service interface {
	FetchBlock(args *BlockRequestArgs, reply *BlockResponseReply) error
}
