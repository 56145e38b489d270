// Package transport declares the minimal collaborator interface the
// core needs from a datagram transport. No implementation lives here;
// a UDP layer with chunking is an external integration, out of scope
// per spec §1/§6.1.
package transport

import "context"

// Peer is an opaque transport-level address (e.g. a UDP endpoint).
// The core never interprets its contents.
type Peer interface {
	String() string
}

// Transport is a datagram send/recv collaborator. No reliability is
// required: the core tolerates reordering (up to the ratchet's
// MAX_SKIP) and loss (via ratchet robustness) but does not implement
// retransmission itself.
type Transport interface {
	Send(ctx context.Context, peer Peer, datagram []byte) error
	Recv(ctx context.Context, peer Peer) (datagram []byte, err error)
}
