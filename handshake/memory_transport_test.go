package handshake

import (
	"context"

	"github.com/rafaelsistems/B4AE-Beyond-For-All-Encryption--sub001/transport"
)

// memoryTransport is a synchronous, in-process transport.Transport used to
// drive a Client against a Server within a single test process, without a
// real socket. peer is ignored: each memoryTransport is already bound to
// exactly one counterpart via its channel pair.
type memoryTransport struct {
	out chan []byte
	in  chan []byte
}

// newMemoryTransportPair returns two ends of a duplex channel pipe, one per
// handshake participant.
func newMemoryTransportPair() (client, server *memoryTransport) {
	clientToServer := make(chan []byte, 8)
	serverToClient := make(chan []byte, 8)
	client = &memoryTransport{out: clientToServer, in: serverToClient}
	server = &memoryTransport{out: serverToClient, in: clientToServer}
	return client, server
}

func (t *memoryTransport) Send(ctx context.Context, _ transport.Peer, datagram []byte) error {
	buf := make([]byte, len(datagram))
	copy(buf, datagram)
	select {
	case t.out <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memoryTransport) Recv(ctx context.Context, _ transport.Peer) ([]byte, error) {
	select {
	case datagram := <-t.in:
		return datagram, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type stringPeer string

func (p stringPeer) String() string { return string(p) }
