// Package replication defines the Replication interface the core consumes to
// move encoded ops between replicas, and ships an in-memory reference
// implementation. It is deliberately not a network transport (see
// Non-goals): Hub fans out broadcasts to in-process subscriber channels,
// grounded on the teacher's in-memory channel transport
// (backend/transport/channel) and its UDP socket's mutex-guarded ins/outs
// bookkeeping (backend/transport/udp/udp.go), adapted from byte-buffer
// sockets to buffered Go channels.
package replication

import (
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Replication is the interface the core consumes to broadcast locally
// applied ops and receive remote ones. Callers are responsible for encoding
// ops to bytes (the delta or a serialized op spec) before calling Broadcast,
// and for decoding what arrives on Subscribe's channel.
type Replication interface {
	Broadcast(payload []byte) error
	Subscribe() <-chan []byte
}

// ErrClosed is returned by Broadcast once the Hub has been closed.
var ErrClosed = xerrors.New("replication: hub is closed")

const subscriberBuffer = 64

// Hub is an in-process Replication: every Broadcast fans out to every
// currently-registered Subscribe channel. It never touches the network; a
// real deployment swaps it for a transport-backed Replication without the
// core caring which.
type Hub struct {
	id  string
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[string]chan []byte
	closed bool
}

// NewHub returns an empty Hub ready to accept subscribers.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		id:   xid.New().String(),
		log:  log,
		subs: make(map[string]chan []byte),
	}
}

// ID returns the hub's own generated identifier, for logging.
func (h *Hub) ID() string {
	return h.id
}

// Subscribe implements Replication: it registers a fresh buffered channel
// that receives every subsequent Broadcast payload. The channel is never
// closed by Hub while the hub itself is open; a full subscriber buffer drops
// the oldest pending payload rather than blocking the broadcaster.
func (h *Hub) Subscribe() <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, subscriberBuffer)
	h.subs[xid.New().String()] = ch
	return ch
}

// Broadcast implements Replication: it fans payload out to every subscriber.
// A subscriber whose buffer is full has its oldest pending payload dropped
// to make room, with a warning logged, rather than stalling every other
// subscriber.
func (h *Hub) Broadcast(payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)

	for id, ch := range h.subs {
		select {
		case ch <- cp:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cp:
			default:
				h.log.Warn().Str("subscriber", id).Msg("replication: dropping broadcast, subscriber buffer full")
			}
		}
	}
	return nil
}

// Close marks the hub closed; further Broadcast calls fail with ErrClosed.
// Subscriber channels are left open (but will receive nothing more) so
// readers draining them in a range loop don't need special-casing.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}
