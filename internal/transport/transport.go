// Package transport defines the realtime session collaborator: it owns the
// connection lifecycle (including low-level reconnection attempts), delivers
// the shared inbound message stream, and reports the set of subscribed media
// tracks. Everything above it only observes.
package transport

import (
	"context"
	"sync"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

// Subscription is one consumer's view of session events. Each subscriber
// gets its own channels so independent consumers (the lifecycle controller,
// the activity log) never contend on a shared stream.
type Subscription struct {
	ConnState chan protocol.ConnectionState
	Data      chan []byte
	Tracks    chan []protocol.TrackRef
}

const subscriberBuffer = 64

// Session is the transport collaborator interface.
type Session interface {
	// Subscribe registers a consumer. Events arriving before Subscribe are
	// not replayed.
	Subscribe() *Subscription
	// Unsubscribe deregisters a consumer and closes its channels.
	Unsubscribe(*Subscription)
	// Connect dials the session. Connection-state transitions, including the
	// initial connecting/connected pair, arrive on subscriptions.
	Connect(ctx context.Context) error
	// Disconnect requests an intentional hangup. The resulting disconnected
	// transition arrives on subscriptions like any other.
	Disconnect()
}

// hub fans session events out to subscribers. Sends never block: a consumer
// that falls subscriberBuffer events behind loses the oldest ones, which is
// acceptable because every stream is either merge-safe (status events are
// commutative) or replaced wholesale (track sets, connection state is
// re-read on the next transition).
type hub struct {
	mu   sync.Mutex
	subs map[*Subscription]bool
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]bool)}
}

func (h *hub) subscribe() *Subscription {
	sub := &Subscription{
		ConnState: make(chan protocol.ConnectionState, subscriberBuffer),
		Data:      make(chan []byte, subscriberBuffer),
		Tracks:    make(chan []protocol.TrackRef, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()
	return sub
}

func (h *hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.subs[sub] {
		return
	}
	delete(h.subs, sub)
	close(sub.ConnState)
	close(sub.Data)
	close(sub.Tracks)
}

func (h *hub) broadcastConnState(s protocol.ConnectionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ConnState <- s:
		default:
		}
	}
}

func (h *hub) broadcastData(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.Data <- payload:
		default:
		}
	}
}

func (h *hub) broadcastTracks(tracks []protocol.TrackRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		// Each subscriber gets its own copy; track sets are replaced, never
		// mutated in place.
		cp := make([]protocol.TrackRef, len(tracks))
		copy(cp, tracks)
		select {
		case sub.Tracks <- cp:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ConnState)
		close(sub.Data)
		close(sub.Tracks)
	}
}
