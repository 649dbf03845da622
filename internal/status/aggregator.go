package status

import (
	"sync"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

// Aggregator merges subsystem status events into a single readiness view.
//
// Updates are idempotent and commutative: there is no ordering requirement
// between subsystems, only the last status per component matters.
type Aggregator struct {
	mu       sync.Mutex
	statuses map[string]protocol.Status
	logf     func(format string, args ...interface{})
}

// New creates an Aggregator with every known subsystem at pending.
func New(logf func(format string, args ...interface{})) *Aggregator {
	if logf == nil {
		logf = func(format string, args ...interface{}) {}
	}
	a := &Aggregator{logf: logf}
	a.Reset()
	return a
}

// Apply decodes a raw data-channel payload and records the status update if
// it is a system_status message. Anything else is dropped silently: the
// channel carries non-JSON and unrelated traffic by design of the backend.
func (a *Aggregator) Apply(raw []byte) {
	typ, msg, err := protocol.ParseMessage(raw)
	if err != nil {
		return
	}
	if typ != protocol.TypeSystemStatus {
		return
	}
	sm := msg.(*protocol.StatusMessage)
	if sm.Component == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Unknown components are recorded verbatim so a newer backend does not
	// crash an older client, but AllReady never inspects them.
	a.statuses[sm.Component] = protocol.Status(sm.Status)
	a.logf("status: %s -> %s", sm.Component, sm.Status)
}

// Get returns the last-known status for a component.
func (a *Aggregator) Get(c protocol.Component) protocol.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statuses[string(c)]
}

// Snapshot returns the current status of every known subsystem.
func (a *Aggregator) Snapshot() map[protocol.Component]protocol.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := make(map[protocol.Component]protocol.Status, len(protocol.KnownComponents))
	for _, c := range protocol.KnownComponents {
		snap[c] = a.statuses[string(c)]
	}
	return snap
}

// AllReady reports whether the session is ready to present as live.
//
// The avatar is special: its ready status only counts once its video track is
// actually observed, because the status report and the media plane race
// independently. An unavailable or failed avatar does not block readiness;
// the call proceeds voice-only.
func (a *Aggregator) AllReady(connected, granted, trackObserved bool) bool {
	if !connected || !granted {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range []protocol.Component{
		protocol.ComponentSTT,
		protocol.ComponentLLM,
		protocol.ComponentTTS,
		protocol.ComponentDatabase,
	} {
		if a.statuses[string(c)] != protocol.StatusReady {
			return false
		}
	}

	switch a.statuses[string(protocol.ComponentAvatar)] {
	case protocol.StatusReady:
		return trackObserved
	case protocol.StatusUnavailable, protocol.StatusError:
		return true
	default:
		return false
	}
}

// Reset returns every known subsystem to pending and forgets any recorded
// unknown components. Called when the session returns to pre-join.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses = make(map[string]protocol.Status, len(protocol.KnownComponents))
	for _, c := range protocol.KnownComponents {
		a.statuses[string(c)] = protocol.StatusPending
	}
}
