// Package activity keeps an append-only, order-preserving view of the tool
// invocation lifecycle reported on the shared data channel. It is purely
// observational and independent of the readiness machine.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

// Kind distinguishes the two halves of a tool invocation.
type Kind string

const (
	KindInvocation Kind = "invocation"
	KindResult     Kind = "result"
)

// Entry is one observed tool lifecycle event. Entries are never mutated or
// removed within a session.
type Entry struct {
	Label string
	Kind  Kind
	At    time.Time
}

// Sink receives each entry as it is appended, e.g. for persistence. It is
// called on the log's consuming goroutine and must not block for long.
type Sink func(Entry)

// Log is the append-only activity log.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sink    Sink
	now     func() time.Time
}

// NewLog creates an empty Log. sink may be nil.
func NewLog(sink Sink) *Log {
	return &Log{sink: sink, now: time.Now}
}

// Apply decodes a raw data-channel payload and appends an entry if it is a
// tool_call or tool_result message. Everything else is ignored silently.
func (l *Log) Apply(raw []byte) {
	typ, msg, err := protocol.ParseMessage(raw)
	if err != nil {
		return
	}

	var entry Entry
	switch typ {
	case protocol.TypeToolCall:
		entry = Entry{Label: msg.(*protocol.ToolCallMessage).Message, Kind: KindInvocation}
	case protocol.TypeToolResult:
		entry = Entry{Label: msg.(*protocol.ToolResultMessage).Message, Kind: KindResult}
	default:
		return
	}
	entry.At = l.now()

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(entry)
	}
}

// Follow consumes raw payloads from its own subscription to the shared
// message stream until the channel closes or ctx is cancelled.
func (l *Log) Follow(ctx context.Context, data <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-data:
			if !ok {
				return
			}
			l.Apply(raw)
		}
	}
}

// Entries returns a copy of the log in arrival order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
