// Package permission handles the one-shot local device-permission
// negotiation. It is gated on transport connectivity by its caller and is
// independent of subsystem statuses.
package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State of the local device-permission negotiation. Transitions only move
// forward; denial is terminal for the session attempt and requires explicit
// user action (a restart) to retry.
type State string

const (
	StateNotRequested State = "not-requested"
	StateRequesting   State = "requesting"
	StateGranted      State = "granted"
	StateDenied       State = "denied"
)

// ErrMicrophoneDenied is the fatal, user-actionable failure: without an audio
// input channel the conversational purpose of the session cannot be met.
var ErrMicrophoneDenied = errors.New("microphone access denied")

// Prompter performs the platform device-access prompts. Requests suspend
// until the user answers; implementations must honor ctx cancellation.
type Prompter interface {
	RequestAudio(ctx context.Context) error
	RequestVideo(ctx context.Context) error
}

// Result reports the outcome of a permission request.
type Result struct {
	State State
	Video bool // video capture granted (best-effort, never fatal)
	Err   error
}

// Gate owns PermissionState for one session attempt.
type Gate struct {
	mu       sync.Mutex
	state    State
	video    bool
	gen      int // bumped by each request and each Reset; stale prompts check it
	cancel   context.CancelFunc
	prompter Prompter
	logf     func(format string, args ...interface{})
}

// NewGate creates a Gate in the not-requested state.
func NewGate(p Prompter, logf func(format string, args ...interface{})) *Gate {
	if logf == nil {
		logf = func(format string, args ...interface{}) {}
	}
	return &Gate{state: StateNotRequested, prompter: p, logf: logf}
}

// State returns the current permission state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// VideoGranted reports whether video capture was granted. False either
// before the request resolves or when the camera was denied or absent.
func (g *Gate) VideoGranted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.video
}

// EnsureGranted starts the device-permission negotiation if it has not run
// yet. Callers invoke it on every connection-established transition; all but
// the first invocation per attempt are no-ops, including after denial.
//
// The prompts suspend on user interaction, so the work runs on its own
// goroutine and reports back through done. Audio is requested first and its
// denial is fatal; video is requested best-effort afterwards.
func (g *Gate) EnsureGranted(ctx context.Context, done func(Result)) {
	g.mu.Lock()
	if g.state != StateNotRequested {
		g.mu.Unlock()
		return
	}
	g.state = StateRequesting
	g.gen++
	gen := g.gen
	promptCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()

	go func() {
		defer cancel()
		if err := g.prompter.RequestAudio(promptCtx); err != nil {
			g.mu.Lock()
			if g.gen != gen {
				// A Reset superseded this attempt while the prompt was up.
				g.mu.Unlock()
				return
			}
			g.state = StateDenied
			g.mu.Unlock()
			g.logf("permission: microphone denied: %v", err)
			done(Result{State: StateDenied, Err: fmt.Errorf("%w: allow microphone access and rejoin to continue", ErrMicrophoneDenied)})
			return
		}

		video := g.prompter.RequestVideo(promptCtx) == nil

		g.mu.Lock()
		if g.gen != gen {
			g.mu.Unlock()
			return
		}
		g.state = StateGranted
		g.video = video
		g.mu.Unlock()
		g.logf("permission: granted (video=%v)", video)
		done(Result{State: StateGranted, Video: video})
	}()
}

// Reset returns the gate to not-requested for a fresh session attempt. An
// in-flight prompt is cancelled and its eventual result discarded; it must
// not write state into the new attempt.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.state = StateNotRequested
	g.video = false
}
