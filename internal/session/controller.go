// Package session holds the top-level lifecycle state machine. It consumes
// transport connection-state transitions, the status aggregator, the
// permission gate, and the track observer, and derives the single
// presentation phase the UI shows.
package session

import (
	"context"
	"time"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/permission"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/status"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/track"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/transport"
)

// Phase is the presentation state of the session.
type Phase string

const (
	PhasePreJoin    Phase = "pre-join"
	PhaseLoading    Phase = "loading"
	PhaseLive       Phase = "live"
	PhaseRecovering Phase = "recovering"
)

// DefaultDisconnectTimeout bounds how long a recovery overlay is shown for a
// dropped connection before the session is torn down. An indefinite overlay
// with no forward progress is worse than restarting the flow.
const DefaultDisconnectTimeout = 30 * time.Second

// State is the published snapshot the UI renders from.
type State struct {
	Phase       Phase
	Conn        protocol.ConnectionState
	Permission  permission.State
	Statuses    map[protocol.Component]protocol.Status
	VisualTrack bool
	EverReady   bool

	// FatalMessage is the blocking, user-actionable message shown after a
	// microphone denial. Empty otherwise.
	FatalMessage string

	// RecoveryDeadline is when a disconnected session is forced back to
	// pre-join. Zero unless the disconnected sub-state is active.
	RecoveryDeadline time.Time
}

// Options configures a Controller.
type Options struct {
	// DisconnectTimeout overrides DefaultDisconnectTimeout (tests use short
	// values). Zero means the default.
	DisconnectTimeout time.Duration
	Logf              func(format string, args ...interface{})
}

type command interface{}

type cmdLeave struct{}

type cmdPermission struct {
	attempt int
	result  permission.Result
}

type cmdTimeout struct {
	gen int
}

// Controller runs the lifecycle state machine. All state below the channels
// is confined to the Run goroutine; the UI reads published State snapshots.
type Controller struct {
	sess    transport.Session
	sub     *transport.Subscription
	agg     *status.Aggregator
	gate    *permission.Gate
	logf    func(format string, args ...interface{})
	timeout time.Duration

	cmds    chan command
	updates chan State

	phase       Phase
	conn        protocol.ConnectionState
	tracks      []protocol.TrackRef
	everReady   bool
	leaveIntent bool
	fatalMsg    string
	deadline    time.Time
	timer       *time.Timer
	timerGen    int
	attempt     int // bumped on pre-join re-entry; stale async results carry the old value
}

// New creates a Controller in the pre-join phase. The transport subscription
// is taken here, before Run is scheduled, so transitions broadcast between
// construction and the first select are buffered rather than lost.
func New(sess transport.Session, prompter permission.Prompter, opts Options) *Controller {
	logf := opts.Logf
	if logf == nil {
		logf = func(format string, args ...interface{}) {}
	}
	timeout := opts.DisconnectTimeout
	if timeout == 0 {
		timeout = DefaultDisconnectTimeout
	}
	return &Controller{
		sess:    sess,
		sub:     sess.Subscribe(),
		agg:     status.New(logf),
		gate:    permission.NewGate(prompter, logf),
		logf:    logf,
		timeout: timeout,
		cmds:    make(chan command, 16),
		updates: make(chan State, 16),
		phase:   PhasePreJoin,
		conn:    protocol.StateDisconnected,
	}
}

// Updates delivers a State snapshot after every processed event. When the
// consumer lags, the oldest snapshots are dropped; only the latest matters.
func (c *Controller) Updates() <-chan State { return c.updates }

// Leave records the user's intent to hang up and requests disconnection.
// Intent is recorded before the transport acts, so the resulting
// disconnected event takes the direct edge to pre-join instead of showing a
// connection-lost overlay.
func (c *Controller) Leave() {
	c.cmds <- cmdLeave{}
}

// Run processes events until ctx is cancelled or the transport closes the
// subscription. It owns the subscription taken in New and the disconnect
// timer; both are released on return so no state leaks into a later attempt.
func (c *Controller) Run(ctx context.Context) {
	defer c.sess.Unsubscribe(c.sub)
	defer c.stopTimer()

	c.publish()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-c.sub.ConnState:
			if !ok {
				return
			}
			c.onConnState(ctx, s)
		case raw, ok := <-c.sub.Data:
			if !ok {
				return
			}
			c.agg.Apply(raw)
			c.recompute()
		case tracks, ok := <-c.sub.Tracks:
			if !ok {
				return
			}
			c.tracks = tracks
			c.recompute()
		case cmd := <-c.cmds:
			c.onCommand(ctx, cmd)
		}
		c.publish()
	}
}

func (c *Controller) onConnState(ctx context.Context, s protocol.ConnectionState) {
	c.conn = s
	switch s {
	case protocol.StateConnecting:
		if c.phase == PhasePreJoin {
			c.phase = PhaseLoading
			c.logf("session: connection attempt started")
		}

	case protocol.StateConnected:
		c.disarmTimer()
		if c.phase == PhasePreJoin {
			c.phase = PhaseLoading
		}
		if c.phase == PhaseRecovering {
			c.phase = PhaseLive
			c.logf("session: transport recovered, back to live")
		}
		// Once per connection-established transition; the gate is a no-op
		// when a request is in flight, granted, or denied. The result is
		// stamped with the current attempt so a prompt outliving a teardown
		// cannot poison the next one.
		attempt := c.attempt
		c.gate.EnsureGranted(ctx, func(r permission.Result) {
			select {
			case c.cmds <- cmdPermission{attempt: attempt, result: r}:
			case <-ctx.Done():
			}
		})
		c.recompute()

	case protocol.StateReconnecting:
		c.disarmTimer()
		if c.everReady && c.phase == PhaseLive {
			c.phase = PhaseRecovering
			c.logf("session: transport reconnecting, showing recovery overlay")
		}

	case protocol.StateDisconnected:
		switch {
		case c.leaveIntent:
			// Intentional hangup never shows a connection-lost overlay.
			c.enterPreJoin("user hangup")
		case !c.everReady:
			// Nothing live to recover; restart the flow instead.
			c.enterPreJoin("disconnected before readiness")
		default:
			c.phase = PhaseRecovering
			c.armTimer(ctx)
			c.logf("session: disconnected, recovery window %s", c.timeout)
		}
	}
}

func (c *Controller) onCommand(ctx context.Context, cmd command) {
	switch cmd := cmd.(type) {
	case cmdLeave:
		c.leaveIntent = true
		c.sess.Disconnect()

	case cmdPermission:
		if cmd.attempt != c.attempt {
			return // result from an attempt already torn down
		}
		if cmd.result.State == permission.StateDenied {
			c.fatalMsg = cmd.result.Err.Error()
			c.logf("session: %s", c.fatalMsg)
			return
		}
		c.recompute()

	case cmdTimeout:
		if cmd.gen != c.timerGen {
			return // stale timer from an earlier disconnected sub-state
		}
		if c.phase == PhaseRecovering && c.conn == protocol.StateDisconnected {
			c.enterPreJoin("recovery window expired")
		}
	}
}

// recompute promotes loading to live the first time allReady holds. Once
// live, subsystem statuses alone never demote the phase; only transport
// transitions can leave live.
func (c *Controller) recompute() {
	if c.phase != PhaseLoading || c.fatalMsg != "" {
		return
	}
	connected := c.conn == protocol.StateConnected
	granted := c.gate.State() == permission.StateGranted
	if c.agg.AllReady(connected, granted, track.HasVisualTrack(c.tracks)) {
		c.phase = PhaseLive
		c.everReady = true
		c.logf("session: all subsystems ready, going live")
	}
}

// enterPreJoin tears the attempt down completely: no subsystem status, latch,
// intent flag, or timer survives this edge.
func (c *Controller) enterPreJoin(reason string) {
	c.logf("session: returning to pre-join (%s)", reason)
	c.phase = PhasePreJoin
	c.attempt++
	c.everReady = false
	c.leaveIntent = false
	c.fatalMsg = ""
	c.tracks = nil
	c.agg.Reset()
	c.gate.Reset()
	c.disarmTimer()
}

func (c *Controller) armTimer(ctx context.Context) {
	c.stopTimer()
	c.timerGen++
	gen := c.timerGen
	c.deadline = time.Now().Add(c.timeout)
	c.timer = time.AfterFunc(c.timeout, func() {
		select {
		case c.cmds <- cmdTimeout{gen: gen}:
		case <-ctx.Done():
		}
	})
}

// disarmTimer cancels the countdown and clears the published deadline.
// Invalidating the generation makes an already-fired timer a no-op.
func (c *Controller) disarmTimer() {
	c.stopTimer()
	c.timerGen++
	c.deadline = time.Time{}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) publish() {
	st := State{
		Phase:            c.phase,
		Conn:             c.conn,
		Permission:       c.gate.State(),
		Statuses:         c.agg.Snapshot(),
		VisualTrack:      track.HasVisualTrack(c.tracks),
		EverReady:        c.everReady,
		FatalMessage:     c.fatalMsg,
		RecoveryDeadline: c.deadline,
	}
	for {
		select {
		case c.updates <- st:
			return
		default:
			// Consumer is behind: drop the oldest snapshot and retry.
			select {
			case <-c.updates:
			default:
			}
		}
	}
}
