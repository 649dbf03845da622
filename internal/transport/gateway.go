package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

const (
	redialAttempts = 5
	redialBaseWait = 500 * time.Millisecond
	pingInterval   = 30 * time.Second
	ioTimeout      = 10 * time.Second
)

// gatewayEnvelope is the framing the session gateway puts around events.
// Data payloads stay opaque here: decoding them is the consumers' business.
type gatewayEnvelope struct {
	Event   string              `json:"event"`
	Payload json.RawMessage     `json:"payload,omitempty"`
	Tracks  []protocol.TrackRef `json:"tracks,omitempty"`
}

// Envelope event names from the gateway.
const (
	gwEventData   = "data"
	gwEventTracks = "tracks"
)

// Gateway is the websocket-backed Session implementation. It synthesizes
// connection-state transitions from the socket lifecycle and performs its own
// bounded redial attempts, reporting reconnecting while they run.
type Gateway struct {
	hub      *hub
	endpoint string
	token    string
	room     string
	identity string
	logf     func(format string, args ...interface{})

	recv chan []byte

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
	cancel  context.CancelFunc
}

// NewGateway creates a Gateway for one session attempt. endpoint is the
// ws:// or wss:// URL of the session gateway; token and room come from the
// token service.
func NewGateway(endpoint, token, room, identity string, logf func(format string, args ...interface{})) *Gateway {
	if logf == nil {
		logf = func(format string, args ...interface{}) {}
	}
	return &Gateway{
		hub:      newHub(),
		endpoint: endpoint,
		token:    token,
		room:     room,
		identity: identity,
		logf:     logf,
	}
}

// Subscribe implements Session.
func (g *Gateway) Subscribe() *Subscription { return g.hub.subscribe() }

// Unsubscribe implements Session.
func (g *Gateway) Unsubscribe(sub *Subscription) { g.hub.unsubscribe(sub) }

// Connect dials the gateway and starts the event pumps. The connecting and
// connected (or disconnected, on failure) transitions are broadcast to
// subscribers.
func (g *Gateway) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	g.closing = false
	g.cancel = cancel
	g.mu.Unlock()

	g.hub.broadcastConnState(protocol.StateConnecting)

	conn, err := g.dial(ctx)
	if err != nil {
		cancel()
		g.hub.broadcastConnState(protocol.StateDisconnected)
		return fmt.Errorf("dial session gateway: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	g.recv = make(chan []byte, subscriberBuffer)
	go g.msgPump()
	go g.run(runCtx, conn)

	g.hub.broadcastConnState(protocol.StateConnected)
	return nil
}

// Disconnect implements Session. The disconnected transition reaches
// subscribers through the usual pump shutdown path.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	g.closing = true
	conn := g.conn
	cancel := g.cancel
	g.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "hangup")
	}
	if cancel != nil {
		cancel()
	}
}

func (g *Gateway) isClosing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closing
}

func (g *Gateway) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", g.token)
	q.Set("room", g.room)
	q.Set("identity", g.identity)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	return conn, err
}

// run owns the connection for its lifetime: it reads until failure, redials
// with bounded attempts while reporting reconnecting, and broadcasts the
// final disconnected transition when the session ends either way.
func (g *Gateway) run(ctx context.Context, conn *websocket.Conn) {
	defer close(g.recv)

	for {
		done := make(chan struct{})
		go g.pingLoop(conn, done)
		err := g.readPump(ctx, conn)
		close(done)

		if g.isClosing() || ctx.Err() != nil {
			break
		}
		g.logf("gateway: connection lost: %v", err)
		g.hub.broadcastConnState(protocol.StateReconnecting)

		conn = g.redial(ctx)
		if conn == nil {
			break
		}
		g.mu.Lock()
		g.conn = conn
		g.mu.Unlock()
		g.hub.broadcastConnState(protocol.StateConnected)
	}

	g.hub.broadcastConnState(protocol.StateDisconnected)
}

// redial retries the dial with linear backoff. Returns nil when the attempts
// are exhausted or the session is closing.
func (g *Gateway) redial(ctx context.Context) *websocket.Conn {
	for attempt := 1; attempt <= redialAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(attempt) * redialBaseWait):
		}
		if g.isClosing() {
			return nil
		}
		conn, err := g.dial(ctx)
		if err == nil {
			g.logf("gateway: reconnected on attempt %d", attempt)
			return conn
		}
		g.logf("gateway: redial attempt %d failed: %v", attempt, err)
	}
	return nil
}

func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		// No read timeout: the gateway pushes events at its own pace and the
		// ping loop detects dead connections.
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		select {
		case g.recv <- data:
		default:
			g.logf("gateway: recv buffer full, dropping message")
		}
	}
}

// msgPump processes incoming frames in FIFO order on a dedicated goroutine
// so a slow decode never stalls the read loop.
func (g *Gateway) msgPump() {
	for data := range g.recv {
		var env gatewayEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Non-JSON frames are expected noise on the shared channel.
			continue
		}
		switch env.Event {
		case gwEventData:
			g.hub.broadcastData([]byte(env.Payload))
		case gwEventTracks:
			g.hub.broadcastTracks(env.Tracks)
		}
	}
}

func (g *Gateway) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				g.logf("gateway: ping failed: %v", err)
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
