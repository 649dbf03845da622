package transport

import (
	"context"
	"sync"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
)

// MockSession implements Session for tests. Events are injected with the
// Emit methods and fan out through the same hub the real gateway uses.
type MockSession struct {
	hub *hub

	mu              sync.Mutex
	connectCalls    int
	disconnectCalls int
	connectErr      error

	// When true (the default), Disconnect broadcasts the disconnected
	// transition the way a real transport would after an intentional hangup.
	AutoDisconnect bool
}

// NewMockSession creates a MockSession.
func NewMockSession() *MockSession {
	return &MockSession{hub: newHub(), AutoDisconnect: true}
}

// Subscribe implements Session.
func (m *MockSession) Subscribe() *Subscription { return m.hub.subscribe() }

// Unsubscribe implements Session.
func (m *MockSession) Unsubscribe(sub *Subscription) { m.hub.unsubscribe(sub) }

// Connect implements Session. It broadcasts connecting followed by connected
// unless a connect error is scripted.
func (m *MockSession) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.connectCalls++
	err := m.connectErr
	m.mu.Unlock()

	m.hub.broadcastConnState(protocol.StateConnecting)
	if err != nil {
		m.hub.broadcastConnState(protocol.StateDisconnected)
		return err
	}
	m.hub.broadcastConnState(protocol.StateConnected)
	return nil
}

// Disconnect implements Session.
func (m *MockSession) Disconnect() {
	m.mu.Lock()
	m.disconnectCalls++
	auto := m.AutoDisconnect
	m.mu.Unlock()

	if auto {
		m.hub.broadcastConnState(protocol.StateDisconnected)
	}
}

// SetConnectErr scripts an error for the next Connect.
func (m *MockSession) SetConnectErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// ConnectCalls returns how many times Connect ran.
func (m *MockSession) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

// DisconnectCalls returns how many times Disconnect ran.
func (m *MockSession) DisconnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectCalls
}

// EmitConnState injects a connection-state transition.
func (m *MockSession) EmitConnState(s protocol.ConnectionState) {
	m.hub.broadcastConnState(s)
}

// EmitData injects a raw data-channel payload.
func (m *MockSession) EmitData(payload []byte) {
	m.hub.broadcastData(payload)
}

// EmitTracks injects a track-set change.
func (m *MockSession) EmitTracks(tracks []protocol.TrackRef) {
	m.hub.broadcastTracks(tracks)
}

// Close closes all subscriptions.
func (m *MockSession) Close() {
	m.hub.closeAll()
}
