// Package dashboard is the terminal UI for a call. It renders the published
// session snapshots as one of four screens (pre-join, loading, live,
// recovering) and translates key presses into join/leave actions.
package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/activity"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/session"
)

// Joiner starts a connection attempt. The dashboard calls it off the Update
// loop; a non-nil error is shown on the pre-join screen.
type Joiner func() error

// Leaver records the user's intent to hang up.
type Leaver func()

// Model is the bubbletea model for the call screen.
type Model struct {
	updates <-chan session.State
	log     *activity.Log
	join    Joiner
	leave   Leaver

	state    session.State
	joining  bool
	joinErr  error
	wentLive bool
	room     string
	width    int
}

// NewModel creates a dashboard reading snapshots from updates. log may be
// nil when no activity feed is wanted.
func NewModel(updates <-chan session.State, log *activity.Log, join Joiner, leave Leaver) *Model {
	return &Model{
		updates: updates,
		log:     log,
		join:    join,
		leave:   leave,
		state:   session.State{Phase: session.PhasePreJoin},
	}
}

// SetRoom sets the room name shown in the header.
func (m *Model) SetRoom(room string) { m.room = room }

// WentLive reports whether the session reached the live phase at any point.
func (m *Model) WentLive() bool { return m.wentLive }

// FinalPhase returns the phase of the last snapshot seen.
func (m *Model) FinalPhase() session.Phase { return m.state.Phase }

type stateMsg session.State

type joinResultMsg struct {
	err error
}

type tickMsg struct{}

// Init starts the snapshot reader and the render tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState, tickCmd())
}

// waitForState blocks on the next published snapshot.
func (m *Model) waitForState() tea.Msg {
	st, ok := <-m.updates
	if !ok {
		return tea.Quit()
	}
	return stateMsg(st)
}

func (m *Model) startJoin() tea.Cmd {
	return func() tea.Msg {
		return joinResultMsg{err: m.join()}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state.Phase == session.PhasePreJoin {
				return m, tea.Quit
			}
			// Mid-call this is a hangup, not a quit; the disconnected
			// snapshot brings the UI back to pre-join.
			m.leave()
		case "enter":
			if m.state.Phase == session.PhasePreJoin && !m.joining {
				m.joining = true
				m.joinErr = nil
				return m, m.startJoin()
			}
		}

	case stateMsg:
		m.state = session.State(msg)
		if m.state.EverReady {
			m.wentLive = true
		}
		if m.state.Phase == session.PhasePreJoin {
			m.joining = false
		}
		return m, m.waitForState

	case joinResultMsg:
		if msg.err != nil {
			m.joining = false
			m.joinErr = msg.err
		}

	case tickMsg:
		// Redraw so the recovery countdown advances between snapshots.
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// tickCmd drives the once-a-second redraw.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
