package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/activity"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/permission"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/protocol"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	bannerStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

// componentLabels maps wire component names to what the screen shows.
var componentLabels = map[protocol.Component]string{
	protocol.ComponentSTT:      "Speech recognition",
	protocol.ComponentLLM:      "Assistant",
	protocol.ComponentTTS:      "Voice",
	protocol.ComponentDatabase: "Appointment book",
	protocol.ComponentAvatar:   "Avatar",
}

// feedLines caps how much of the activity log the live screen shows.
const feedLines = 8

// View renders the screen for the current phase.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Appointment Assistant"))
	if m.room != "" {
		b.WriteString(faintStyle.Render("  " + m.room))
	}
	b.WriteString("\n\n")

	switch m.state.Phase {
	case session.PhasePreJoin:
		m.viewPreJoin(&b)
	case session.PhaseLoading:
		m.viewLoading(&b)
	case session.PhaseLive:
		m.viewLive(&b)
	case session.PhaseRecovering:
		m.viewRecovering(&b)
	}
	return b.String()
}

func (m *Model) viewPreJoin(b *strings.Builder) {
	if m.joinErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Could not join: %v", m.joinErr)))
		b.WriteString("\n\n")
	}
	if m.joining {
		b.WriteString("Joining...\n")
		return
	}
	b.WriteString("Ready when you are.\n\n")
	b.WriteString(faintStyle.Render("[enter] Join call   [q] Quit"))
	b.WriteString("\n")
}

func (m *Model) viewLoading(b *strings.Builder) {
	if m.state.FatalMessage != "" {
		b.WriteString(bannerStyle.Render(m.state.FatalMessage))
		b.WriteString("\n\n")
		b.WriteString(faintStyle.Render("[q] Hang up"))
		b.WriteString("\n")
		return
	}

	b.WriteString("Setting up your call...\n\n")
	b.WriteString(statusLine("Connection", connectionDot(m.state.Conn)))
	b.WriteString(statusLine("Microphone", permissionDot(m.state.Permission)))
	for _, c := range protocol.KnownComponents {
		b.WriteString(statusLine(componentLabels[c], statusDot(m.state.Statuses[c])))
	}
	if avatarPending(m.state) {
		b.WriteString(statusLine("Avatar video", pendingStyle.Render("● waiting")))
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("[q] Hang up"))
	b.WriteString("\n")
}

func (m *Model) viewLive(b *strings.Builder) {
	b.WriteString(readyStyle.Render("● Live"))
	if !m.state.VisualTrack {
		b.WriteString(faintStyle.Render("  voice only"))
	}
	b.WriteString("\n\n")

	if m.log != nil {
		entries := m.log.Entries()
		if len(entries) > feedLines {
			entries = entries[len(entries)-feedLines:]
		}
		if len(entries) == 0 {
			b.WriteString(faintStyle.Render("(waiting for the assistant)"))
			b.WriteString("\n")
		}
		for _, e := range entries {
			b.WriteString(feedLine(e, m.labelWidth()))
		}
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render("[q] Hang up"))
	b.WriteString("\n")
}

func (m *Model) viewRecovering(b *strings.Builder) {
	b.WriteString(pendingStyle.Render("● Connection lost"))
	b.WriteString("\n\n")
	if m.state.RecoveryDeadline.IsZero() {
		b.WriteString("Reconnecting...\n")
	} else {
		left := time.Until(m.state.RecoveryDeadline)
		if left < 0 {
			left = 0
		}
		b.WriteString(fmt.Sprintf("Trying to get you back... %ds\n", int(left.Seconds())))
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("[q] Hang up"))
	b.WriteString("\n")
}

func statusLine(label, dot string) string {
	return fmt.Sprintf("  %-20s %s\n", label, dot)
}

func statusDot(s protocol.Status) string {
	switch s {
	case protocol.StatusReady:
		return readyStyle.Render("● ready")
	case protocol.StatusInitializing:
		return pendingStyle.Render("● starting")
	case protocol.StatusError:
		return errorStyle.Render("● error")
	case protocol.StatusUnavailable:
		return faintStyle.Render("◌ unavailable")
	default:
		return faintStyle.Render("○ waiting")
	}
}

func connectionDot(s protocol.ConnectionState) string {
	switch s {
	case protocol.StateConnected:
		return readyStyle.Render("● connected")
	case protocol.StateConnecting, protocol.StateReconnecting:
		return pendingStyle.Render("● connecting")
	default:
		return faintStyle.Render("○ offline")
	}
}

func permissionDot(s permission.State) string {
	switch s {
	case permission.StateGranted:
		return readyStyle.Render("● granted")
	case permission.StateRequesting:
		return pendingStyle.Render("● asking")
	case permission.StateDenied:
		return errorStyle.Render("● denied")
	default:
		return faintStyle.Render("○ waiting")
	}
}

// avatarPending reports the one readiness gap the status strip cannot show
// from statuses alone: avatar says ready but its video has not arrived.
func avatarPending(st session.State) bool {
	return st.Statuses[protocol.ComponentAvatar] == protocol.StatusReady && !st.VisualTrack
}

// labelWidth is how many cells a feed label may take before truncation:
// the terminal width minus the indent and timestamp. Zero means no limit
// (width not reported yet).
func (m *Model) labelWidth() int {
	if m.width == 0 {
		return 0
	}
	w := m.width - len("  15:04:05 ")
	if w < 1 {
		w = 1
	}
	return w
}

func feedLine(e activity.Entry, maxLabel int) string {
	label := truncate(e.Label, maxLabel)
	ts := faintStyle.Render(e.At.Format("15:04:05"))
	if e.Kind == activity.KindResult {
		return fmt.Sprintf("  %s %s\n", ts, readyStyle.Render(label))
	}
	return fmt.Sprintf("  %s %s\n", ts, label)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
