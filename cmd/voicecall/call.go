package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/activity"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/config"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/dashboard"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/logging"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/permission"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/session"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/store"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/token"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/transport"
)

// runCall fetches credentials, wires the session pipeline, and hands the
// terminal to the dashboard until the user quits.
func runCall() {
	logger, err := logging.New(config.LogPath())
	if err != nil {
		die("open log: %v", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identity := config.Identity()
	cred, err := token.New(config.TokenURL()).Fetch(ctx, identity)
	if err != nil {
		die("fetch session credential: %v", err)
	}
	logger.SetScope(cred.Room)
	logger.Infof("credential issued for %s", identity)

	st, err := store.Open(config.DBPath())
	if err != nil {
		die("open call history: %v", err)
	}
	defer st.Close()

	callID, err := st.BeginCall(cred.Room, identity)
	if err != nil {
		die("record call: %v", err)
	}

	gw := transport.NewGateway(config.GatewayURL(), cred.Token, cred.Room, identity, logger.Debugf)

	// The activity log follows its own subscription so the readiness machine
	// and the feed never contend for one stream.
	log := activity.NewLog(func(e activity.Entry) {
		if err := st.AppendEvent(callID, e); err != nil {
			logger.Errorf("persist call event: %v", err)
		}
	})
	feedSub := gw.Subscribe()
	defer gw.Unsubscribe(feedSub)
	go log.Follow(ctx, feedSub.Data)

	ctrl := session.New(gw, permission.AllowAll{}, session.Options{Logf: logger.Debugf})
	go ctrl.Run(ctx)

	model := dashboard.NewModel(ctrl.Updates(), log, func() error {
		return gw.Connect(ctx)
	}, ctrl.Leave)
	model.SetRoom(cred.Room)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Errorf("dashboard: %v", err)
	}

	gw.Disconnect()
	if err := st.EndCall(callID, string(model.FinalPhase()), model.WentLive()); err != nil {
		logger.Errorf("close call record: %v", err)
	}
}
