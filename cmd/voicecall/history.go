package main

import (
	"fmt"
	"time"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/config"
	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/store"
)

const historyLimit = 20

// runHistory prints the most recent calls, newest first.
func runHistory() {
	st, err := store.Open(config.DBPath())
	if err != nil {
		die("open call history: %v", err)
	}
	defer st.Close()

	calls, err := st.RecentCalls(historyLimit)
	if err != nil {
		die("read call history: %v", err)
	}
	if len(calls) == 0 {
		fmt.Println("no calls yet")
		return
	}

	for _, c := range calls {
		outcome := "never live"
		if c.WentLive {
			outcome = "live " + callDuration(c)
		}
		fmt.Printf("%s  %-20s %-10s %s\n",
			c.StartedAt.Local().Format("2006-01-02 15:04"), c.Room, outcome, c.FinalPhase)

		events, err := st.EventsForCall(c.ID)
		if err != nil {
			continue
		}
		for _, e := range events {
			fmt.Printf("    %s  %s\n", e.At.Local().Format("15:04:05"), e.Label)
		}
	}
}

func callDuration(c store.CallRecord) string {
	if c.EndedAt.IsZero() {
		return "?"
	}
	return c.EndedAt.Sub(c.StartedAt).Round(time.Second).String()
}
