package permission

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakePrompter answers device prompts from pre-loaded results. A nil error
// means the user allowed access.
type fakePrompter struct {
	audio   error
	video   error
	audioCh chan struct{} // if non-nil, RequestAudio blocks until signaled
	calls   chan string
}

func (p *fakePrompter) RequestAudio(ctx context.Context) error {
	if p.calls != nil {
		p.calls <- "audio"
	}
	if p.audioCh != nil {
		select {
		case <-p.audioCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.audio
}

func (p *fakePrompter) RequestVideo(ctx context.Context) error {
	if p.calls != nil {
		p.calls <- "video"
	}
	return p.video
}

func waitResult(t *testing.T, ch chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for permission result")
		return Result{}
	}
}

func TestGate_GrantedWithVideo(t *testing.T) {
	g := NewGate(&fakePrompter{}, nil)
	results := make(chan Result, 1)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	r := waitResult(t, results)

	if r.State != StateGranted {
		t.Errorf("State = %q, want granted", r.State)
	}
	if !r.Video {
		t.Error("Video = false, want true")
	}
	if g.State() != StateGranted {
		t.Errorf("gate State() = %q, want granted", g.State())
	}
}

func TestGate_VideoDenialNotFatal(t *testing.T) {
	g := NewGate(&fakePrompter{video: errors.New("no camera")}, nil)
	results := make(chan Result, 1)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	r := waitResult(t, results)

	if r.State != StateGranted {
		t.Errorf("State = %q, want granted despite video denial", r.State)
	}
	if r.Video {
		t.Error("Video = true, want false")
	}
	if r.Err != nil {
		t.Errorf("Err = %v, want nil", r.Err)
	}
}

func TestGate_AudioDenialFatal(t *testing.T) {
	g := NewGate(&fakePrompter{audio: errors.New("denied by user")}, nil)
	results := make(chan Result, 1)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	r := waitResult(t, results)

	if r.State != StateDenied {
		t.Errorf("State = %q, want denied", r.State)
	}
	if !errors.Is(r.Err, ErrMicrophoneDenied) {
		t.Errorf("Err = %v, want ErrMicrophoneDenied", r.Err)
	}

	// Denial is terminal: another connected transition must not re-prompt.
	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	select {
	case r := <-results:
		t.Errorf("unexpected second result after denial: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGate_IdempotentWhileInFlight(t *testing.T) {
	prompter := &fakePrompter{
		audioCh: make(chan struct{}),
		calls:   make(chan string, 8),
	}
	g := NewGate(prompter, nil)
	results := make(chan Result, 2)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	<-prompter.calls // audio prompt is now outstanding

	// Second invocation while the prompt is outstanding must be a no-op.
	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	if g.State() != StateRequesting {
		t.Errorf("State() = %q, want requesting", g.State())
	}

	close(prompter.audioCh)
	waitResult(t, results)

	select {
	case call := <-prompter.calls:
		if call == "audio" {
			t.Error("audio prompt ran twice")
		}
	default:
	}

	select {
	case r := <-results:
		t.Errorf("unexpected second result: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGate_ResetInvalidatesInFlightPrompt(t *testing.T) {
	prompter := &fakePrompter{audioCh: make(chan struct{})}
	g := NewGate(prompter, nil)
	results := make(chan Result, 2)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	if g.State() != StateRequesting {
		t.Fatalf("State() = %q, want requesting", g.State())
	}

	// Teardown while the prompt is outstanding. The cancelled prompt resolves
	// with an error, but that result belongs to the abandoned attempt.
	g.Reset()

	select {
	case r := <-results:
		t.Errorf("stale prompt result delivered after Reset: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
	if g.State() != StateNotRequested {
		t.Errorf("State() = %q after Reset, want not-requested", g.State())
	}

	// A fresh attempt prompts again and resolves normally.
	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	close(prompter.audioCh)
	r := waitResult(t, results)
	if r.State != StateGranted {
		t.Errorf("State = %q on the fresh attempt, want granted", r.State)
	}
}

func TestGate_ResetAllowsNewAttempt(t *testing.T) {
	g := NewGate(&fakePrompter{}, nil)
	results := make(chan Result, 1)

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	waitResult(t, results)

	g.Reset()
	if g.State() != StateNotRequested {
		t.Errorf("State() after Reset = %q, want not-requested", g.State())
	}

	g.EnsureGranted(context.Background(), func(r Result) { results <- r })
	r := waitResult(t, results)
	if r.State != StateGranted {
		t.Errorf("State = %q after reset attempt, want granted", r.State)
	}
}
