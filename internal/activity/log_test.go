package activity

import (
	"context"
	"testing"
	"time"
)

func TestLog_AppendsInOrder(t *testing.T) {
	l := NewLog(nil)
	l.Apply([]byte(`{"type":"tool_call","message":"Identifying user: 555-0100"}`))
	l.Apply([]byte(`{"type":"tool_result","message":"User identified"}`))
	l.Apply([]byte(`{"type":"tool_call","message":"Checking availability"}`))

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}

	want := []struct {
		label string
		kind  Kind
	}{
		{"Identifying user: 555-0100", KindInvocation},
		{"User identified", KindResult},
		{"Checking availability", KindInvocation},
	}
	for i, w := range want {
		if entries[i].Label != w.label {
			t.Errorf("entries[%d].Label = %q, want %q", i, entries[i].Label, w.label)
		}
		if entries[i].Kind != w.kind {
			t.Errorf("entries[%d].Kind = %q, want %q", i, entries[i].Kind, w.kind)
		}
		if entries[i].At.IsZero() {
			t.Errorf("entries[%d].At is zero", i)
		}
	}
}

func TestLog_IgnoresUnrelatedTraffic(t *testing.T) {
	l := NewLog(nil)
	l.Apply([]byte(`{"type":"system_status","component":"stt","status":"ready"}`))
	l.Apply([]byte("not json"))
	l.Apply([]byte(`{"type":"something_else","message":"x"}`))

	if l.Len() != 0 {
		t.Errorf("Len() = %d after unrelated traffic, want 0", l.Len())
	}
}

func TestLog_SinkReceivesEntries(t *testing.T) {
	var sunk []Entry
	l := NewLog(func(e Entry) { sunk = append(sunk, e) })

	l.Apply([]byte(`{"type":"tool_call","message":"Booking appointment"}`))
	if len(sunk) != 1 {
		t.Fatalf("sink received %d entries, want 1", len(sunk))
	}
	if sunk[0].Label != "Booking appointment" {
		t.Errorf("sunk Label = %q", sunk[0].Label)
	}
}

func TestLog_Follow(t *testing.T) {
	l := NewLog(nil)
	data := make(chan []byte, 4)
	data <- []byte(`{"type":"tool_call","message":"a"}`)
	data <- []byte(`{"type":"tool_result","message":"b"}`)
	close(data)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.Follow(ctx, data)

	if l.Len() != 2 {
		t.Errorf("Len() = %d after Follow, want 2", l.Len())
	}
}
