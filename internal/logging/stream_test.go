package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestTailGetRecentReturnsOldestFirstAndEvicts(t *testing.T) {
	tail := NewTail(3)
	for i := 0; i < 5; i++ {
		tail.Push(Record{Message: string(rune('a' + i))})
	}

	got := tail.GetRecent(3)
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("GetRecent() len = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Message != want[i] {
			t.Errorf("GetRecent()[%d].Message = %q, want %q", i, r.Message, want[i])
		}
	}
}

func TestTailGetRecentCapsAtAvailableCount(t *testing.T) {
	tail := NewTail(10)
	tail.Push(Record{Message: "only one"})

	got := tail.GetRecent(5)
	if len(got) != 1 {
		t.Fatalf("GetRecent(5) len = %d, want 1", len(got))
	}
}

func TestTailSubscribeReceivesPushedRecords(t *testing.T) {
	tail := NewTail(10)
	ch := tail.Subscribe()
	defer tail.Unsubscribe(ch)

	tail.Push(Record{Message: "hello"})

	select {
	case r := <-ch:
		if r.Message != "hello" {
			t.Errorf("subscriber got Message = %q, want %q", r.Message, "hello")
		}
	default:
		t.Fatal("subscriber did not receive pushed record")
	}
}

func TestTailHandlerCapturesComponentAndFields(t *testing.T) {
	tail := NewTail(10)
	var fallback bytes.Buffer
	h := NewTailHandler(tail, &fallback, slog.LevelInfo)

	log := slog.New(h).With("component", "archiver")
	log.Info("segment archived", "camera", "front", "bytes", 1024)

	recent := tail.GetRecent(1)
	if len(recent) != 1 {
		t.Fatalf("GetRecent(1) len = %d, want 1", len(recent))
	}
	rec := recent[0]
	if rec.Component != "archiver" {
		t.Errorf("Record.Component = %q, want %q", rec.Component, "archiver")
	}
	if rec.Message != "segment archived" {
		t.Errorf("Record.Message = %q, want %q", rec.Message, "segment archived")
	}
	if rec.Fields["camera"] != "front" {
		t.Errorf("Record.Fields[camera] = %v, want %q", rec.Fields["camera"], "front")
	}

	if fallback.Len() == 0 {
		t.Error("TailHandler did not forward the record to the fallback writer")
	}
}

func TestTailHandlerEnabledRespectsLevel(t *testing.T) {
	h := NewTailHandler(NewTail(1), &bytes.Buffer{}, slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(Info) = true, want false when configured at Warn")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(Error) = false, want true when configured at Warn")
	}
}

func TestRecordJSONLineRoundTrips(t *testing.T) {
	rec := Record{Message: "hi", Level: "INFO", Component: "archiver"}
	line := rec.JSONLine()

	var decoded Record
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if decoded.Message != rec.Message || decoded.Component != rec.Component {
		t.Errorf("JSONLine() round trip = %+v, want %+v", decoded, rec)
	}
}
