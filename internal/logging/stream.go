// Package logging gives each Satori service an in-memory tail of its own
// recent log records, exposed over the GET /logs route so an operator can
// inspect a running archiver or event processor without shelling in for its
// stdout.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Record is one structured log line captured off a slog.Handler.
type Record struct {
	Time      time.Time              `json:"time"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Component string                 `json:"component,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Tail is a fixed-size circular buffer of the most recent Records, with
// fan-out to live subscribers for a future streaming /logs endpoint beyond
// today's poll-based GET /logs?last=N.
type Tail struct {
	records []Record
	cap     int
	next    int
	filled  int
	mu      sync.RWMutex

	subscribers map[chan Record]bool
	subMu       sync.RWMutex
}

// NewTail allocates a Tail holding up to cap records.
func NewTail(cap int) *Tail {
	return &Tail{
		records:     make([]Record, cap),
		cap:         cap,
		subscribers: make(map[chan Record]bool),
	}
}

// Push appends rec, evicting the oldest record once the buffer is full, and
// fans it out to any live subscribers.
func (t *Tail) Push(rec Record) {
	t.mu.Lock()
	t.records[t.next] = rec
	t.next = (t.next + 1) % t.cap
	if t.filled < t.cap {
		t.filled++
	}
	t.mu.Unlock()

	t.subMu.RLock()
	for ch := range t.subscribers {
		select {
		case ch <- rec:
		default:
			// subscriber fell behind; drop rather than block log writes
		}
	}
	t.subMu.RUnlock()
}

// GetRecent returns up to n of the most recently pushed records, oldest first.
func (t *Tail) GetRecent(n int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > t.filled {
		n = t.filled
	}

	out := make([]Record, n)
	start := (t.next - n + t.cap) % t.cap
	for i := 0; i < n; i++ {
		out[i] = t.records[(start+i)%t.cap]
	}
	return out
}

// Subscribe opens a channel that receives every record pushed from now on.
// Callers must Unsubscribe when done to release the channel.
func (t *Tail) Subscribe() chan Record {
	ch := make(chan Record, 100)
	t.subMu.Lock()
	t.subscribers[ch] = true
	t.subMu.Unlock()
	return ch
}

// Unsubscribe stops and closes a channel returned by Subscribe.
func (t *Tail) Unsubscribe(ch chan Record) {
	t.subMu.Lock()
	delete(t.subscribers, ch)
	t.subMu.Unlock()
	close(ch)
}

// TailHandler is a slog.Handler that mirrors every record into a Tail in
// addition to writing it through to a fallback handler (normally stdout
// JSON), so the last N log lines survive without an external log collector.
type TailHandler struct {
	tail     *Tail
	fallback slog.Handler
	level    slog.Level
	attrs    []slog.Attr
}

// NewTailHandler builds a handler that mirrors records into tail and also
// writes JSON-formatted records to fallback at or above level.
func NewTailHandler(tail *Tail, fallback io.Writer, level slog.Level) *TailHandler {
	return &TailHandler{
		tail:     tail,
		fallback: slog.NewJSONHandler(fallback, &slog.HandlerOptions{Level: level}),
		level:    level,
	}
}

// Enabled implements slog.Handler.
func (h *TailHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler, recording r into the tail before passing
// it through to the fallback handler.
func (h *TailHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]interface{})
	var component string

	collect := func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
		} else {
			fields[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	h.tail.Push(Record{
		Time:      r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Component: component,
		Fields:    fields,
	})

	return h.fallback.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *TailHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TailHandler{
		tail:     h.tail,
		fallback: h.fallback.WithAttrs(attrs),
		level:    h.level,
		attrs:    append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *TailHandler) WithGroup(name string) slog.Handler {
	return &TailHandler{
		tail:     h.tail,
		fallback: h.fallback.WithGroup(name),
		level:    h.level,
		attrs:    h.attrs,
	}
}

// processTail is the per-process buffer written to by the default logger and
// read back by that process's GET /logs route. One binary, one tail: the
// archiver and event processor each get their own since they never share a
// process.
var processTail = NewTail(1000)

// GetLogBuffer returns the process-wide log tail.
func GetLogBuffer() *Tail {
	return processTail
}

// NewStreamHandler is the service-facing constructor: it wires fallback and
// level into a TailHandler over tail, as cmd/satori-archiver and
// cmd/satori-event-processor both do at startup.
func NewStreamHandler(tail *Tail, fallback io.Writer, level slog.Level) *TailHandler {
	return NewTailHandler(tail, fallback, level)
}

// JSONLine renders rec as a single JSON line, for callers forwarding a
// subscribed Record to a sink other than an http.ResponseWriter.
func (rec Record) JSONLine() string {
	data, _ := json.Marshal(rec)
	return string(data)
}
