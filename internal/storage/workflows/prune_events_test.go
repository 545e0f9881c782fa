package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

func putEventEndingAt(t *testing.T, ctx context.Context, p interface {
	PutEvent(context.Context, common.Event) error
}, id string, end time.Time) common.Event {
	t.Helper()
	ev := common.Event{
		Metadata: common.EventMetadata{ID: id, Timestamp: end},
		Start:    end.Add(-time.Minute),
		End:      end,
	}
	if err := p.PutEvent(ctx, ev); err != nil {
		t.Fatalf("PutEvent() error: %v", err)
	}
	return ev
}

func TestPruneEventsOlderThanDeletesExpiredOnly(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	now := time.Now()
	old := putEventEndingAt(t, ctx, p, "old", now.Add(-2*time.Hour))
	recent := putEventEndingAt(t, ctx, p, "recent", now.Add(-5*time.Minute))

	report, err := PruneEventsOlderThan(ctx, p, time.Hour, now)
	if err != nil {
		t.Fatalf("PruneEventsOlderThan() error: %v", err)
	}

	if len(report.Deleted) != 1 || report.Deleted[0] != old.Metadata.Filename() {
		t.Errorf("Deleted = %v, want [%s]", report.Deleted, old.Metadata.Filename())
	}
	if len(report.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", report.Skipped)
	}

	if _, err := p.GetEvent(ctx, old.Metadata.Filename()); err == nil {
		t.Error("expected old event to have been deleted")
	}
	if _, err := p.GetEvent(ctx, recent.Metadata.Filename()); err != nil {
		t.Errorf("expected recent event to survive, got error: %v", err)
	}
}

func TestPruneEventsOlderThanNoneExpired(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	now := time.Now()
	putEventEndingAt(t, ctx, p, "recent", now.Add(-5*time.Minute))

	report, err := PruneEventsOlderThan(ctx, p, time.Hour, now)
	if err != nil {
		t.Fatalf("PruneEventsOlderThan() error: %v", err)
	}
	if len(report.Deleted) != 0 {
		t.Errorf("Deleted = %v, want none", report.Deleted)
	}
}

func TestPruneEventsOlderThanReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	eventKey, err := encryption.Generate()
	if err != nil {
		t.Fatalf("encryption.Generate() error: %v", err)
	}
	segmentKey, err := encryption.Generate()
	if err != nil {
		t.Fatalf("encryption.Generate() error: %v", err)
	}
	p := storage.NewProvider(backend, eventKey, segmentKey)

	now := time.Now()
	good := putEventEndingAt(t, ctx, p, "good", now.Add(-2*time.Hour))

	// A second, undecryptable event: encrypted under a different event key
	// but stored in the same backend, so it lists but fails to fetch.
	otherEventKey, err := encryption.Generate()
	if err != nil {
		t.Fatalf("encryption.Generate() error: %v", err)
	}
	bad := putEventEndingAt(t, ctx, storage.NewProvider(backend, otherEventKey, segmentKey), "bad", now.Add(-3*time.Hour))

	report, err := PruneEventsOlderThan(ctx, p, time.Hour, now)
	if !errors.Is(err, common.ErrWorkflowPartial) {
		t.Fatalf("PruneEventsOlderThan() error = %v, want ErrWorkflowPartial", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != bad.Metadata.Filename() {
		t.Errorf("Skipped = %v, want [%s]", report.Skipped, bad.Metadata.Filename())
	}
	if len(report.Deleted) != 1 || report.Deleted[0] != good.Metadata.Filename() {
		t.Errorf("Deleted = %v, want [%s]", report.Deleted, good.Metadata.Filename())
	}
}
