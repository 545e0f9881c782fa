package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
)

// PruneEventsReport summarizes one PruneEventsOlderThan run.
type PruneEventsReport struct {
	Deleted []string
	Skipped []string // filenames that failed to fetch or delete
}

// PruneEventsOlderThan deletes every archived event whose span ended more
// than ttl before now. A single event that fails to fetch or delete does
// not abort the sweep — it is recorded in Skipped and the run still
// returns common.ErrWorkflowPartial wrapped with a count, so the caller
// knows to investigate without losing the rest of the work.
func PruneEventsOlderThan(ctx context.Context, p *storage.Provider, ttl time.Duration, now time.Time) (PruneEventsReport, error) {
	var report PruneEventsReport

	filenames, err := p.ListEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("workflows: listing events: %w", err)
	}

	for _, filename := range filenames {
		ev, err := p.GetEvent(ctx, filename)
		if err != nil {
			report.Skipped = append(report.Skipped, filename)
			continue
		}

		if !ev.ShouldExpire(ttl, now) {
			continue
		}

		if err := p.DeleteEvent(ctx, filename); err != nil {
			report.Skipped = append(report.Skipped, filename)
			continue
		}
		report.Deleted = append(report.Deleted, filename)
	}

	if len(report.Skipped) > 0 {
		return report, fmt.Errorf("%w: %d event(s) skipped", common.ErrWorkflowPartial, len(report.Skipped))
	}
	return report, nil
}
