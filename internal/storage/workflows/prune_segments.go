package workflows

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
)

const pruneWorkerCount = 8

// UnreferencedSegments is the two-phase prune-segments report: every
// recorded segment, per camera, that no stored event references. It is
// persisted to a TOML file between the calculate and delete phases so an
// operator can inspect (and, if needed, edit) the plan before committing
// to the deletes.
type UnreferencedSegments struct {
	ByCamera map[string][]string `toml:"cameras"`
}

// Save writes the report as TOML to path.
func (u UnreferencedSegments) Save(path string) error {
	data, err := toml.Marshal(u)
	if err != nil {
		return fmt.Errorf("workflows: marshalling unreferenced-segments report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadUnreferencedSegments reads a report previously written by Save.
func LoadUnreferencedSegments(path string) (UnreferencedSegments, error) {
	var u UnreferencedSegments
	data, err := os.ReadFile(path)
	if err != nil {
		return u, fmt.Errorf("workflows: reading unreferenced-segments report: %w", err)
	}
	if err := toml.Unmarshal(data, &u); err != nil {
		return u, fmt.Errorf("workflows: parsing unreferenced-segments report: %w", err)
	}
	return u, nil
}

// CalculateUnreferencedSegments computes, per camera, the segments present
// in the store but not referenced by any event's segment_list. Referenced
// segments are gathered by fanning the event list out across a small
// worker pool; each worker reads events and a single collector unions
// their segment lists into one set.
func CalculateUnreferencedSegments(ctx context.Context, p *storage.Provider) (UnreferencedSegments, error) {
	var report UnreferencedSegments

	eventFiles, err := p.ListEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("workflows: listing events: %w", err)
	}

	referenced, err := collectReferencedSegments(ctx, p, eventFiles)
	if err != nil {
		return report, err
	}

	cameras, err := p.ListCameras(ctx)
	if err != nil {
		return report, fmt.Errorf("workflows: listing cameras: %w", err)
	}

	report.ByCamera = make(map[string][]string)
	for _, camera := range cameras {
		have, err := p.ListSegments(ctx, camera)
		if err != nil {
			return report, fmt.Errorf("workflows: listing segments for %s: %w", camera, err)
		}

		want := referenced[camera]
		var unreferenced []string
		for _, filename := range have {
			if !want[filename] {
				unreferenced = append(unreferenced, filename)
			}
		}
		sort.Strings(unreferenced)
		if len(unreferenced) > 0 {
			report.ByCamera[camera] = unreferenced
		}
	}

	return report, nil
}

func collectReferencedSegments(ctx context.Context, p *storage.Provider, eventFiles []string) (map[string]map[string]bool, error) {
	type result struct {
		event common.Event
		err   error
	}

	jobs := make(chan string, len(eventFiles))
	results := make(chan result, len(eventFiles))

	var wg sync.WaitGroup
	for i := 0; i < pruneWorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filename := range jobs {
				ev, err := p.GetEvent(ctx, filename)
				results <- result{event: ev, err: err}
			}
		}()
	}

	for _, f := range eventFiles {
		jobs <- f
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	referenced := make(map[string]map[string]bool)
	var mu sync.Mutex
	for r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("workflows: reading event while scanning references: %w", r.err)
		}

		mu.Lock()
		for _, cs := range r.event.Cameras {
			set, ok := referenced[cs.CameraName]
			if !ok {
				set = make(map[string]bool)
				referenced[cs.CameraName] = set
			}
			for _, filename := range cs.SegmentList {
				set[filename] = true
			}
		}
		mu.Unlock()
	}

	return referenced, nil
}

// DeleteUnreferencedSegments deletes every segment named in report, fanning
// deletes out across a small worker pool. Per-camera failures are
// aggregated rather than aborting the rest of the sweep; if any delete
// failed the returned error wraps common.ErrWorkflowPartial.
func DeleteUnreferencedSegments(ctx context.Context, p *storage.Provider, report UnreferencedSegments) error {
	type job struct {
		camera   string
		filename string
	}

	var jobList []job
	for camera, filenames := range report.ByCamera {
		for _, filename := range filenames {
			jobList = append(jobList, job{camera: camera, filename: filename})
		}
	}

	jobs := make(chan job, len(jobList))
	errs := make(chan error, len(jobList))

	var wg sync.WaitGroup
	for i := 0; i < pruneWorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := p.DeleteSegment(ctx, j.camera, j.filename); err != nil {
					errs <- fmt.Errorf("%s/%s: %w", j.camera, j.filename, err)
				}
			}
		}()
	}

	for _, j := range jobList {
		jobs <- j
	}
	close(jobs)

	wg.Wait()
	close(errs)

	var failed int
	for err := range errs {
		_ = err
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d segment(s) failed to delete", common.ErrWorkflowPartial, failed)
	}
	return nil
}
