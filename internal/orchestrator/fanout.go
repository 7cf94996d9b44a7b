package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/structgraph/internal/extract"
)

// FanOut runs the extraction chain over scanned files in a bounded worker
// pool. Results are stored by walk index so their order does not depend on
// scheduling.
type FanOut struct {
	chain      *extract.Chain
	root       string
	workers    int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut reading files under root.
// onProgress is called from worker goroutines; it may be nil.
func NewFanOut(chain *extract.Chain, root string, workers int, onProgress func(ProgressEvent)) *FanOut {
	if workers < 1 {
		workers = 1
	}
	return &FanOut{
		chain:      chain,
		root:       root,
		workers:    workers,
		onProgress: onProgress,
	}
}

// Run extracts every file and returns one Outcome per file, index-aligned
// with files. A failing file never aborts the others; only cancellation of
// ctx ends the run early, and Run then returns ctx.Err().
func (f *FanOut) Run(ctx context.Context, files []ScannedFile) ([]extract.Outcome, error) {
	results := make([]extract.Outcome, len(files))
	g := new(errgroup.Group)
	g.SetLimit(f.workers)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			f.emit(ProgressEvent{Pass: PassExtract, Path: file.Path, Status: ProgressWorking})

			out := f.chain.ExtractFile(ctx, f.root, file.Path, file.Language)
			results[i] = out

			if out.Tier == extract.TierDegenerate {
				msg := "no tier succeeded"
				if len(out.Failures) > 0 {
					msg = out.Failures[len(out.Failures)-1].Error()
				}
				f.emit(ProgressEvent{Pass: PassExtract, Path: file.Path, Status: ProgressFailed, Message: msg})
				return nil
			}
			f.emit(ProgressEvent{Pass: PassExtract, Path: file.Path, Status: ProgressComplete, Message: out.Tier.String()})
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
