package orchestrator

import "context"

// Pass identifies one of the two ingestion passes.
type Pass int

const (
	// PassExtract walks the tree and extracts one record per file.
	PassExtract Pass = 1
	// PassWrite resolves references and upserts the graph.
	PassWrite Pass = 2
)

func (p Pass) String() string {
	switch p {
	case PassExtract:
		return "extract"
	case PassWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ProgressEvent is emitted per file during a run.
type ProgressEvent struct {
	RunID   string
	Pass    Pass
	Path    string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a file within a pass.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Ingester runs a structural ingestion over a repository.
type Ingester interface {
	// Run executes both passes (or pass 1 only on a dry run).
	Run(ctx context.Context) (*Report, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
