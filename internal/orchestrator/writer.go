package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/structgraph/internal/graph"
	"github.com/dusk-indust/structgraph/internal/resolve"
)

// ErrWriteFailed is returned when a graph write still fails after the last
// retry. The write is counted in Report.WriteFailures and skipped.
var ErrWriteFailed = errors.New("graph write failed")

// Writer upserts canonical records into a graph.Store, retrying each write
// with exponential backoff. It is not safe for concurrent use; pass 2 drives
// it from a single goroutine.
type Writer struct {
	store  graph.Store
	retry  RetryPolicy
	report *Report
	logger *slog.Logger
}

// NewWriter creates a Writer that tallies writes into report.
func NewWriter(store graph.Store, retry RetryPolicy, report *Report, logger *slog.Logger) *Writer {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, retry: retry, report: report, logger: logger}
}

// WriteFile upserts a File node.
func (w *Writer) WriteFile(ctx context.Context, f graph.FileNode) error {
	n := graph.FileRef(f)
	return w.do(ctx, n.String(), func(ctx context.Context) error {
		return w.store.UpsertNode(ctx, n)
	})
}

// WriteClass upserts a Class node, its DEFINED_IN edge, and one EXTENDS edge
// per named base.
func (w *Writer) WriteClass(ctx context.Context, c graph.ClassNode) error {
	n := graph.ClassRef(c)
	errs := []error{
		w.do(ctx, n.String(), func(ctx context.Context) error { return w.store.UpsertNode(ctx, n) }),
		w.edge(ctx, graph.Edge{Type: graph.EdgeDefinedIn, From: n, To: graph.FilePathRef(c.File)}),
	}
	for _, e := range resolve.ExtendsEdges(c) {
		errs = append(errs, w.WriteExtends(ctx, e))
	}
	return w.join(ctx, errs)
}

// WriteFunction upserts a Function node and its DEFINED_IN edge.
func (w *Writer) WriteFunction(ctx context.Context, fn graph.FunctionNode) error {
	n := graph.FunctionRef(fn)
	return w.join(ctx, []error{
		w.do(ctx, n.String(), func(ctx context.Context) error { return w.store.UpsertNode(ctx, n) }),
		w.edge(ctx, graph.Edge{Type: graph.EdgeDefinedIn, From: n, To: graph.FilePathRef(fn.File)}),
	})
}

// WriteEndpoint upserts an Endpoint node and its HANDLED_BY edge to the
// handler function of the same name in the same file.
func (w *Writer) WriteEndpoint(ctx context.Context, ep graph.EndpointNode) error {
	n := graph.EndpointRef(ep)
	handler := graph.FunctionRef(graph.FunctionNode{Name: ep.Name, File: ep.File})
	return w.join(ctx, []error{
		w.do(ctx, n.String(), func(ctx context.Context) error { return w.store.UpsertNode(ctx, n) }),
		w.edge(ctx, graph.Edge{Type: graph.EdgeHandledBy, From: n, To: handler}),
	})
}

// WriteImport upserts an IMPORTS edge between two files.
func (w *Writer) WriteImport(ctx context.Context, e graph.ImportEdge) error {
	return w.edge(ctx, graph.Edge{Type: graph.EdgeImports, From: graph.FilePathRef(e.From), To: graph.FilePathRef(e.To)})
}

// WriteCall upserts a CALLS edge.
func (w *Writer) WriteCall(ctx context.Context, e graph.CallEdge) error {
	return w.edge(ctx, graph.Edge{Type: graph.EdgeCalls, From: graph.FunctionRef(e.Caller), To: graph.FunctionRef(e.Callee)})
}

// WriteUsedIn upserts a USED_IN edge.
func (w *Writer) WriteUsedIn(ctx context.Context, e graph.UsedInEdge) error {
	return w.edge(ctx, graph.Edge{Type: graph.EdgeUsedIn, From: graph.FunctionRef(e.Function), To: graph.FilePathRef(e.File)})
}

// WriteExtends upserts an EXTENDS edge.
func (w *Writer) WriteExtends(ctx context.Context, e graph.ExtendsEdge) error {
	return w.edge(ctx, graph.Edge{Type: graph.EdgeExtends, From: graph.ClassRef(e.Child), To: graph.ClassRef(e.Parent)})
}

func (w *Writer) edge(ctx context.Context, e graph.Edge) error {
	return w.do(ctx, e.String(), func(ctx context.Context) error {
		return w.store.UpsertEdge(ctx, e)
	})
}

// join combines the results of a composite write. Cancellation wins over
// individual write failures.
func (w *Writer) join(ctx context.Context, errs []error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// do runs op up to MaxAttempts times, doubling the delay between attempts.
// Invalid writes are not retried.
func (w *Writer) do(ctx context.Context, what string, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delay := w.retry.BaseDelay
	var err error
	for attempt := 1; attempt <= w.retry.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			w.report.Writes++
			return nil
		}
		if errors.Is(err, graph.ErrInvalidEdge) || errors.Is(err, graph.ErrUnknownLabel) {
			break
		}
		if attempt == w.retry.MaxAttempts {
			break
		}
		w.logger.Warn("write.retry", "run_id", w.report.RunID, "target", what, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	w.report.WriteFailures++
	w.logger.Error("write.failed", "run_id", w.report.RunID, "target", what, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, what, err)
}
