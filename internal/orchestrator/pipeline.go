package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dusk-indust/structgraph/internal/extract"
	"github.com/dusk-indust/structgraph/internal/graph"
	"github.com/dusk-indust/structgraph/internal/resolve"
)

var _ Ingester = (*Pipeline)(nil)

// Pipeline runs a two-pass ingestion. Pass 1 walks the repository and
// extracts one record per recognized file in parallel; after a barrier the
// symbol table is built from every record. Pass 2 resolves imports and calls
// and upserts the graph sequentially in walk order.
type Pipeline struct {
	cfg      Config
	store    graph.Store
	router   *extract.Router
	grammars *extract.Grammars
	chain    *extract.Chain
	progress *ProgressReporter
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline writing to store. store may be nil when
// cfg.DryRun is set.
func NewPipeline(cfg Config, store graph.Store) *Pipeline {
	logger := cfg.logger()
	grammars := extract.LoadGrammars(cfg.DisabledGrammars)
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		router:   extract.NewRouter(cfg.Extensions),
		grammars: grammars,
		chain:    extract.NewChain(grammars, logger),
		progress: NewProgressReporter(),
		logger:   logger,
	}
}

// Progress returns a channel that emits per-file progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Run must not be called after.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Run executes the ingestion and returns its Report. Extraction and write
// failures are counted, never returned; the error is non-nil only for a
// store that cannot be reached at startup (wrapping graph.ErrUnavailable),
// an unwalkable root, or cancellation of ctx.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := NewReport(uuid.NewString())
	log := p.logger.With("run_id", report.RunID)
	emit := func(ev ProgressEvent) {
		ev.RunID = report.RunID
		p.progress.Emit(ev)
	}

	var store graph.Store
	if !p.cfg.DryRun {
		if p.store == nil {
			return nil, fmt.Errorf("pipeline: %w: no store configured", graph.ErrUnavailable)
		}
		store = p.store
	}

	caps, err := NewDefaultDetector(store, p.grammars, p.router, log).Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: preflight: %w", err)
	}
	log.Info("run.start", "repo", p.cfg.RepoRoot, "level", caps.Level, "dry_run", p.cfg.DryRun, "workers", p.cfg.workers())

	if store != nil {
		if err := store.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("pipeline: init schema: %w: %w", graph.ErrUnavailable, err)
		}
	}

	// Pass 1.
	files, err := Scan(ctx, p.cfg.RepoRoot, p.router, ScanOptions{
		ExcludeDirs:      p.cfg.ExcludeDirs,
		RespectGitignore: p.cfg.RespectGitignore,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: scan %s: %w", p.cfg.RepoRoot, err)
	}
	for _, f := range files {
		emit(ProgressEvent{Pass: PassExtract, Path: f.Path, Status: ProgressPending})
	}

	outcomes, err := NewFanOut(p.chain, p.cfg.RepoRoot, p.cfg.workers(), emit).Run(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}

	records := make([]*graph.Record, len(outcomes))
	for i, out := range outcomes {
		report.addOutcome(files[i].Language, out)
		records[i] = out.Record
	}
	log.Info("pass1.done",
		"files", report.Files,
		"unreadable", report.Unreadable,
		"parse_failures", report.ParseFailureTotal(),
		"missing_grammar", report.MissingTotal(),
	)

	table := resolve.BuildSymbolTable(records)
	report.Collisions = table.Collisions()
	for _, name := range report.Collisions {
		log.Debug("resolve.collision", "name", name, "files", table.Definitions(name))
	}

	if p.cfg.DryRun {
		for i, rec := range records {
			report.PerFile = append(report.PerFile, FileSummary{
				Path:      rec.File.Path,
				Tier:      outcomes[i].Tier,
				Functions: len(rec.Functions),
				Imports:   len(rec.Imports),
				Classes:   len(rec.Classes),
			})
		}
		return report, nil
	}

	// Pass 2.
	known := make([]string, len(files))
	for i, f := range files {
		known[i] = f.Path
	}
	imports := resolve.NewImportResolver(p.cfg.RepoRoot, known, p.cfg.ImportExtensions)
	w := NewWriter(store, p.cfg.Retry, report, log)

	for i, rec := range records {
		if err := p.writeRecord(ctx, w, imports, table, report, rec, files[i].Language, emit); err != nil {
			return report, fmt.Errorf("pipeline: write %s: %w", rec.File.Path, err)
		}
	}
	log.Info("pass2.done",
		"writes", report.Writes,
		"write_failures", report.WriteFailures,
		"unresolved_imports", report.UnresolvedImports,
	)
	return report, nil
}

// writeRecord upserts one file's record. Write failures are skipped; only
// cancellation is returned.
func (p *Pipeline) writeRecord(ctx context.Context, w *Writer, imports *resolve.ImportResolver, table *resolve.SymbolTable, report *Report, rec *graph.Record, lang graph.Language, emit func(ProgressEvent)) error {
	var failures []error
	keep := func(err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrWriteFailed) {
			failures = append(failures, err)
			return nil
		}
		return err
	}

	if err := keep(w.WriteFile(ctx, rec.File)); err != nil {
		return err
	}
	for _, c := range rec.Classes {
		if err := keep(w.WriteClass(ctx, c)); err != nil {
			return err
		}
	}
	for _, fn := range rec.Functions {
		if err := keep(w.WriteFunction(ctx, fn)); err != nil {
			return err
		}
	}
	for _, ep := range rec.Endpoints {
		if err := keep(w.WriteEndpoint(ctx, ep)); err != nil {
			return err
		}
	}

	for _, raw := range rec.Imports {
		targets, unresolved := imports.Resolve(raw, rec.File.Path, lang)
		report.UnresolvedImports += unresolved
		for _, to := range targets {
			if err := keep(w.WriteImport(ctx, graph.ImportEdge{From: rec.File.Path, To: to})); err != nil {
				return err
			}
		}
	}

	calls := resolve.ResolveCalls(rec.CallSites, table)
	for _, e := range calls.Calls {
		if err := keep(w.WriteCall(ctx, e)); err != nil {
			return err
		}
	}
	for _, e := range calls.UsedIn {
		if err := keep(w.WriteUsedIn(ctx, e)); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		emit(ProgressEvent{Pass: PassWrite, Path: rec.File.Path, Status: ProgressFailed, Message: errors.Join(failures...).Error()})
	} else {
		emit(ProgressEvent{Pass: PassWrite, Path: rec.File.Path, Status: ProgressComplete})
	}
	return nil
}
