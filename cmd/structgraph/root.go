package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/structgraph/internal/config"
	"github.com/dusk-indust/structgraph/internal/graph"
	"github.com/dusk-indust/structgraph/internal/orchestrator"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir  string
	Repo       string
	GraphPath  string
	Workers    int
	DryRun     bool
	LogMissing bool
	Verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags cliFlags

	root := &cobra.Command{
		Use:   "structgraph",
		Short: "Extract the structure of a source tree into a graph",
		Long: `structgraph walks a repository, extracts files, functions, classes,
imports, calls, and HTTP endpoints from Python, JavaScript, TypeScript, Go,
and Rust sources, and upserts them into an embedded Kuzu graph.

Examples:
  structgraph --repo ./service          # ingest ./service
  structgraph --dry-run                 # parse only, print per-file counts
  structgraph stats                     # print node and edge counts`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), pc, flags, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding structgraph.yml and .env")
	pf.StringVar(&flags.GraphPath, "graph", "", "path to the graph database (overrides config)")
	pf.BoolVar(&flags.Verbose, "verbose", false, "enable debug logging")

	f := root.Flags()
	f.StringVar(&flags.Repo, "repo", "", "path to the repository root (overrides config)")
	f.IntVar(&flags.Workers, "workers", 0, "number of parallel extraction workers (overrides config)")
	f.BoolVar(&flags.DryRun, "dry-run", false, "parse only; print per-file counts and write nothing")
	f.BoolVar(&flags.LogMissing, "log-missing", false, "print one line per file skipped for a missing parser")

	root.AddCommand(newStatsCmd(&flags, stdout))
	return root
}

// loadConfig reads the project config and applies explicitly set flags.
func loadConfig(cmd *cobra.Command, flags *cliFlags) (*config.ProjectConfig, error) {
	pc, err := config.Load(flags.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("repo") {
		pc.RepoRoot = flags.Repo
	}
	if cmd.Flags().Changed("graph") {
		pc.GraphPath = flags.GraphPath
	}
	if cmd.Flags().Changed("workers") && flags.Workers > 0 {
		pc.Workers = flags.Workers
	}
	return pc, nil
}

func runIngest(ctx context.Context, pc *config.ProjectConfig, flags cliFlags, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, flags.Verbose)

	cfg := orchestrator.ConfigFrom(pc)
	cfg.DryRun = flags.DryRun
	cfg.Logger = logger

	if cfg.DryRun {
		report, err := ingest(ctx, cfg, nil, flags.Verbose, stdout)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, report.FormatDryRun())
		printMissing(stdout, report, flags.LogMissing)
		fmt.Fprint(stdout, report.FormatFailures())
		return nil
	}

	store, err := openStore(pc.GraphPath)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := ingest(ctx, cfg, store, flags.Verbose, stdout)
	if err != nil {
		return err
	}

	printMissing(stdout, report, flags.LogMissing)
	fmt.Fprint(stdout, report.FormatFailures())
	if report.WriteFailures > 0 {
		fmt.Fprintf(stdout, "%d writes failed after retries.\n", report.WriteFailures)
	}
	fmt.Fprintln(stdout, "Ingestion complete.")

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	fmt.Fprintln(stdout, orchestrator.FormatSummary(stats))
	return nil
}

// ingest runs one pipeline. With progress set, per-file progress lines are
// written to w while it runs.
func ingest(ctx context.Context, cfg orchestrator.Config, store graph.Store, progress bool, w io.Writer) (*orchestrator.Report, error) {
	p := orchestrator.NewPipeline(cfg, store)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if progress {
			orchestrator.PrintProgress(w, p.Progress())
			return
		}
		for range p.Progress() {
		}
	}()

	report, err := p.Run(ctx)
	p.Close()
	<-done
	return report, err
}

func printMissing(w io.Writer, report *orchestrator.Report, perFile bool) {
	if perFile {
		fmt.Fprint(w, report.FormatMissingFiles())
	}
	fmt.Fprint(w, report.FormatMissing())
}
