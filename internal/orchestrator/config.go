package orchestrator

import (
	"log/slog"
	"time"

	"github.com/dusk-indust/structgraph/internal/config"
)

// RetryPolicy bounds how often a graph write is attempted.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles each time.
	BaseDelay time.Duration
}

// Config holds runtime configuration for an ingestion run.
type Config struct {
	// RepoRoot is the directory walked by pass 1.
	RepoRoot string

	// Workers bounds pass-1 concurrency.
	Workers int

	// ExcludeDirs are directory names never descended into.
	ExcludeDirs []string

	// RespectGitignore filters the walk through RepoRoot/.gitignore.
	RespectGitignore bool

	// DryRun stops after pass 1 and never touches the store.
	DryRun bool

	// DisabledGrammars names languages whose grammar is not loaded.
	DisabledGrammars []string

	// Extensions adds or removes extension routes (".ext" -> language).
	Extensions map[string]string

	// ImportExtensions replaces the suffixes probed during import resolution.
	ImportExtensions []string

	Retry RetryPolicy

	// Logger receives structured run events. Nil means slog.Default().
	Logger *slog.Logger
}

// ConfigFrom maps project settings onto a run Config.
func ConfigFrom(pc *config.ProjectConfig) Config {
	return Config{
		RepoRoot:         pc.RepoRoot,
		Workers:          pc.Workers,
		ExcludeDirs:      pc.AllExcludeDirs(),
		RespectGitignore: pc.Gitignore(),
		DisabledGrammars: pc.DisabledGrammars,
		Extensions:       pc.Extensions,
		ImportExtensions: pc.ImportExtensions,
		Retry: RetryPolicy{
			MaxAttempts: pc.Write.MaxAttempts,
			BaseDelay:   pc.Write.BaseDelay,
		},
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}
