package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvRepoRoot  = "REPO_ROOT"
	EnvGraphPath = "GRAPH_PATH"
	EnvWorkers   = "STRUCTGRAPH_WORKERS"
)

// DefaultExcludeDirs are never walked.
var DefaultExcludeDirs = []string{".git", "node_modules", "dist", "build", "__pycache__", ".venv", "vendor"}

// WriteConfig controls graph write retries.
type WriteConfig struct {
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	BaseDelay   time.Duration `yaml:"baseDelay,omitempty"`
}

// ProjectConfig holds project-level settings loaded from structgraph.yml.
type ProjectConfig struct {
	RepoRoot         string            `yaml:"repoRoot,omitempty"`
	GraphPath        string            `yaml:"graphPath,omitempty"`
	Workers          int               `yaml:"workers,omitempty"`
	ExcludeDirs      []string          `yaml:"excludeDirs,omitempty"`
	Extensions       map[string]string `yaml:"extensions,omitempty"`
	DisabledGrammars []string          `yaml:"disabledGrammars,omitempty"`
	ImportExtensions []string          `yaml:"importExtensions,omitempty"`
	RespectGitignore *bool             `yaml:"respectGitignore,omitempty"`
	Write            WriteConfig       `yaml:"write,omitempty"`
}

// Defaults returns the configuration used when no file sets a value.
func Defaults() *ProjectConfig {
	gitignore := true
	return &ProjectConfig{
		RepoRoot:         "repo",
		GraphPath:        ".structgraph/graph.kuzu",
		Workers:          4,
		RespectGitignore: &gitignore,
		Write:            WriteConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond},
	}
}

// Load reads structgraph.yml or structgraph.yaml from dir over the defaults,
// then applies .env and environment overrides. A missing file is not an
// error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := Defaults()
	for _, name := range []string{"structgraph.yml", "structgraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *ProjectConfig) applyEnv() error {
	if v := os.Getenv(EnvRepoRoot); v != "" {
		c.RepoRoot = v
	}
	if v := os.Getenv(EnvGraphPath); v != "" {
		c.GraphPath = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	return nil
}

func (c *ProjectConfig) normalize() {
	d := Defaults()
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.Write.MaxAttempts < 1 {
		c.Write.MaxAttempts = d.Write.MaxAttempts
	}
	if c.Write.BaseDelay <= 0 {
		c.Write.BaseDelay = d.Write.BaseDelay
	}
	if c.RespectGitignore == nil {
		c.RespectGitignore = d.RespectGitignore
	}
}

// AllExcludeDirs returns DefaultExcludeDirs plus the configured ones.
func (c *ProjectConfig) AllExcludeDirs() []string {
	out := append([]string{}, DefaultExcludeDirs...)
	return append(out, c.ExcludeDirs...)
}

// Gitignore reports whether the root .gitignore filters the walk.
func (c *ProjectConfig) Gitignore() bool {
	return c.RespectGitignore == nil || *c.RespectGitignore
}
