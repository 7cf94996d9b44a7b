package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.py":      "def helper():\n    return 1\n",
		"b.py":      "from a import helper\n\ndef main():\n    helper()\n",
		"lib/x.rs":  "fn build() {}\n",
		"README.md": "# readme\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestRun_DryRun(t *testing.T) {
	repo := writeRepo(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--config-dir", t.TempDir(), "--repo", repo, "--dry-run"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t,
		"[dry-run] Parsed a.py: funcs 1, imports 0, classes 0\n"+
			"[dry-run] Parsed b.py: funcs 1, imports 1, classes 0\n"+
			"[dry-run] Parsed lib/x.rs: funcs 1, imports 0, classes 0\n",
		stdout.String())
	assert.Contains(t, stderr.String(), "pass1.done")
	assert.Contains(t, stderr.String(), "run_id=")
}

func TestRun_DryRunLogMissing(t *testing.T) {
	repo := writeRepo(t)
	cfgDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "structgraph.yml"), []byte("disabledGrammars: [rust]\n"), 0o644))
	var stdout, stderr bytes.Buffer

	err := run([]string{"--config-dir", cfgDir, "--repo", repo, "--dry-run", "--log-missing"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "[missing] no rust parser loaded: lib/x.rs\n")
	assert.Contains(t, stdout.String(), "Missing parser summary: 1 files skipped.\n  - rust: 1 files\n")
}

func TestRun_DryRunParseFailures(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "ok.py"), []byte("def fine():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "bad.py"), []byte("def broken(:\n    pass\n"), 0o644))
	var stdout, stderr bytes.Buffer

	err := run([]string{"--config-dir", t.TempDir(), "--repo", repo, "--dry-run"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "[dry-run] Parsed ok.py: funcs 1")
	assert.Contains(t, stdout.String(), "Parse failures: 1 (native=1)\n")
	assert.Contains(t, stderr.String(), "extract.fallback")
	assert.Contains(t, stderr.String(), "parse_failures=1")
}

func TestRun_DryRunVerboseProgress(t *testing.T) {
	repo := writeRepo(t)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--config-dir", t.TempDir(), "--repo", repo, "--dry-run", "--verbose"}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "] Pass 1: extract\n")
	assert.Contains(t, out, "  ○ a.py (pending)\n")
	assert.Contains(t, out, "  ✓ b.py (native)\n")
	assert.NotContains(t, out, "Pass 2")
}

func TestRun_MissingRepo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--config-dir", t.TempDir(), "--repo", filepath.Join(t.TempDir(), "nope"), "--dry-run"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_RejectsArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--config-dir", t.TempDir(), "extra"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_StatsWithoutGraph(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"stats", "--config-dir", t.TempDir(), "--graph", filepath.Join(t.TempDir(), "none.kuzu")}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no graph at")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), version)
}
