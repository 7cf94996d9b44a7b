package orchestrator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/structgraph/internal/extract"
	"github.com/dusk-indust/structgraph/internal/graph"
)

// ScannedFile is a recognized file found by the walk.
type ScannedFile struct {
	Path     string // repo-relative, "/"-separated
	Language graph.Language
}

// ScanOptions controls which paths the walk visits.
type ScanOptions struct {
	ExcludeDirs      []string
	RespectGitignore bool
}

// Scan walks root in lexical order and returns every file the router
// recognizes. Excluded directory names, .git, and (optionally) paths
// matched by the root .gitignore are skipped. Unrecognized files are not
// returned at all.
func Scan(ctx context.Context, root string, router *extract.Router, opts ScanOptions) ([]ScannedFile, error) {
	excluded := make(map[string]bool, len(opts.ExcludeDirs)+1)
	excluded[".git"] = true
	for _, d := range opts.ExcludeDirs {
		excluded[d] = true
	}

	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gi = loadGitignore(root)
	}

	var files []ScannedFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped; the root itself is fatal.
			if p == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excluded[d.Name()] || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		lang, ok := router.Route(rel)
		if !ok {
			return nil
		}
		files = append(files, ScannedFile{Path: rel, Language: lang})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// loadGitignore compiles root/.gitignore, or returns nil when there is none.
func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
