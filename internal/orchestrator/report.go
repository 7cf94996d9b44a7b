package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/structgraph/internal/extract"
	"github.com/dusk-indust/structgraph/internal/graph"
)

// Report accumulates the outcome of one ingestion run. It is threaded
// through both passes and returned to the caller.
type Report struct {
	RunID string `json:"runId"`

	// Files is the number of recognized files (one File record each).
	Files int `json:"files"`
	// ByTier counts which tier produced each file's record.
	ByTier map[extract.Tier]int `json:"byTier"`
	// Unreadable counts files that could not be read.
	Unreadable int `json:"unreadable"`
	// ParseFailures counts failed attempts per tier.
	ParseFailures map[extract.Tier]int `json:"parseFailures"`
	// MissingGrammar counts files per language skipped by the grammar tier.
	MissingGrammar map[graph.Language]int `json:"missingGrammar"`
	// MissingFiles lists those files in walk order.
	MissingFiles []MissingFile `json:"missingFiles,omitempty"`

	UnresolvedImports int `json:"unresolvedImports"`
	// Collisions lists function names defined in more than one file.
	Collisions []string `json:"collisions,omitempty"`

	Writes        int `json:"writes"`
	WriteFailures int `json:"writeFailures"`

	// PerFile holds one line per file in walk order; filled on dry runs.
	PerFile []FileSummary `json:"perFile,omitempty"`
}

// FileSummary is the per-file line printed on a dry run.
type FileSummary struct {
	Path      string       `json:"path"`
	Tier      extract.Tier `json:"tier"`
	Functions int          `json:"functions"`
	Imports   int          `json:"imports"`
	Classes   int          `json:"classes"`
}

// MissingFile is a file the grammar tier skipped.
type MissingFile struct {
	Path     string         `json:"path"`
	Language graph.Language `json:"language"`
}

// NewReport returns an empty Report for runID.
func NewReport(runID string) *Report {
	return &Report{
		RunID:          runID,
		ByTier:         make(map[extract.Tier]int),
		ParseFailures:  make(map[extract.Tier]int),
		MissingGrammar: make(map[graph.Language]int),
	}
}

// addOutcome folds one file's extraction outcome into the report.
func (r *Report) addOutcome(lang graph.Language, out extract.Outcome) {
	r.Files++
	r.ByTier[out.Tier]++
	if out.Unreadable {
		r.Unreadable++
	} else {
		for _, f := range out.Failures {
			r.ParseFailures[f.Tier]++
		}
	}
	if out.MissingGrammar {
		r.MissingGrammar[lang]++
		if out.Record != nil {
			r.MissingFiles = append(r.MissingFiles, MissingFile{Path: out.Record.File.Path, Language: lang})
		}
	}
}

// ParseFailureTotal returns the number of failed extraction attempts.
func (r *Report) ParseFailureTotal() int {
	n := 0
	for _, c := range r.ParseFailures {
		n += c
	}
	return n
}

// FormatFailures renders the parse-failure and unreadable-file counts, or
// "" when there were none.
func (r *Report) FormatFailures() string {
	var b strings.Builder
	if total := r.ParseFailureTotal(); total > 0 {
		fmt.Fprintf(&b, "Parse failures: %d", total)
		sep := " ("
		for _, t := range extract.Tiers {
			if n := r.ParseFailures[t]; n > 0 {
				fmt.Fprintf(&b, "%s%s=%d", sep, t, n)
				sep = ", "
			}
		}
		if sep == ", " {
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	if r.Unreadable > 0 {
		fmt.Fprintf(&b, "Unreadable files: %d\n", r.Unreadable)
	}
	return b.String()
}

// MissingTotal returns the number of files the grammar tier skipped.
func (r *Report) MissingTotal() int {
	n := 0
	for _, c := range r.MissingGrammar {
		n += c
	}
	return n
}

// FormatMissing renders the missing-parser summary, or "" when no file
// was skipped.
func (r *Report) FormatMissing() string {
	total := r.MissingTotal()
	if total == 0 {
		return ""
	}
	langs := make([]string, 0, len(r.MissingGrammar))
	for l := range r.MissingGrammar {
		langs = append(langs, string(l))
	}
	sort.Strings(langs)

	var b strings.Builder
	fmt.Fprintf(&b, "Missing parser summary: %d files skipped.\n", total)
	for _, l := range langs {
		fmt.Fprintf(&b, "  - %s: %d files\n", l, r.MissingGrammar[graph.Language(l)])
	}
	return b.String()
}

// FormatMissingFiles renders one line per skipped file.
func (r *Report) FormatMissingFiles() string {
	var b strings.Builder
	for _, f := range r.MissingFiles {
		fmt.Fprintf(&b, "[missing] no %s parser loaded: %s\n", f.Language, f.Path)
	}
	return b.String()
}

// FormatDryRun renders one line per file.
func (r *Report) FormatDryRun() string {
	var b strings.Builder
	for _, f := range r.PerFile {
		fmt.Fprintf(&b, "[dry-run] Parsed %s: funcs %d, imports %d, classes %d\n",
			f.Path, f.Functions, f.Imports, f.Classes)
	}
	return b.String()
}

// FormatSummary renders the node/edge count line for a graph.
func FormatSummary(s *graph.GraphStats) string {
	return fmt.Sprintf("Summary: files=%d, functions=%d, classes=%d, IMPORTS=%d, CALLS=%d, USED_IN=%d, EXTENDS=%d",
		s.Nodes[graph.LabelFile],
		s.Nodes[graph.LabelFunction],
		s.Nodes[graph.LabelClass],
		s.Edges[graph.EdgeImports],
		s.Edges[graph.EdgeCalls],
		s.Edges[graph.EdgeUsedIn],
		s.Edges[graph.EdgeExtends],
	)
}
