package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/structgraph/internal/extract"
	"github.com/dusk-indust/structgraph/internal/graph"
)

func TestReport_AddOutcome(t *testing.T) {
	r := NewReport("r1")
	failure := &extract.ExtractError{Path: "x.rs", Tier: extract.TierHeuristic, Err: errors.New("bad")}

	r.addOutcome(graph.LangRust, extract.Outcome{
		Record:         graph.Degenerate(graph.NewFileNode("src/lib.rs", graph.LangRust)),
		Tier:           extract.TierHeuristic,
		MissingGrammar: true,
	})
	r.addOutcome(graph.LangRust, extract.Outcome{Tier: extract.TierDegenerate, MissingGrammar: true, Failures: []*extract.ExtractError{failure}})
	r.addOutcome(graph.LangGo, extract.Outcome{Tier: extract.TierDegenerate, Unreadable: true, Failures: []*extract.ExtractError{failure}})
	r.addOutcome(graph.LangTypeScript, extract.Outcome{Tier: extract.TierDegenerate, MissingGrammar: true})

	assert.Equal(t, 4, r.Files)
	assert.Equal(t, 1, r.Unreadable)
	assert.Equal(t, 1, r.ParseFailures[extract.TierHeuristic])
	assert.Equal(t, 3, r.ByTier[extract.TierDegenerate])
	assert.Equal(t, 3, r.MissingTotal())
	assert.Equal(t,
		"Missing parser summary: 3 files skipped.\n  - rust: 2 files\n  - typescript: 1 files\n",
		r.FormatMissing())
	assert.Equal(t, "[missing] no rust parser loaded: src/lib.rs\n", r.FormatMissingFiles())
}

func TestReport_FormatFailures(t *testing.T) {
	r := NewReport("r1")
	assert.Empty(t, r.FormatFailures())

	r.ParseFailures[extract.TierNative] = 2
	r.ParseFailures[extract.TierHeuristic] = 1
	r.Unreadable = 1

	assert.Equal(t, 3, r.ParseFailureTotal())
	assert.Equal(t, "Parse failures: 3 (native=2, heuristic=1)\nUnreadable files: 1\n", r.FormatFailures())
}

func TestReport_FormatMissing_Empty(t *testing.T) {
	assert.Empty(t, NewReport("r").FormatMissing())
}

func TestFormatSummary(t *testing.T) {
	stats := &graph.GraphStats{
		Nodes: map[graph.Label]int{graph.LabelFile: 7, graph.LabelFunction: 12, graph.LabelClass: 2},
		Edges: map[graph.EdgeType]int{graph.EdgeImports: 2, graph.EdgeCalls: 5, graph.EdgeUsedIn: 9, graph.EdgeExtends: 1},
	}
	assert.Equal(t,
		"Summary: files=7, functions=12, classes=2, IMPORTS=2, CALLS=5, USED_IN=9, EXTENDS=1",
		FormatSummary(stats))
}
