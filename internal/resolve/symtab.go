// Package resolve turns per-file extraction records into cross-file edges.
//
// Resolution is best-effort: with no type or binding information, a call is
// matched to a definition by name alone and an import to a file by probing
// path candidates against the set of files in the tree. The resulting
// CALLS and IMPORTS edges are plausible references, not verified ones.
package resolve

import (
	"sort"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// SymbolTable maps a function name to the file that defines it.
//
// Names are not unique across a tree. When several files define the same
// name the FIRST one folded in wins, so building the table from records in
// walk order gives the same answer on every run. All defining files are
// kept so collisions can be reported.
type SymbolTable struct {
	first map[string]string
	all   map[string][]string
}

// BuildSymbolTable folds records, in order, into a SymbolTable.
func BuildSymbolTable(records []*graph.Record) *SymbolTable {
	t := &SymbolTable{
		first: make(map[string]string),
		all:   make(map[string][]string),
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, fn := range rec.Functions {
			t.Add(fn)
		}
	}
	return t
}

// Add records fn. The first file seen for a name stays its resolution.
func (t *SymbolTable) Add(fn graph.FunctionNode) {
	if _, ok := t.first[fn.Name]; !ok {
		t.first[fn.Name] = fn.File
	}
	for _, f := range t.all[fn.Name] {
		if f == fn.File {
			return
		}
	}
	t.all[fn.Name] = append(t.all[fn.Name], fn.File)
}

// Lookup returns the file that name resolves to.
func (t *SymbolTable) Lookup(name string) (string, bool) {
	f, ok := t.first[name]
	return f, ok
}

// Definitions returns every file defining name, in fold order.
func (t *SymbolTable) Definitions(name string) []string {
	return t.all[name]
}

// Collisions returns the names defined in more than one file, sorted.
func (t *SymbolTable) Collisions() []string {
	var out []string
	for name, files := range t.all {
		if len(files) > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct names.
func (t *SymbolTable) Len() int { return len(t.first) }
