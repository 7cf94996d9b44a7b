package extract

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// HeuristicExtractor is the last-resort tier: regular expressions over the
// raw text. Calls carry no caller, so this tier never yields CallEdges.
type HeuristicExtractor struct{}

// NewHeuristicExtractor returns the heuristic-tier extractor.
func NewHeuristicExtractor() *HeuristicExtractor { return &HeuristicExtractor{} }

func (e *HeuristicExtractor) Tier() Tier { return TierHeuristic }

var (
	reESImport  = regexp.MustCompile(`(?m)^\s*import\s+(?:[^;]*?\s+from\s+)?['"]([^'"]+)['"]`)
	reRequire   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	reJSFunc    = regexp.MustCompile(`\bfunction\s+([A-Za-z_$][\w$]*)\s*\(`)
	reJSVarFunc = regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:function\b|\(?[A-Za-z_$,\s]*\)?\s*=>)`)
	reClass     = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)\b`)
	reCall      = regexp.MustCompile(`\b(?:[A-Za-z_$][\w$]*\.)*([A-Za-z_$][\w$]*)\s*\(`)

	rePyDef    = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	rePyImport = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*)`)
	rePyFrom   = regexp.MustCompile(`(?m)^\s*from\s+([.\w]+)\s+import\s+([A-Za-z_*][\w]*)`)
	reGoFunc   = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*[(\[]`)
	reRustFn   = regexp.MustCompile(`\bfn\s+([A-Za-z_]\w*)\s*[(<]`)
)

// callBlocklist holds keywords the call pattern would otherwise match.
var callBlocklist = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"function": true, "class": true, "new": true, "catch": true, "typeof": true,
	"await": true, "super": true, "constructor": true, "import": true, "export": true,
	"case": true, "delete": true, "in": true, "of": true, "do": true, "else": true,
	"try": true, "finally": true, "with": true, "yield": true, "void": true,
	"instanceof": true,
}

var errBinary = errors.New("binary content")

// Extract matches declaration, import and call patterns. Content with a NUL
// byte is rejected as binary. Invalid UTF-8 sequences are dropped.
func (e *HeuristicExtractor) Extract(_ context.Context, src Source) (*graph.Record, error) {
	if bytes.IndexByte(src.Content, 0) >= 0 {
		return nil, parseFailure(src, TierHeuristic, errBinary)
	}
	text := strings.ToValidUTF8(string(src.Content), "")

	imports := stringSet{}
	functions := stringSet{}
	classes := stringSet{}

	imports.addGroup(reESImport, text, 1)
	imports.addGroup(reRequire, text, 1)
	functions.addGroup(reJSFunc, text, 1)
	functions.addGroup(reJSVarFunc, text, 1)
	classes.addGroup(reClass, text, 1)

	switch src.Language {
	case graph.LangPython:
		functions.addGroup(rePyDef, text, 1)
		imports.addGroup(rePyImport, text, 1)
		for _, m := range rePyFrom.FindAllStringSubmatch(text, -1) {
			sep := "."
			if strings.Trim(m[1], ".") == "" {
				sep = ""
			}
			imports[m[1]+sep+m[2]] = true
		}
	case graph.LangGo:
		functions.addGroup(reGoFunc, text, 1)
	case graph.LangRust:
		functions.addGroup(reRustFn, text, 1)
	}

	file := src.File()
	rec := &graph.Record{File: file, Imports: imports.sorted()}
	for _, name := range functions.sorted() {
		rec.Functions = append(rec.Functions, graph.FunctionNode{Name: name, File: file.Path})
	}
	for _, name := range classes.sorted() {
		rec.Classes = append(rec.Classes, graph.ClassNode{Name: name, File: file.Path})
	}
	for _, m := range reCall.FindAllStringSubmatch(text, -1) {
		if callBlocklist[m[1]] {
			continue
		}
		rec.CallSites = append(rec.CallSites, graph.CallSite{CallerFile: file.Path, Callee: m[1]})
	}
	return rec, nil
}

type stringSet map[string]bool

func (s stringSet) addGroup(re *regexp.Regexp, text string, group int) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		s[m[group]] = true
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
