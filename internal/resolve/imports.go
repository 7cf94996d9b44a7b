package resolve

import (
	"bufio"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// DefaultImportExtensions are appended to each candidate path, in order,
// when probing the known-file set.
var DefaultImportExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx",
	"/__init__.py", "/index.js", "/index.ts",
	".go", ".rs", "/mod.rs",
}

// ImportResolver rewrites raw import strings into repo-relative file paths
// that match File node keys. It is built once per run from the set of
// recognized files and any module metadata at the repository root. It does
// no filesystem I/O after construction.
type ImportResolver struct {
	fileSet    map[string]bool
	dirIndex   map[string][]string
	extensions []string
	goModPath  string
	workspaces map[string]string // npm package name -> repo-relative dir
}

// NewImportResolver builds a resolver over knownFiles ("/"-separated,
// repo-relative). extensions defaults to DefaultImportExtensions.
func NewImportResolver(repoRoot string, knownFiles, extensions []string) *ImportResolver {
	if len(extensions) == 0 {
		extensions = DefaultImportExtensions
	}
	r := &ImportResolver{
		fileSet:    make(map[string]bool, len(knownFiles)),
		dirIndex:   make(map[string][]string),
		extensions: extensions,
		workspaces: make(map[string]string),
	}
	for _, f := range knownFiles {
		f = graph.NormalizePath(f)
		r.fileSet[f] = true
		dir := path.Dir(f)
		r.dirIndex[dir] = append(r.dirIndex[dir], f)
	}
	for _, files := range r.dirIndex {
		sort.Strings(files)
	}
	if repoRoot != "" {
		r.goModPath = readGoModulePath(filepath.Join(repoRoot, "go.mod"))
		r.scanWorkspaces(repoRoot)
	}
	return r
}

// Resolve maps one raw import taken from fromFile to the files it names. The
// second result counts specifiers that matched no file.
func (r *ImportResolver) Resolve(raw, fromFile string, lang graph.Language) ([]string, int) {
	var targets []string
	unresolved := 0
	for _, spec := range Specifiers(raw) {
		if target, ok := r.resolveSpecifier(spec, fromFile, lang); ok {
			targets = append(targets, target)
		} else {
			unresolved++
		}
	}
	return targets, unresolved
}

func (r *ImportResolver) resolveSpecifier(spec, fromFile string, lang graph.Language) (string, bool) {
	for _, base := range r.candidates(spec, fromFile, lang) {
		if f, ok := r.probe(base); ok {
			return f, true
		}
	}
	if f, ok := r.resolveGo(spec); ok {
		return f, true
	}
	return r.resolveWorkspace(spec)
}

// candidates lists the base paths to probe for spec, in priority order.
func (r *ImportResolver) candidates(spec, fromFile string, lang graph.Language) []string {
	var out []string
	add := func(p string) {
		if p == "" {
			return
		}
		p = strings.TrimPrefix(path.Clean(p), "/")
		if p == "." || strings.HasPrefix(p, "../") {
			return
		}
		out = append(out, p)
	}
	fromDir := path.Dir(fromFile)

	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		add(path.Join(fromDir, spec))

	case strings.HasPrefix(spec, "."):
		// Python relative: one dot is the current package, each further
		// dot goes up one level.
		dots := len(spec) - len(strings.TrimLeft(spec, "."))
		mod := spec[dots:]
		base := fromDir
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		if mod == "" {
			add(path.Join(base, "__init__"))
			break
		}
		add(path.Join(base, dotted(mod)))
		if parent, ok := parentModule(mod); ok {
			add(path.Join(base, dotted(parent)))
		}

	default:
		add(positional(spec))
		if lang == graph.LangPython {
			if parent, ok := parentModule(spec); ok {
				add(dotted(parent))
			}
		}
		out = append(out, rustCandidates(spec, fromFile)...)
	}
	return out
}

// positional maps module separators to directories, rooted at the tree root.
func positional(spec string) string {
	return dotted(strings.ReplaceAll(spec, "::", "/"))
}

func dotted(mod string) string { return strings.ReplaceAll(mod, ".", "/") }

// parentModule drops the last dotted segment, so "pkg.util.helper" from
// `from pkg.util import helper` can find pkg/util.py.
func parentModule(mod string) (string, bool) {
	i := strings.LastIndex(mod, ".")
	if i <= 0 {
		return "", false
	}
	return mod[:i], true
}

// rustCandidates handles crate::, self:: and super:: paths.
func rustCandidates(spec, fromFile string) []string {
	var prefix, rest string
	for _, p := range []string{"crate::", "self::", "super::"} {
		if strings.HasPrefix(spec, p) {
			prefix, rest = p, strings.ReplaceAll(strings.TrimPrefix(spec, p), "::", "/")
			break
		}
	}
	switch prefix {
	case "crate::":
		out := []string{path.Join("src", rest), rest}
		if root := crateRoot(fromFile); root != "" {
			out = append(out, path.Join(root, rest))
		}
		return out
	case "self::":
		return []string{path.Join(path.Dir(fromFile), rest)}
	case "super::":
		return []string{path.Join(path.Dir(path.Dir(fromFile)), rest)}
	}
	return nil
}

// crateRoot walks up from a file path to the nearest "src" directory.
func crateRoot(file string) string {
	for dir := path.Dir(file); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if path.Base(dir) == "src" {
			return dir
		}
	}
	return ""
}

// probe checks base as-is and with each extension against the file set.
func (r *ImportResolver) probe(base string) (string, bool) {
	if r.fileSet[base] {
		return base, true
	}
	for _, ext := range r.extensions {
		if c := base + ext; r.fileSet[c] {
			return c, true
		}
	}
	return "", false
}

// resolveGo maps an import path under the root module to the first non-test
// Go file of its package directory.
func (r *ImportResolver) resolveGo(spec string) (string, bool) {
	if r.goModPath == "" || (spec != r.goModPath && !strings.HasPrefix(spec, r.goModPath+"/")) {
		return "", false
	}
	dir := strings.TrimPrefix(strings.TrimPrefix(spec, r.goModPath), "/")
	if dir == "" {
		dir = "."
	}
	for _, f := range r.dirIndex[dir] {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

// resolveWorkspace maps "@scope/pkg[/sub]" or "pkg[/sub]" onto a workspace
// package directory.
func (r *ImportResolver) resolveWorkspace(spec string) (string, bool) {
	names := make([]string, 0, len(r.workspaces))
	for name := range r.workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dir := r.workspaces[name]
		switch {
		case spec == name:
			for _, base := range []string{path.Join(dir, "src", "index"), path.Join(dir, "index")} {
				if f, ok := r.probe(base); ok {
					return f, true
				}
			}
		case strings.HasPrefix(spec, name+"/"):
			sub := strings.TrimPrefix(spec, name+"/")
			for _, base := range []string{path.Join(dir, "src", sub), path.Join(dir, sub)} {
				if f, ok := r.probe(base); ok {
					return f, true
				}
			}
		}
	}
	return "", false
}

// ---------- Specifier reduction ----------

var (
	reQuoted     = regexp.MustCompile("['\"`]([^'\"`]+)['\"`]")
	reFromImport = regexp.MustCompile(`(?s)^from\s+([.\w]+)\s+import\s+\(?\s*(.+?)\s*\)?$`)
	rePyImport   = regexp.MustCompile(`^import\s+(.+)$`)
	reUse        = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?use\s+(.+)$`)
)

// Specifiers reduces a raw import to its module specifiers. Extractors that
// keep whole statements (`import x from './a';`, `from m import a, b`,
// `use a::b;`) are reduced here; bare specifiers pass through.
func Specifiers(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimRight(s, "; \t\r\n"))
	if s == "" {
		return nil
	}

	if m := reUse.FindStringSubmatch(s); m != nil {
		return []string{rustUsePath(m[1])}
	}
	if m := reFromImport.FindStringSubmatch(s); m != nil {
		sep := "."
		if strings.Trim(m[1], ".") == "" {
			sep = ""
		}
		var out []string
		for _, name := range splitNames(m[2]) {
			out = append(out, m[1]+sep+name)
		}
		if len(out) == 0 {
			out = append(out, m[1])
		}
		return out
	}
	if m := reQuoted.FindStringSubmatch(s); m != nil {
		return []string{m[1]}
	}
	if m := rePyImport.FindStringSubmatch(s); m != nil {
		return splitNames(m[1])
	}
	return []string{s}
}

// splitNames splits "a as b, c" into ["a", "c"].
func splitNames(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(strings.Trim(part, "() \t\r\n"))
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}

// rustUsePath strips use-list braces and aliases: "crate::m::{A, B}" is
// "crate::m", "a::b as c" is "a::b".
func rustUsePath(p string) string {
	if i := strings.Index(p, "::{"); i != -1 {
		p = p[:i]
	}
	if i := strings.Index(p, " as "); i != -1 {
		p = p[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(p), "::*")
}

// ---------- Module metadata ----------

// readGoModulePath returns the module path declared in a go.mod file.
func readGoModulePath(modFile string) string {
	f, err := os.Open(modFile)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module")), `"`)
		}
	}
	return ""
}

// packageJSON is the subset of package.json read for workspaces.
type packageJSON struct {
	Name       string          `json:"name"`
	Workspaces json.RawMessage `json:"workspaces"`
}

// scanWorkspaces indexes npm/bun workspace packages declared in the root
// package.json.
func (r *ImportResolver) scanWorkspaces(repoRoot string) {
	var root packageJSON
	if !readPackageJSON(filepath.Join(repoRoot, "package.json"), &root) {
		return
	}
	for _, pattern := range workspacePatterns(root.Workspaces) {
		matches, err := filepath.Glob(filepath.Join(repoRoot, filepath.FromSlash(pattern)))
		if err != nil {
			continue
		}
		for _, dir := range matches {
			var pkg packageJSON
			if !readPackageJSON(filepath.Join(dir, "package.json"), &pkg) || pkg.Name == "" {
				continue
			}
			rel, err := filepath.Rel(repoRoot, dir)
			if err != nil {
				continue
			}
			r.workspaces[pkg.Name] = graph.NormalizePath(rel)
		}
	}
}

func readPackageJSON(p string, into *packageJSON) bool {
	data, err := os.ReadFile(p)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, into) == nil
}

// workspacePatterns accepts ["packages/*"] or {"packages": ["packages/*"]}.
func workspacePatterns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}
