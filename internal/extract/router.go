package extract

import (
	"path/filepath"
	"strings"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// DefaultExtensions maps lower-cased file extensions to languages.
var DefaultExtensions = map[string]graph.Language{
	".py":  graph.LangPython,
	".js":  graph.LangJavaScript,
	".jsx": graph.LangJavaScript,
	".mjs": graph.LangJavaScript,
	".cjs": graph.LangJavaScript,
	".ts":  graph.LangTypeScript,
	".tsx": graph.LangTSX,
	".go":  graph.LangGo,
	".rs":  graph.LangRust,
}

// Router maps file paths to languages by extension.
type Router struct {
	table map[string]graph.Language
}

// NewRouter returns a Router over DefaultExtensions plus the given overrides.
// Override keys may omit the leading dot; an empty language removes the
// extension.
func NewRouter(overrides map[string]string) *Router {
	table := make(map[string]graph.Language, len(DefaultExtensions)+len(overrides))
	for ext, lang := range DefaultExtensions {
		table[ext] = lang
	}
	for ext, lang := range overrides {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if lang == "" {
			delete(table, ext)
			continue
		}
		table[ext] = graph.Language(strings.ToLower(lang))
	}
	return &Router{table: table}
}

// Route returns the language for path, or false when the extension is not
// supported and the file must be skipped.
func (r *Router) Route(path string) (graph.Language, bool) {
	lang, ok := r.table[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Languages returns the distinct languages the router can yield.
func (r *Router) Languages() []graph.Language {
	seen := make(map[graph.Language]bool)
	var out []graph.Language
	for _, l := range r.table {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
