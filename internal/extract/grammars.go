package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// NodeSet names the CST node kinds the grammar tier treats as structural for
// one language.
type NodeSet struct {
	Imports   []string
	Functions []string
	Classes   []string
	Calls     []string
	// Heritage kinds are class children whose identifiers are base names.
	Heritage []string
	// Declarators are parent kinds whose name field names an anonymous
	// function value.
	Declarators []string
}

func has(kinds []string, k string) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

var jsFunctions = []string{
	"function_declaration", "function_expression", "function",
	"generator_function_declaration", "method_definition", "arrow_function",
}

var nodeSets = map[graph.Language]NodeSet{
	graph.LangJavaScript: {
		Imports:     []string{"import_statement"},
		Functions:   jsFunctions,
		Classes:     []string{"class_declaration", "class"},
		Calls:       []string{"call_expression"},
		Heritage:    []string{"class_heritage"},
		Declarators: []string{"variable_declarator"},
	},
	graph.LangTypeScript: {
		Imports:     []string{"import_statement"},
		Functions:   jsFunctions,
		Classes:     []string{"class_declaration", "abstract_class_declaration", "class"},
		Calls:       []string{"call_expression"},
		Heritage:    []string{"class_heritage", "extends_clause"},
		Declarators: []string{"variable_declarator"},
	},
	graph.LangRust: {
		Imports:     []string{"use_declaration"},
		Functions:   []string{"function_item", "function_signature_item"},
		Classes:     []string{"struct_item", "enum_item", "trait_item"},
		Calls:       []string{"call_expression"},
		Heritage:    []string{"trait_bounds"},
		Declarators: []string{"let_declaration"},
	},
	graph.LangPython: {
		Imports:   []string{"import_statement", "import_from_statement"},
		Functions: []string{"function_definition"},
		Classes:   []string{"class_definition"},
		Calls:     []string{"call"},
		Heritage:  []string{"argument_list"},
	},
	graph.LangGo: {
		Imports:   []string{"import_spec"},
		Functions: []string{"function_declaration", "method_declaration"},
		Classes:   []string{"type_spec"},
		Calls:     []string{"call_expression"},
	},
}

func init() {
	nodeSets[graph.LangTSX] = nodeSets[graph.LangTypeScript]
}

// Grammar is a loaded tree-sitter grammar with its node-kind set.
type Grammar struct {
	Language graph.Language
	Nodes    NodeSet
	ts       *tree_sitter.Language
}

// grammarLoaders produces the tree-sitter language for each built-in grammar.
var grammarLoaders = map[graph.Language]func() *tree_sitter.Language{
	graph.LangJavaScript: func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
	graph.LangTypeScript: func() *tree_sitter.Language {
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	},
	graph.LangTSX:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
	graph.LangRust:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
	graph.LangPython: func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
	graph.LangGo:     func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
}

// Grammars is the set of grammars available to the grammar tier.
type Grammars struct {
	byLang map[graph.Language]*Grammar
}

// LoadGrammars loads every built-in grammar except the disabled ones.
func LoadGrammars(disabled []string) *Grammars {
	off := make(map[graph.Language]bool, len(disabled))
	for _, d := range disabled {
		off[graph.Language(strings.ToLower(strings.TrimSpace(d)))] = true
	}
	g := &Grammars{byLang: make(map[graph.Language]*Grammar, len(grammarLoaders))}
	for lang, load := range grammarLoaders {
		if off[lang] {
			continue
		}
		g.byLang[lang] = &Grammar{Language: lang, Nodes: nodeSets[lang], ts: load()}
	}
	return g
}

// Lookup returns the grammar for lang, if loaded.
func (g *Grammars) Lookup(lang graph.Language) (*Grammar, bool) {
	if g == nil {
		return nil, false
	}
	gr, ok := g.byLang[lang]
	return gr, ok
}

// Loaded returns the loaded languages in sorted order.
func (g *Grammars) Loaded() []graph.Language {
	if g == nil {
		return nil
	}
	out := make([]graph.Language, 0, len(g.byLang))
	for l := range g.byLang {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// parseTree parses source with lang. The caller must Close the tree.
func parseTree(lang *tree_sitter.Language, source []byte) (*tree_sitter.Tree, error) {
	if lang == nil {
		return nil, errors.New("grammar not initialized")
	}
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New("tree-sitter returned nil tree")
	}
	return tree, nil
}

// Parse parses source into a CST.
func (g *Grammar) Parse(source []byte) (*CSTNode, error) {
	tree, err := parseTree(g.ts, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Language, err)
	}
	defer tree.Close()
	return convertTree(tree.RootNode(), source), nil
}
