package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// UnknownClass names a class node whose name could not be determined.
const UnknownClass = "UnknownClass"

// GrammarExtractor extracts records from a grammar-based CST. One traversal
// classifies nodes by the language's NodeSet.
type GrammarExtractor struct {
	grammars *Grammars
}

// NewGrammarExtractor returns a grammar-tier extractor over grammars.
func NewGrammarExtractor(grammars *Grammars) *GrammarExtractor {
	return &GrammarExtractor{grammars: grammars}
}

func (e *GrammarExtractor) Tier() Tier { return TierGrammar }

// Extract parses src with its language's grammar. A language without a
// loaded grammar yields an error wrapping ErrNoGrammar.
func (e *GrammarExtractor) Extract(_ context.Context, src Source) (*graph.Record, error) {
	g, ok := e.grammars.Lookup(src.Language)
	if !ok {
		return nil, &ExtractError{Path: src.Path, Tier: TierGrammar, Err: fmt.Errorf("%w: %s", ErrNoGrammar, src.Language)}
	}
	root, err := g.Parse(src.Content)
	if err != nil {
		return nil, parseFailure(src, TierGrammar, err)
	}
	return extractCST(root, g.Nodes, src.File()), nil
}

// extractCST walks root once, collecting structure according to nodes.
func extractCST(root *CSTNode, nodes NodeSet, file graph.FileNode) *graph.Record {
	rec := &graph.Record{File: file}
	root.Walk(func(n *CSTNode) bool {
		// Keyword tokens such as "class" and "function" share their kind
		// with the declaration node.
		if !n.Named {
			return true
		}
		switch {
		case has(nodes.Imports, n.Kind):
			if text := strings.TrimSpace(n.Text); text != "" {
				rec.Imports = append(rec.Imports, text)
			}
			return false

		case has(nodes.Functions, n.Kind):
			if name := functionName(n, nodes); name != "" {
				rec.Functions = append(rec.Functions, graph.FunctionNode{Name: name, File: file.Path})
			}

		case has(nodes.Classes, n.Kind):
			if !isClassShape(n, file.Language) {
				return true
			}
			rec.Classes = append(rec.Classes, graph.ClassNode{
				Name:  className(n),
				File:  file.Path,
				Bases: classBases(n, nodes),
			})

		case has(nodes.Calls, n.Kind):
			if callee := calleeName(n); callee != "" {
				rec.CallSites = append(rec.CallSites, graph.CallSite{
					Caller:     enclosingFunction(n, nodes),
					CallerFile: file.Path,
					Callee:     callee,
				})
			}
		}
		return true
	})
	return rec
}

// functionName resolves a function node's name: its name field, else the
// name of an enclosing declarator for an anonymous function value, else the
// first plain identifier child.
func functionName(n *CSTNode, nodes NodeSet) string {
	if name := n.ChildByField("name"); name != nil {
		return name.Text
	}
	if p := n.Parent; p != nil && has(nodes.Declarators, p.Kind) {
		for _, field := range []string{"name", "pattern"} {
			if d := p.ChildByField(field); d != nil && d.Kind == "identifier" {
				return d.Text
			}
		}
	}
	for _, c := range n.Children {
		// A single arrow-function parameter is an identifier too.
		if c.Kind == "identifier" && c.Field == "" {
			return c.Text
		}
	}
	return ""
}

func className(n *CSTNode) string {
	if name := n.ChildByField("name"); name != nil && name.Text != "" {
		return name.Text
	}
	return UnknownClass
}

// isClassShape reports whether a class-kind node is a class. Only Go needs a
// check: a type_spec counts when it declares a struct or interface.
func isClassShape(n *CSTNode, lang graph.Language) bool {
	if lang != graph.LangGo {
		return true
	}
	t := n.ChildByField("type")
	return t != nil && (t.Kind == "struct_type" || t.Kind == "interface_type")
}

// classBases collects identifier children of heritage-like children,
// descending through nested heritage kinds.
func classBases(n *CSTNode, nodes NodeSet) []string {
	var bases []string
	var collect func(h *CSTNode)
	collect = func(h *CSTNode) {
		for _, c := range h.Children {
			switch {
			case c.Kind == "identifier" || c.Kind == "type_identifier":
				bases = append(bases, c.Text)
			case has(nodes.Heritage, c.Kind):
				collect(c)
			}
		}
	}
	for _, c := range n.Children {
		if has(nodes.Heritage, c.Kind) {
			collect(c)
		}
	}
	return bases
}

// calleeFields are the fields naming the right-most segment of a member,
// attribute, scoped or selector expression.
var calleeFields = []string{"property", "attribute", "field", "name"}

// calleeName returns the first identifier child of a call node, else the
// right-most name of its callee expression.
func calleeName(n *CSTNode) string {
	if id := n.FirstChildOfKind("identifier"); id != nil {
		return id.Text
	}
	fn := n.ChildByField("function")
	for fn != nil {
		switch fn.Kind {
		case "identifier", "property_identifier", "field_identifier", "type_identifier":
			return fn.Text
		}
		var next *CSTNode
		for _, f := range calleeFields {
			if next = fn.ChildByField(f); next != nil {
				break
			}
		}
		fn = next
	}
	return ""
}

// enclosingFunction names the nearest function ancestor of n, or "" when n
// is not inside a named function.
func enclosingFunction(n *CSTNode, nodes NodeSet) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if has(nodes.Functions, p.Kind) {
			return functionName(p, nodes)
		}
	}
	return ""
}
