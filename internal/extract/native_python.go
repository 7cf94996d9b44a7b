package extract

import (
	"context"
	"errors"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// PythonExtractor is the native tier for Python. It lowers the source into
// the typed PyNode tree and walks that.
type PythonExtractor struct {
	lang *tree_sitter.Language
}

// NewPythonExtractor returns the native Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{lang: tree_sitter.NewLanguage(tree_sitter_python.Language())}
}

func (e *PythonExtractor) Tier() Tier { return TierNative }

var errPySyntax = errors.New("python syntax error")

// Extract fails on any syntax error in the file.
func (e *PythonExtractor) Extract(_ context.Context, src Source) (*graph.Record, error) {
	tree, err := parseTree(e.lang, src.Content)
	if err != nil {
		return nil, parseFailure(src, TierNative, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, parseFailure(src, TierNative, errPySyntax)
	}
	mod := lowerPython(convertTree(root, src.Content))
	return pythonRecord(mod, src.File()), nil
}

// pythonRecord collects the structure of a lowered module.
func pythonRecord(mod *PyModule, file graph.FileNode) *graph.Record {
	rec := &graph.Record{File: file}
	var funcs []*PyFunctionDef

	PyWalk(mod, func(n PyNode) {
		switch v := n.(type) {
		case *PyImport:
			rec.Imports = append(rec.Imports, v.Names...)

		case *PyImportFrom:
			prefix := strings.Repeat(".", v.Level) + v.Module
			for _, name := range v.Names {
				switch {
				case v.Module != "":
					rec.Imports = append(rec.Imports, prefix+"."+name)
				default:
					rec.Imports = append(rec.Imports, prefix+name)
				}
			}

		case *PyClassDef:
			cls := graph.ClassNode{Name: v.Name, File: file.Path}
			for _, b := range v.Bases {
				if name, ok := DottedName(b); ok {
					cls.Bases = append(cls.Bases, name)
				} else {
					cls.Bases = append(cls.Bases, b.Source())
				}
			}
			rec.Classes = append(rec.Classes, cls)

		case *PyFunctionDef:
			rec.Functions = append(rec.Functions, graph.FunctionNode{Name: v.Name, File: file.Path})
			funcs = append(funcs, v)
			for _, d := range v.Decorators {
				if ep, ok := endpointFor(v.Name, file.Path, d); ok {
					rec.Endpoints = append(rec.Endpoints, ep)
				}
			}
		}
	})

	// Each function gets its own walk, so a call inside a nested function is
	// attributed to every enclosing function as well.
	for _, fn := range funcs {
		PyWalk(fn, func(n PyNode) {
			call, ok := n.(*PyCall)
			if !ok {
				return
			}
			if callee, ok := DottedName(call.Func); ok && callee != "" {
				rec.CallSites = append(rec.CallSites, graph.CallSite{
					Caller:     fn.Name,
					CallerFile: file.Path,
					Callee:     callee,
				})
			}
		})
	}
	return rec
}

// endpointFor recognizes route decorators of the form @x.get(...).
func endpointFor(fn, file string, d *PyDecorator) (graph.EndpointNode, bool) {
	call, ok := d.Expr.(*PyCall)
	if !ok {
		return graph.EndpointNode{}, false
	}
	attr, ok := call.Func.(*PyAttribute)
	if !ok {
		return graph.EndpointNode{}, false
	}
	method, ok := graph.ParseHTTPMethod(attr.Attr)
	if !ok {
		return graph.EndpointNode{}, false
	}
	return graph.EndpointNode{Name: fn, File: file, Method: method}, true
}
