package extract

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// GoExtractor is the native tier for Go, built on the standard go/parser.
type GoExtractor struct{}

// NewGoExtractor returns the native Go extractor.
func NewGoExtractor() *GoExtractor { return &GoExtractor{} }

func (e *GoExtractor) Tier() Tier { return TierNative }

// Extract fails on any go/parser error.
func (e *GoExtractor) Extract(_ context.Context, src Source) (*graph.Record, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, src.Path, src.Content, parser.SkipObjectResolution)
	if err != nil {
		return nil, parseFailure(src, TierNative, err)
	}

	file := src.File()
	rec := &graph.Record{File: file}

	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			p = imp.Path.Value
		}
		rec.Imports = append(rec.Imports, p)
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				if bases, ok := goTypeBases(ts.Type); ok {
					rec.Classes = append(rec.Classes, graph.ClassNode{Name: ts.Name.Name, File: file.Path, Bases: bases})
				}
			}

		case *ast.FuncDecl:
			name := d.Name.Name
			rec.Functions = append(rec.Functions, graph.FunctionNode{Name: name, File: file.Path})
			if d.Body == nil {
				continue
			}
			ast.Inspect(d.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				if callee, ok := goCallee(call.Fun); ok {
					rec.CallSites = append(rec.CallSites, graph.CallSite{Caller: name, CallerFile: file.Path, Callee: callee})
				}
				return true
			})
		}
	}
	return rec, nil
}

// goTypeBases reports whether t is a struct or interface type and returns
// its embedded types by name.
func goTypeBases(t ast.Expr) ([]string, bool) {
	var fields *ast.FieldList
	switch v := t.(type) {
	case *ast.StructType:
		fields = v.Fields
	case *ast.InterfaceType:
		fields = v.Methods
	default:
		return nil, false
	}
	var bases []string
	if fields == nil {
		return bases, true
	}
	for _, f := range fields.List {
		if len(f.Names) > 0 {
			continue
		}
		if name := goTypeName(f.Type); name != "" {
			bases = append(bases, name)
		}
	}
	return bases, true
}

// goTypeName renders an embedded type expression as a dotted name.
func goTypeName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.StarExpr:
		return goTypeName(v.X)
	case *ast.SelectorExpr:
		if x := goTypeName(v.X); x != "" {
			return x + "." + v.Sel.Name
		}
		return v.Sel.Name
	case *ast.IndexExpr:
		return goTypeName(v.X)
	case *ast.IndexListExpr:
		return goTypeName(v.X)
	}
	return ""
}

// goCallee renders Name(...) as the name and a.b.c(...) as "a.b.c". Other
// callee shapes are skipped.
func goCallee(fun ast.Expr) (string, bool) {
	switch v := fun.(type) {
	case *ast.Ident:
		return v.Name, true
	case *ast.SelectorExpr:
		var parts []string
		var cur ast.Expr = v
		for {
			sel, ok := cur.(*ast.SelectorExpr)
			if !ok {
				break
			}
			parts = append([]string{sel.Sel.Name}, parts...)
			cur = sel.X
		}
		if id, ok := cur.(*ast.Ident); ok {
			parts = append([]string{id.Name}, parts...)
		}
		return strings.Join(parts, "."), true
	}
	return "", false
}
