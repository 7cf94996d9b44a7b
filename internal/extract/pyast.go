package extract

import "strings"

// PyNode is a node of the typed Python syntax tree. The concrete types form a
// closed tagged union; Other stands in for every construct the extractor
// does not distinguish.
type PyNode interface {
	// Source returns the node's source text.
	Source() string
	children() []PyNode
}

type pyText struct{ text string }

func (p pyText) Source() string { return p.text }

// PyModule is the root of a Python file.
type PyModule struct {
	pyText
	Body []PyNode
}

// PyImport is `import a.b [as c], d`. Names holds the dotted module names.
type PyImport struct {
	pyText
	Names []string
}

// PyImportFrom is `from [.]*module import names`.
type PyImportFrom struct {
	pyText
	Module string // may be empty for `from . import x`
	Level  int    // number of leading dots
	Names  []string
}

// PyDecorator is one `@expr` line.
type PyDecorator struct {
	pyText
	Expr PyNode
}

// PyClassDef is a class statement.
type PyClassDef struct {
	pyText
	Name       string
	Bases      []PyNode
	Decorators []*PyDecorator
	Body       []PyNode
}

// PyFunctionDef is a def or async def statement.
type PyFunctionDef struct {
	pyText
	Name       string
	Async      bool
	Decorators []*PyDecorator
	Params     []PyNode
	Body       []PyNode
}

// PyCall is a call expression.
type PyCall struct {
	pyText
	Func PyNode
	Args []PyNode
}

// PyName is a bare identifier.
type PyName struct {
	pyText
	ID string
}

// PyAttribute is `value.attr`.
type PyAttribute struct {
	pyText
	Value PyNode
	Attr  string
}

// PyOther is any other construct, kept for its children.
type PyOther struct {
	pyText
	Kind     string
	Children []PyNode
}

func (n *PyModule) children() []PyNode     { return n.Body }
func (n *PyImport) children() []PyNode     { return nil }
func (n *PyImportFrom) children() []PyNode { return nil }
func (n *PyDecorator) children() []PyNode  { return []PyNode{n.Expr} }
func (n *PyName) children() []PyNode       { return nil }
func (n *PyOther) children() []PyNode      { return n.Children }

func (n *PyAttribute) children() []PyNode { return []PyNode{n.Value} }

func (n *PyCall) children() []PyNode {
	return append([]PyNode{n.Func}, n.Args...)
}

func (n *PyClassDef) children() []PyNode {
	out := decoratorNodes(n.Decorators)
	out = append(out, n.Bases...)
	return append(out, n.Body...)
}

func (n *PyFunctionDef) children() []PyNode {
	out := decoratorNodes(n.Decorators)
	out = append(out, n.Params...)
	return append(out, n.Body...)
}

func decoratorNodes(ds []*PyDecorator) []PyNode {
	out := make([]PyNode, 0, len(ds))
	for _, d := range ds {
		out = append(out, d)
	}
	return out
}

// PyWalk visits n and every node beneath it in pre-order.
func PyWalk(n PyNode, visit func(PyNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.children() {
		PyWalk(c, visit)
	}
}

// DottedName renders a Name or an Attribute chain as "a.b.c". An Attribute
// chain rooted at anything but a Name renders just its attribute names. It
// returns false for any other node.
func DottedName(n PyNode) (string, bool) {
	switch v := n.(type) {
	case *PyName:
		return v.ID, true
	case *PyAttribute:
		var parts []string
		var cur PyNode = v
		for {
			a, ok := cur.(*PyAttribute)
			if !ok {
				break
			}
			parts = append(parts, a.Attr)
			cur = a.Value
		}
		if name, ok := cur.(*PyName); ok {
			parts = append(parts, name.ID)
		}
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return strings.Join(parts, "."), true
	}
	return "", false
}

// ---------- Lowering from the concrete syntax tree ----------

// lowerPython converts a tree-sitter-python CST into the typed tree.
func lowerPython(root *CSTNode) *PyModule {
	return &PyModule{pyText: pyText{root.Text}, Body: lowerChildren(root)}
}

func lowerChildren(n *CSTNode) []PyNode {
	var out []PyNode
	for _, c := range n.Children {
		if c.Named {
			out = append(out, lowerPy(c))
		}
	}
	return out
}

func lowerPy(n *CSTNode) PyNode {
	t := pyText{n.Text}
	switch n.Kind {
	case "import_statement":
		imp := &PyImport{pyText: t}
		for _, c := range n.Children {
			if c.Field == "name" {
				imp.Names = append(imp.Names, importedName(c))
			}
		}
		return imp

	case "import_from_statement":
		imp := &PyImportFrom{pyText: t}
		if m := n.ChildByField("module_name"); m != nil {
			if m.Kind == "relative_import" {
				for _, c := range m.Children {
					switch c.Kind {
					case "import_prefix":
						imp.Level = strings.Count(c.Text, ".")
					case "dotted_name":
						imp.Module = c.Text
					}
				}
			} else {
				imp.Module = m.Text
			}
		}
		for _, c := range n.Children {
			switch {
			case c.Field == "name":
				imp.Names = append(imp.Names, importedName(c))
			case c.Kind == "wildcard_import":
				imp.Names = append(imp.Names, "*")
			}
		}
		return imp

	case "decorated_definition":
		def := n.ChildByField("definition")
		if def == nil {
			return &PyOther{pyText: t, Kind: n.Kind, Children: lowerChildren(n)}
		}
		var decs []*PyDecorator
		for _, c := range n.Children {
			if c.Kind == "decorator" {
				decs = append(decs, lowerDecorator(c))
			}
		}
		lowered := lowerPy(def)
		switch d := lowered.(type) {
		case *PyFunctionDef:
			d.Decorators = decs
		case *PyClassDef:
			d.Decorators = decs
		}
		return lowered

	case "class_definition":
		cls := &PyClassDef{pyText: t}
		if name := n.ChildByField("name"); name != nil {
			cls.Name = name.Text
		}
		if sup := n.ChildByField("superclasses"); sup != nil {
			for _, c := range sup.Children {
				// Keyword arguments (metaclass=...) are not bases.
				if c.Named && c.Kind != "keyword_argument" && c.Kind != "comment" {
					cls.Bases = append(cls.Bases, lowerPy(c))
				}
			}
		}
		if body := n.ChildByField("body"); body != nil {
			cls.Body = lowerChildren(body)
		}
		return cls

	case "function_definition":
		fn := &PyFunctionDef{pyText: t}
		if name := n.ChildByField("name"); name != nil {
			fn.Name = name.Text
		}
		for _, c := range n.Children {
			if c.Kind == "async" && !c.Named {
				fn.Async = true
			}
		}
		if params := n.ChildByField("parameters"); params != nil {
			fn.Params = lowerChildren(params)
		}
		if body := n.ChildByField("body"); body != nil {
			fn.Body = lowerChildren(body)
		}
		return fn

	case "call":
		call := &PyCall{pyText: t}
		if f := n.ChildByField("function"); f != nil {
			call.Func = lowerPy(f)
		} else {
			call.Func = &PyOther{pyText: pyText{""}, Kind: "missing"}
		}
		if args := n.ChildByField("arguments"); args != nil {
			call.Args = lowerChildren(args)
		}
		return call

	case "identifier":
		return &PyName{pyText: t, ID: n.Text}

	case "attribute":
		obj, attr := n.ChildByField("object"), n.ChildByField("attribute")
		if obj != nil && attr != nil {
			return &PyAttribute{pyText: t, Value: lowerPy(obj), Attr: attr.Text}
		}
	}
	return &PyOther{pyText: t, Kind: n.Kind, Children: lowerChildren(n)}
}

func lowerDecorator(n *CSTNode) *PyDecorator {
	d := &PyDecorator{pyText: pyText{n.Text}}
	for _, c := range n.Children {
		if c.Named && c.Kind != "comment" {
			d.Expr = lowerPy(c)
			break
		}
	}
	if d.Expr == nil {
		d.Expr = &PyOther{pyText: pyText{""}, Kind: "missing"}
	}
	return d
}

// importedName returns the module name of a dotted_name or aliased_import.
func importedName(n *CSTNode) string {
	if n.Kind == "aliased_import" {
		if name := n.ChildByField("name"); name != nil {
			return name.Text
		}
	}
	return n.Text
}
