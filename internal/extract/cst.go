package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// CSTNode is a language-neutral concrete syntax tree node. It is a plain Go
// copy of a tree-sitter node, so it outlives the parser and tree that
// produced it and can be walked without cgo calls.
type CSTNode struct {
	Kind     string
	Named    bool
	Field    string // field name under Parent, or ""
	Text     string
	Line     int // 1-based start line
	Parent   *CSTNode
	Children []*CSTNode
}

// ChildByField returns the first child stored under the given field name.
func (n *CSTNode) ChildByField(name string) *CSTNode {
	for _, c := range n.Children {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// FirstChildOfKind returns the first direct child whose kind is one of kinds.
func (n *CSTNode) FirstChildOfKind(kinds ...string) *CSTNode {
	for _, c := range n.Children {
		for _, k := range kinds {
			if c.Kind == k {
				return c
			}
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from visit skips the node's children.
func (n *CSTNode) Walk(visit func(*CSTNode) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// convertTree copies the tree rooted at root into CSTNodes.
func convertTree(root *tree_sitter.Node, source []byte) *CSTNode {
	text := string(source)
	cursor := root.Walk()
	defer cursor.Close()
	return convertNode(cursor, text, nil)
}

func convertNode(cursor *tree_sitter.TreeCursor, text string, parent *CSTNode) *CSTNode {
	node := cursor.Node()
	n := &CSTNode{
		Kind:   node.Kind(),
		Named:  node.IsNamed(),
		Field:  cursor.FieldName(),
		Text:   sliceText(text, node.StartByte(), node.EndByte()),
		Line:   int(node.StartPosition().Row) + 1,
		Parent: parent,
	}
	if cursor.GotoFirstChild() {
		n.Children = append(n.Children, convertNode(cursor, text, n))
		for cursor.GotoNextSibling() {
			n.Children = append(n.Children, convertNode(cursor, text, n))
		}
		cursor.GotoParent()
	}
	return n
}

func sliceText(text string, start, end uint) string {
	if end > uint(len(text)) {
		end = uint(len(text))
	}
	if start > end {
		return ""
	}
	return text[start:end]
}
