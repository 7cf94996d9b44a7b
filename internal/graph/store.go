package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnavailable is returned when the store cannot be opened or reached.
var ErrUnavailable = errors.New("graph store unavailable")

// ErrUnknownLabel is returned for a node whose label has no table.
var ErrUnknownLabel = errors.New("unknown node label")

// ErrInvalidEdge is returned for an edge whose type does not connect the
// labels of its endpoints.
var ErrInvalidEdge = errors.New("invalid edge")

// Store is the interface for the structure graph backend.
// Implementations: KuzuStore (production), MemStore (testing).
//
// Every write is an upsert: calling it any number of times with the same
// arguments leaves exactly one node or edge. Each call must be atomic so
// that concurrent writers racing on the same key cannot duplicate it.
type Store interface {
	io.Closer

	// InitSchema declares node and relationship tables. Idempotent.
	InitSchema(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// UpsertNode creates the node if absent, else updates its attributes.
	UpsertNode(ctx context.Context, node Node) error

	// UpsertEdge creates the edge if absent. Missing endpoints are created
	// with their key and attributes; existing endpoints are left untouched.
	UpsertEdge(ctx context.Context, edge Edge) error

	// GetNode returns the node with the given label and ID, or nil.
	GetNode(ctx context.Context, label Label, id string) (*Node, error)

	// HasEdge reports whether the edge exists.
	HasEdge(ctx context.Context, edge Edge) (bool, error)

	// Stats returns node counts by label and edge counts by type.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Prop is a single named node attribute.
type Prop struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is the store-level form of a graph node: a label, the ordered key
// attributes that identify it, and any other attributes.
type Node struct {
	Label Label  `json:"label"`
	Keys  []Prop `json:"keys"`
	Attrs []Prop `json:"attrs,omitempty"`
}

// ID derives the store identifier from the key values. It is stable and
// re-derivable from source text alone.
func (n Node) ID() string {
	vals := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		vals[i] = k.Value
	}
	return strings.Join(vals, idSeparator)
}

// Get returns the value of a key or attribute by name.
func (n Node) Get(name string) string {
	for _, p := range n.Keys {
		if p.Name == name {
			return p.Value
		}
	}
	for _, p := range n.Attrs {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Label, n.ID())
}

// Edge is the store-level form of a relationship.
type Edge struct {
	Type EdgeType `json:"type"`
	From Node     `json:"from"`
	To   Node     `json:"to"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s-[%s]->%s", e.From, e.Type, e.To)
}

// Validate checks that the edge type connects the endpoint labels.
func (e Edge) Validate() error {
	for _, pair := range edgeEndpoints[e.Type] {
		if pair[0] == e.From.Label && pair[1] == e.To.Label {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidEdge, e)
}

const idSeparator = "#"

func validateLabel(l Label) error {
	for _, known := range Labels {
		if l == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownLabel, l)
}

// edgeEndpoints lists the (from, to) label pairs each edge type accepts.
var edgeEndpoints = map[EdgeType][][2]Label{
	EdgeDefinedIn: {{LabelFunction, LabelFile}, {LabelClass, LabelFile}},
	EdgeHandledBy: {{LabelEndpoint, LabelFunction}},
	EdgeImports:   {{LabelFile, LabelFile}},
	EdgeCalls:     {{LabelFunction, LabelFunction}},
	EdgeUsedIn:    {{LabelFunction, LabelFile}},
	EdgeExtends:   {{LabelClass, LabelClass}},
}

// --- Conversions from canonical records ---

// FileRef converts a FileNode into its store node.
func FileRef(f FileNode) Node {
	name := f.Name
	if name == "" {
		name = NewFileNode(f.Path, f.Language).Name
	}
	return Node{
		Label: LabelFile,
		Keys:  []Prop{{"path", f.Path}},
		Attrs: []Prop{{"name", name}, {"language", string(f.Language)}},
	}
}

// FilePathRef is FileRef for a file known only by path.
func FilePathRef(p string) Node {
	return FileRef(NewFileNode(p, ""))
}

// FunctionRef converts a FunctionNode into its store node.
func FunctionRef(f FunctionNode) Node {
	return Node{
		Label: LabelFunction,
		Keys:  []Prop{{"file", f.File}, {"name", f.Name}},
	}
}

// ClassRef converts a ClassNode into its store node.
func ClassRef(c ClassNode) Node {
	return Node{
		Label: LabelClass,
		Keys:  []Prop{{"file", c.File}, {"name", c.Name}},
		Attrs: []Prop{{"bases", strings.Join(c.Bases, ",")}},
	}
}

// EndpointRef converts an EndpointNode into its store node.
func EndpointRef(e EndpointNode) Node {
	return Node{
		Label: LabelEndpoint,
		Keys:  []Prop{{"file", e.File}, {"name", e.Name}, {"method", string(e.Method)}},
	}
}
