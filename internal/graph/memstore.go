package graph

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex;
// every upsert runs under the write lock, which makes it atomic.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[Label]map[string]Node
	edges map[EdgeType]map[edgeKey]Edge
}

type edgeKey struct {
	fromLabel Label
	fromID    string
	toLabel   Label
	toID      string
}

func keyOf(e Edge) edgeKey {
	return edgeKey{e.From.Label, e.From.ID(), e.To.Label, e.To.ID()}
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	m := &MemStore{
		nodes: make(map[Label]map[string]Node, len(Labels)),
		edges: make(map[EdgeType]map[edgeKey]Edge, len(EdgeTypes)),
	}
	for _, l := range Labels {
		m.nodes[l] = make(map[string]Node)
	}
	for _, t := range EdgeTypes {
		m.edges[t] = make(map[edgeKey]Edge)
	}
	return m
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemStore) Ping(_ context.Context) error {
	return nil
}

// UpsertNode stores the node keyed by label and ID, replacing attributes of
// an existing node.
func (m *MemStore) UpsertNode(_ context.Context, node Node) error {
	if err := validateLabel(node.Label); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.Label][node.ID()] = node
	return nil
}

// UpsertEdge stores the edge once, creating absent endpoints.
func (m *MemStore) UpsertEdge(_ context.Context, edge Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureNode(edge.From)
	m.ensureNode(edge.To)
	m.edges[edge.Type][keyOf(edge)] = edge
	return nil
}

// ensureNode inserts n unless a node with the same key exists. Caller holds
// the write lock.
func (m *MemStore) ensureNode(n Node) {
	id := n.ID()
	if _, ok := m.nodes[n.Label][id]; !ok {
		m.nodes[n.Label][id] = n
	}
}

// GetNode returns the node for the given label and ID, or nil if not found.
func (m *MemStore) GetNode(_ context.Context, label Label, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[label][id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// HasEdge reports whether the edge exists.
func (m *MemStore) HasEdge(_ context.Context, edge Edge) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.edges[edge.Type][keyOf(edge)]
	return ok, nil
}

// Nodes returns a copy of every node with the given label.
func (m *MemStore) Nodes(label Label) []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.nodes[label]))
	for _, n := range m.nodes[label] {
		out = append(out, n)
	}
	return out
}

// Edges returns a copy of every edge with the given type.
func (m *MemStore) Edges(t EdgeType) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, 0, len(m.edges[t]))
	for _, e := range m.edges[t] {
		out = append(out, e)
	}
	return out
}

// Stats returns counts of all node labels and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &GraphStats{
		Nodes: make(map[Label]int, len(m.nodes)),
		Edges: make(map[EdgeType]int, len(m.edges)),
	}
	for l, ns := range m.nodes {
		stats.Nodes[l] = len(ns)
	}
	for t, es := range m.edges {
		stats.Edges[t] = len(es)
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
