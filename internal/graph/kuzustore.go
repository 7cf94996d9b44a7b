//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
//
// Every upsert is a single MERGE statement executed on one connection under
// a mutex, so each is atomic with respect to other writers in the process.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// MemoryPath selects an in-memory KuzuDB in OpenKuzu.
const MemoryPath = ":memory:"

// OpenKuzu opens a file-backed store at dbPath, or an in-memory store when
// dbPath is MemoryPath or empty.
func OpenKuzu(dbPath string) (*KuzuStore, error) {
	if dbPath == "" || dbPath == MemoryPath {
		return NewKuzuStore()
	}
	return NewKuzuFileStore(dbPath)
}

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(MemoryPath)
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w: %w", dbPath, ErrUnavailable, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w: %w", ErrUnavailable, err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// nodeColumns lists the non-id columns of each node table. Key columns come
// first, in the order Node.Keys uses them.
var nodeColumns = map[Label][]string{
	LabelFile:     {"path", "name", "language"},
	LabelFunction: {"file", "name"},
	LabelClass:    {"file", "name", "bases"},
	LabelEndpoint: {"file", "name", "method"},
}

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		id STRING,
		path STRING,
		name STRING,
		language STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Function(
		id STRING,
		file STRING,
		name STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Class(
		id STRING,
		file STRING,
		name STRING,
		bases STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Endpoint(
		id STRING,
		file STRING,
		name STRING,
		method STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEFINED_IN(FROM Function TO File, FROM Class TO File)`,
	`CREATE REL TABLE IF NOT EXISTS HANDLED_BY(FROM Endpoint TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(FROM File TO File)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM Function TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS USED_IN(FROM Function TO File)`,
	`CREATE REL TABLE IF NOT EXISTS EXTENDS(FROM Class TO Class)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Ping runs a trivial query to verify the connection.
func (s *KuzuStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("kuzu: ping: %w: store closed", ErrUnavailable)
	}
	res, err := s.conn.Query("RETURN 1")
	if err != nil {
		return fmt.Errorf("kuzu: ping: %w: %w", ErrUnavailable, err)
	}
	res.Close()
	return nil
}

// ---------- Write operations ----------

// UpsertNode merges the node by id, setting every column on create and the
// non-key columns on match.
func (s *KuzuStore) UpsertNode(_ context.Context, node Node) error {
	if err := validateLabel(node.Label); err != nil {
		return err
	}
	params := map[string]any{}
	var sb strings.Builder
	writeMerge(&sb, "n", node, params)
	if sets := setList("n", node.Attrs); sets != "" {
		sb.WriteString(" ON MATCH SET ")
		sb.WriteString(sets)
	}
	return s.exec(sb.String(), params)
}

// UpsertEdge merges both endpoints (setting columns only when created) and
// then the relationship, all in one statement.
func (s *KuzuStore) UpsertEdge(_ context.Context, edge Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	params := map[string]any{}
	var sb strings.Builder
	writeMerge(&sb, "a", edge.From, params)
	sb.WriteString(" ")
	writeMerge(&sb, "b", edge.To, params)
	// Edge type is a fixed internal constant, not user input.
	fmt.Fprintf(&sb, " MERGE (a)-[:%s]->(b)", edge.Type)
	return s.exec(sb.String(), params)
}

// writeMerge appends "MERGE (v:Label {id: $v_id}) ON CREATE SET ..." and
// fills params with v-prefixed values.
func writeMerge(sb *strings.Builder, v string, n Node, params map[string]any) {
	params[v+"_id"] = n.ID()
	for _, p := range n.Keys {
		params[v+"_"+p.Name] = p.Value
	}
	for _, p := range n.Attrs {
		params[v+"_"+p.Name] = p.Value
	}
	fmt.Fprintf(sb, "MERGE (%s:%s {id: $%s_id})", v, n.Label, v)
	all := make([]Prop, 0, len(n.Keys)+len(n.Attrs))
	all = append(all, n.Keys...)
	all = append(all, n.Attrs...)
	if sets := setList(v, all); sets != "" {
		sb.WriteString(" ON CREATE SET ")
		sb.WriteString(sets)
	}
}

func setList(v string, props []Prop) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, fmt.Sprintf("%s.%s = $%s_%s", v, p.Name, v, p.Name))
	}
	return strings.Join(parts, ", ")
}

// ---------- Read operations ----------

// GetNode retrieves a node by label and id, or returns nil if not found.
func (s *KuzuStore) GetNode(_ context.Context, label Label, id string) (*Node, error) {
	cols, ok := nodeColumns[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	ret := make([]string, len(cols))
	for i, c := range cols {
		ret[i] = "n." + c
	}
	rows, err := s.query(
		fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN %s", label, strings.Join(ret, ", ")),
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToNode(label, rows[0]), nil
}

// HasEdge reports whether a relationship of the edge's type joins its
// endpoints.
func (s *KuzuStore) HasEdge(_ context.Context, edge Edge) (bool, error) {
	if err := edge.Validate(); err != nil {
		return false, err
	}
	rows, err := s.query(
		fmt.Sprintf("MATCH (a:%s {id: $a})-[r:%s]->(b:%s {id: $b}) RETURN count(r)",
			edge.From.Label, edge.Type, edge.To.Label),
		map[string]any{"a": edge.From.ID(), "b": edge.To.ID()},
	)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && toInt(rows[0][0]) > 0, nil
}

// rowToNode rebuilds a Node from a row in nodeColumns order. The number of
// key columns equals the number of keys the label's Ref constructor emits.
func rowToNode(label Label, r []any) *Node {
	cols := nodeColumns[label]
	nKeys := keyCount[label]
	n := &Node{Label: label}
	for i, c := range cols {
		p := Prop{Name: c, Value: toString(r[i])}
		if i < nKeys {
			n.Keys = append(n.Keys, p)
		} else {
			n.Attrs = append(n.Attrs, p)
		}
	}
	return n
}

var keyCount = map[Label]int{
	LabelFile:     1,
	LabelFunction: 2,
	LabelClass:    2,
	LabelEndpoint: 3,
}

// ---------- Stats ----------

// Stats returns counts of all node and relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	stats := &GraphStats{
		Nodes: make(map[Label]int, len(Labels)),
		Edges: make(map[EdgeType]int, len(EdgeTypes)),
	}
	for _, l := range Labels {
		// Table name is a fixed internal constant, not user input.
		n, err := s.count(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", l))
		if err != nil {
			return nil, err
		}
		stats.Nodes[l] = n
	}
	for _, t := range EdgeTypes {
		n, err := s.count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t))
		if err != nil {
			return nil, err
		}
		stats.Edges[t] = n
	}
	return stats, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
