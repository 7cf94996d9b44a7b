//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), ErrUnavailable)
}

func TestKuzuStore_FileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	file := NewFileNode("internal/graph/kuzustore.go", LangGo)
	require.NoError(t, s.UpsertNode(ctx, FileRef(file)))

	got, err := s.GetNode(ctx, LabelFile, file.Path)
	require.NoError(t, err)
	require.NotNil(t, got, "GetNode should return a non-nil result")

	assert.Equal(t, file.Path, got.Get("path"))
	assert.Equal(t, "kuzustore.go", got.Get("name"))
	assert.Equal(t, "go", got.Get("language"))
}

func TestKuzuStore_GetNode_NotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetNode(context.Background(), LabelFunction, "nope.py#missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKuzuStore_GetNode_UnknownLabel(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNode(context.Background(), Label("Module"), "x")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestKuzuStore_UpsertNode_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fn := FunctionRef(FunctionNode{Name: "helper", File: "a.py"})
	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertNode(ctx, fn))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes[LabelFunction])
}

func TestKuzuStore_UpsertNode_UpdatesAttrs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertNode(ctx, ClassRef(ClassNode{Name: "Svc", File: "svc.py", Bases: []string{"Base"}})))
	require.NoError(t, s.UpsertNode(ctx, ClassRef(ClassNode{Name: "Svc", File: "svc.py", Bases: []string{"Base", "Mixin"}})))

	got, err := s.GetNode(ctx, LabelClass, "svc.py#Svc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Base,Mixin", got.Get("bases"))
}

func TestKuzuStore_UpsertEdge_CreatesEndpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edge := Edge{
		Type: EdgeCalls,
		From: FunctionRef(FunctionNode{Name: "main", File: "b.py"}),
		To:   FunctionRef(FunctionNode{Name: "helper", File: "a.py"}),
	}
	require.NoError(t, s.UpsertEdge(ctx, edge))
	require.NoError(t, s.UpsertEdge(ctx, edge))

	ok, err := s.HasEdge(ctx, edge)
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Nodes[LabelFunction])
	assert.Equal(t, 1, stats.Edges[EdgeCalls])
}

func TestKuzuStore_UpsertEdge_KeepsExistingEndpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertNode(ctx, FileRef(NewFileNode("pkg/util.py", LangPython))))

	// The edge only knows the target by path; the stored language must survive.
	require.NoError(t, s.UpsertEdge(ctx, Edge{
		Type: EdgeImports,
		From: FileRef(NewFileNode("pkg/mod.py", LangPython)),
		To:   FilePathRef("pkg/util.py"),
	}))

	got, err := s.GetNode(ctx, LabelFile, "pkg/util.py")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "python", got.Get("language"))
}

func TestKuzuStore_UpsertEdge_MultiPairTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	file := FileRef(NewFileNode("m.py", LangPython))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Type: EdgeDefinedIn, From: FunctionRef(FunctionNode{Name: "f", File: "m.py"}), To: file}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Type: EdgeDefinedIn, From: ClassRef(ClassNode{Name: "C", File: "m.py"}), To: file}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Edges[EdgeDefinedIn])
	assert.Equal(t, 1, stats.Nodes[LabelFile])
}

func TestKuzuStore_UpsertEdge_Invalid(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertEdge(context.Background(), Edge{
		Type: EdgeCalls,
		From: FilePathRef("a.py"),
		To:   FunctionRef(FunctionNode{Name: "f", File: "a.py"}),
	})
	assert.ErrorIs(t, err, ErrInvalidEdge)
}

func TestKuzuStore_FileStorePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "graph", "db")
	ctx := context.Background()

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.UpsertNode(ctx, FunctionRef(FunctionNode{Name: "run", File: "x.go"})))
	require.NoError(t, s.Close())

	s, err = OpenKuzu(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(ctx))

	got, err := s.GetNode(ctx, LabelFunction, "x.go#run")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run", got.Get("name"))
}
