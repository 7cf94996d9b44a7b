package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/structgraph/internal/graph"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func TestWriter_RetriesTransientFailure(t *testing.T) {
	store := newFlakyStore(2)
	report := NewReport("test")
	w := NewWriter(store, fastRetry, report, nil)

	err := w.WriteFile(context.Background(), graph.NewFileNode("a.py", graph.LangPython))
	require.NoError(t, err)
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, 1, report.Writes)
	assert.Zero(t, report.WriteFailures)
	assert.Len(t, store.Nodes(graph.LabelFile), 1)
}

func TestWriter_GivesUpAfterMaxAttempts(t *testing.T) {
	store := newFlakyStore(-1)
	report := NewReport("test")
	w := NewWriter(store, fastRetry, report, nil)

	err := w.WriteFile(context.Background(), graph.NewFileNode("a.py", graph.LangPython))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, 1, report.WriteFailures)
	assert.Zero(t, report.Writes)
}

func TestWriter_InvalidEdgeNotRetried(t *testing.T) {
	store := graph.NewMemStore()
	report := NewReport("test")
	w := NewWriter(store, fastRetry, report, nil)

	err := w.edge(context.Background(), graph.Edge{
		Type: graph.EdgeCalls,
		From: graph.FilePathRef("a.py"),
		To:   graph.FilePathRef("b.py"),
	})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, graph.ErrInvalidEdge)
	assert.Equal(t, 1, report.WriteFailures)
}

func TestWriter_CancelledDuringBackoff(t *testing.T) {
	store := newFlakyStore(-1)
	w := NewWriter(store, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, NewReport("test"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.WriteFile(ctx, graph.NewFileNode("a.py", graph.LangPython))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, 1, store.attempts)
}

func TestWriter_CompositeWrites(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	report := NewReport("test")
	w := NewWriter(store, fastRetry, report, nil)

	require.NoError(t, w.WriteFile(ctx, graph.NewFileNode("zoo.py", graph.LangPython)))
	require.NoError(t, w.WriteClass(ctx, graph.ClassNode{Name: "Dog", File: "zoo.py", Bases: []string{"Animal"}}))
	require.NoError(t, w.WriteFunction(ctx, graph.FunctionNode{Name: "bark", File: "zoo.py"}))
	require.NoError(t, w.WriteEndpoint(ctx, graph.EndpointNode{Name: "bark", File: "zoo.py", Method: graph.MethodGet}))

	dog := graph.ClassRef(graph.ClassNode{Name: "Dog", File: "zoo.py", Bases: []string{"Animal"}})
	bark := graph.FunctionRef(graph.FunctionNode{Name: "bark", File: "zoo.py"})
	file := graph.FilePathRef("zoo.py")

	for _, e := range []graph.Edge{
		{Type: graph.EdgeDefinedIn, From: dog, To: file},
		{Type: graph.EdgeDefinedIn, From: bark, To: file},
		{Type: graph.EdgeExtends, From: dog, To: graph.ClassRef(graph.ClassNode{Name: "Animal", File: graph.UnknownFile})},
		{Type: graph.EdgeHandledBy, From: graph.EndpointRef(graph.EndpointNode{Name: "bark", File: "zoo.py", Method: graph.MethodGet}), To: bark},
	} {
		ok, err := store.HasEdge(ctx, e)
		require.NoError(t, err)
		assert.True(t, ok, e.String())
	}

	// The File node keeps the language written by WriteFile.
	files := store.Nodes(graph.LabelFile)
	require.Len(t, files, 1)
	assert.Equal(t, "python", files[0].Get("language"))
	assert.Zero(t, report.WriteFailures)
}
