package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/dusk-indust/structgraph/internal/graph"
)

var (
	errConnRefused = errors.New("connection refused")
	errTransient   = errors.New("transaction conflict")
)

// downStore fails every Ping.
type downStore struct{ graph.Store }

func (downStore) Ping(context.Context) error { return errConnRefused }

// panicStore panics on Ping.
type panicStore struct{ graph.Store }

func (panicStore) Ping(context.Context) error { panic("driver crashed") }

// flakyStore wraps a MemStore and fails the first failN writes (node or
// edge). With failN < 0 every write fails.
type flakyStore struct {
	*graph.MemStore

	mu       sync.Mutex
	failN    int
	attempts int
}

func newFlakyStore(failN int) *flakyStore {
	return &flakyStore{MemStore: graph.NewMemStore(), failN: failN}
}

func (s *flakyStore) fail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failN < 0 {
		return true
	}
	if s.failN > 0 {
		s.failN--
		return true
	}
	return false
}

func (s *flakyStore) UpsertNode(ctx context.Context, n graph.Node) error {
	if s.fail() {
		return errTransient
	}
	return s.MemStore.UpsertNode(ctx, n)
}

func (s *flakyStore) UpsertEdge(ctx context.Context, e graph.Edge) error {
	if s.fail() {
		return errTransient
	}
	return s.MemStore.UpsertEdge(ctx, e)
}
