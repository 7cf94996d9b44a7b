//go:build !cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/structgraph/internal/graph"
)

// openStore fails: the Kuzu driver needs cgo.
func openStore(path string) (graph.Store, error) {
	return nil, fmt.Errorf("open %s: %w: binary built without cgo", path, graph.ErrUnavailable)
}
