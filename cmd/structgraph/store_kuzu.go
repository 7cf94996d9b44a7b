//go:build cgo

package main

import "github.com/dusk-indust/structgraph/internal/graph"

// openStore opens (or creates) the Kuzu graph at path. An empty path or
// graph.MemoryPath gives a throwaway in-memory graph.
func openStore(path string) (graph.Store, error) {
	s, err := graph.OpenKuzu(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
