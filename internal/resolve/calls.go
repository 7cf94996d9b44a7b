package resolve

import "github.com/dusk-indust/structgraph/internal/graph"

// CallResolution holds the edges derived from a file's call sites.
type CallResolution struct {
	Calls  []graph.CallEdge
	UsedIn []graph.UsedInEdge
}

// ResolveCalls resolves each call site's callee through table, falling back
// to the calling file when the name is not defined anywhere. A CallEdge is
// produced only when the caller is known; every site produces a UsedInEdge
// from the callee to the calling file.
func ResolveCalls(sites []graph.CallSite, table *SymbolTable) CallResolution {
	var res CallResolution
	for _, s := range sites {
		if s.Callee == "" {
			continue
		}
		file, ok := table.Lookup(s.Callee)
		if !ok {
			file = s.CallerFile
		}
		callee := graph.FunctionNode{Name: s.Callee, File: file}

		if s.Caller != "" {
			res.Calls = append(res.Calls, graph.CallEdge{
				Caller: graph.FunctionNode{Name: s.Caller, File: s.CallerFile},
				Callee: callee,
			})
		}
		res.UsedIn = append(res.UsedIn, graph.UsedInEdge{Function: callee, File: s.CallerFile})
	}
	return res
}

// ExtendsEdges links a class to each of its bases. Bases are known by name
// only, so the parent carries the UnknownFile sentinel.
func ExtendsEdges(c graph.ClassNode) []graph.ExtendsEdge {
	out := make([]graph.ExtendsEdge, 0, len(c.Bases))
	for _, b := range c.Bases {
		if b == "" {
			continue
		}
		out = append(out, graph.ExtendsEdge{
			Child:  c,
			Parent: graph.ClassNode{Name: b, File: graph.UnknownFile},
		})
	}
	return out
}
