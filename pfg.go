package pointer

type pfgEdge struct {
	src, dst Pointer
}

// pointerFlowGraph records that points-to facts flow from one pointer to
// another. Edges are never removed.
type pointerFlowGraph struct {
	edges map[pfgEdge]struct{}
	succs map[Pointer][]Pointer
}

func newPointerFlowGraph() *pointerFlowGraph {
	return &pointerFlowGraph{
		edges: make(map[pfgEdge]struct{}),
		succs: make(map[Pointer][]Pointer),
	}
}

// addEdge adds src -> dst and reports whether the edge is new.
func (g *pointerFlowGraph) addEdge(src, dst Pointer) bool {
	e := pfgEdge{src, dst}
	if _, found := g.edges[e]; found {
		return false
	}
	g.edges[e] = struct{}{}
	g.succs[src] = append(g.succs[src], dst)
	return true
}

func (g *pointerFlowGraph) succsOf(p Pointer) []Pointer { return g.succs[p] }

func (g *pointerFlowGraph) numEdges() int { return len(g.edges) }
