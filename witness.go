package pointer

import (
	"math"

	"github.com/BarrensZeppelin/cspta/taint"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// carriesTaintFrom returns the pointers among ps whose points-to set holds a
// taint object created at the source of f.
func (r *Result) carriesTaintFrom(ps []*CSVar, f taint.Flow) []*CSVar {
	var res []*CSVar
	for _, p := range ps {
		for _, o := range r.PointsToSet(p) {
			if o.Obj.SourceCall() == f.Source {
				res = append(res, p)
				break
			}
		}
	}
	return res
}

// FlowPath returns a shortest chain of pointers along which the taint of f
// travels from the result of the source call to the sink argument. The chain
// follows pointer flow graph edges and taint transfer edges. It returns false
// if f is not a flow of r.
func (r *Result) FlowPath(f taint.Flow) ([]Pointer, bool) {
	if f.Source == nil || f.Sink == nil || f.Source.Result == nil ||
		f.Index < 0 || f.Index >= len(f.Sink.Args) {
		return nil, false
	}

	starts := r.carriesTaintFrom(r.Contexts(f.Source.Result), f)
	targets := r.carriesTaintFrom(r.Contexts(f.Sink.Args[f.Index]), f)
	if len(starts) == 0 || len(targets) == 0 {
		return nil, false
	}
	for _, s := range starts {
		for _, t := range targets {
			if s == t {
				return []Pointer{s}, true
			}
		}
	}

	g := simple.NewDirectedGraph()
	for _, p := range r.csm.pointers {
		g.AddNode(simple.Node(p.pointer().id))
	}
	setEdge := func(src, dst Pointer) {
		u, v := src.pointer().id, dst.pointer().id
		if u != v {
			g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		}
	}
	for _, e := range r.PFGEdges() {
		setEdge(e[0], e[1])
	}
	if r.taint != nil {
		for _, p := range r.csm.pointers {
			if v, ok := p.(*CSVar); ok {
				for _, e := range r.taint.edges[v] {
					setEdge(e.from, e.to)
				}
			}
		}
	}

	// All starts hang off a synthetic root.
	root := simple.Node(len(r.csm.pointers))
	g.AddNode(root)
	for _, s := range starts {
		g.SetEdge(simple.Edge{F: root, T: simple.Node(s.id)})
	}

	shortest := path.DijkstraFrom(root, g)
	var best []graph.Node
	bestWeight := math.Inf(1)
	for _, t := range targets {
		if nodes, w := shortest.To(int64(t.id)); len(nodes) > 0 && w < bestWeight {
			best, bestWeight = nodes, w
		}
	}
	if best == nil {
		return nil, false
	}

	res := make([]Pointer, 0, len(best)-1)
	for _, n := range best[1:] {
		res = append(res, r.csm.pointers[n.ID()])
	}
	return res, true
}
