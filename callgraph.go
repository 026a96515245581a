package pointer

import (
	"fmt"

	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/yourbasic/graph"
)

// Edge is a context-qualified call edge.
type Edge struct {
	Kind     ir.CallKind
	CallSite *CSCallSite
	Callee   *CSMethod
}

func (e Edge) String() string {
	return fmt.Sprintf("[%v] %v -> %v", e.Kind, e.CallSite, e.Callee)
}

// CallGraph is the context-sensitive call graph built on the fly during the
// analysis. Edges are added at most once and never removed.
type CallGraph struct {
	entries   []*CSMethod
	reachable map[*CSMethod]bool
	order     []*CSMethod

	edges     map[Edge]bool
	edgeList  []Edge
	callees   map[*CSCallSite][]*CSMethod
	callers   map[*CSMethod][]*CSCallSite
	callSites map[*CSMethod][]*CSCallSite
}

func newCallGraph() *CallGraph {
	return &CallGraph{
		reachable: make(map[*CSMethod]bool),
		edges:     make(map[Edge]bool),
		callees:   make(map[*CSCallSite][]*CSMethod),
		callers:   make(map[*CSMethod][]*CSCallSite),
		callSites: make(map[*CSMethod][]*CSCallSite),
	}
}

func (cg *CallGraph) addEntry(m *CSMethod) {
	cg.entries = append(cg.entries, m)
}

// addReachable reports whether m was not reachable before.
func (cg *CallGraph) addReachable(m *CSMethod) bool {
	if cg.reachable[m] {
		return false
	}
	cg.reachable[m] = true
	cg.order = append(cg.order, m)
	return true
}

// addEdge reports whether e is new.
func (cg *CallGraph) addEdge(e Edge) bool {
	if cg.edges[e] {
		return false
	}
	cg.edges[e] = true
	cg.edgeList = append(cg.edgeList, e)
	if len(cg.callees[e.CallSite]) == 0 {
		caller := e.CallSite.Container
		cg.callSites[caller] = append(cg.callSites[caller], e.CallSite)
	}
	cg.callees[e.CallSite] = append(cg.callees[e.CallSite], e.Callee)
	cg.callers[e.Callee] = append(cg.callers[e.Callee], e.CallSite)
	return true
}

// Entries returns the entry methods.
func (cg *CallGraph) Entries() []*CSMethod { return cg.entries }

// ReachableMethods returns the reachable methods in discovery order.
func (cg *CallGraph) ReachableMethods() []*CSMethod { return cg.order }

func (cg *CallGraph) IsReachable(m *CSMethod) bool { return cg.reachable[m] }

// Edges returns all call edges in insertion order.
func (cg *CallGraph) Edges() []Edge { return cg.edgeList }

func (cg *CallGraph) CalleesOf(cs *CSCallSite) []*CSMethod { return cg.callees[cs] }

func (cg *CallGraph) CallersOf(m *CSMethod) []*CSCallSite { return cg.callers[m] }

// CallSitesIn returns the call sites of m that have at least one callee.
func (cg *CallGraph) CallSitesIn(m *CSMethod) []*CSCallSite { return cg.callSites[m] }

// Project returns the context-insensitive call graph: the set of possible
// callees of every call site, in discovery order.
func (cg *CallGraph) Project() map[*ir.Invoke][]*ir.Method {
	res := make(map[*ir.Invoke][]*ir.Method)
	seen := make(map[*ir.Invoke]map[*ir.Method]bool)
	for _, e := range cg.edgeList {
		call, callee := e.CallSite.CallSite, e.Callee.Method
		if seen[call] == nil {
			seen[call] = make(map[*ir.Method]bool)
		}
		if !seen[call][callee] {
			seen[call][callee] = true
			res[call] = append(res[call], callee)
		}
	}
	return res
}

// iterator exposes the reachable part of the call graph as a
// graph.Iterator. Vertices are indices into cg.order.
type iterator struct {
	cg    *CallGraph
	index map[*CSMethod]int
}

func (it iterator) Order() int { return len(it.cg.order) }

func (it iterator) Visit(v int, do func(w int, c int64) bool) bool {
	for _, cs := range it.cg.callSites[it.cg.order[v]] {
		for _, callee := range it.cg.callees[cs] {
			if do(it.index[callee], 0) {
				return true
			}
		}
	}
	return false
}

// RecursiveComponents returns the sets of mutually recursive methods: the
// strongly connected components with more than one method, and the single
// methods that call themselves.
func (cg *CallGraph) RecursiveComponents() [][]*CSMethod {
	it := iterator{cg, make(map[*CSMethod]int, len(cg.order))}
	for i, m := range cg.order {
		it.index[m] = i
	}

	var res [][]*CSMethod
	for _, comp := range graph.StrongComponents(it) {
		if len(comp) == 1 && !cg.callsItself(cg.order[comp[0]]) {
			continue
		}
		ms := make([]*CSMethod, len(comp))
		for i, v := range comp {
			ms[i] = cg.order[v]
		}
		res = append(res, ms)
	}
	return res
}

func (cg *CallGraph) callsItself(m *CSMethod) bool {
	for _, cs := range cg.callSites[m] {
		for _, callee := range cg.callees[cs] {
			if callee == m {
				return true
			}
		}
	}
	return false
}
