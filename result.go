package pointer

import (
	"fmt"
	"sort"
	"time"

	"github.com/BarrensZeppelin/cspta/internal/maps"
	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/BarrensZeppelin/cspta/slices"
	"github.com/BarrensZeppelin/cspta/taint"
)

// Stats summarizes the work done by an analysis run.
type Stats struct {
	WorkItems        int
	PFGEdges         int
	CallEdges        int
	ReachableMethods int
	Pointers         int
	Objects          int
	Duration         time.Duration
}

type Result struct {
	Program   *ir.Program
	CallGraph *CallGraph

	// TaintFlows is sorted and free of duplicates. It is nil when no taint
	// configuration was given or the result is incomplete.
	TaintFlows []taint.Flow

	// Complete is false if the analysis stopped before reaching a fixpoint.
	Complete bool

	Stats Stats

	csm   *csManager
	pfg   *pointerFlowGraph
	taint *taintAnalysis
}

func (a *aContext) result(complete bool) *Result {
	r := &Result{
		Program:   a.prog,
		CallGraph: a.cg,
		Complete:  complete,
		Stats: Stats{
			WorkItems:        a.steps,
			PFGEdges:         a.pfg.numEdges(),
			CallEdges:        len(a.cg.edgeList),
			ReachableMethods: len(a.cg.order),
			Pointers:         len(a.csm.pointers),
			Objects:          len(a.csm.objList),
		},
		csm:   a.csm,
		pfg:   a.pfg,
		taint: a.taint,
	}
	if complete && a.taint != nil {
		r.TaintFlows = a.taint.collectFlows()
	}
	return r
}

// CSVar returns the pointer of v in context ctx, or nil if the analysis
// never saw v in that context.
func (r *Result) CSVar(ctx Context, v *ir.Var) *CSVar {
	return r.csm.vars[varKey{ctx, v}]
}

// Contexts returns the pointers of v in all contexts it was analyzed in.
func (r *Result) Contexts(v *ir.Var) []*CSVar {
	return r.csm.varContexts[v]
}

// PointsToSet returns the objects p may point to.
func (r *Result) PointsToSet(p Pointer) []*CSObj {
	return r.csm.objects(&p.pointer().pts)
}

// PointsTo returns the objects v may point to in context ctx.
func (r *Result) PointsTo(ctx Context, v *ir.Var) []*CSObj {
	if p := r.CSVar(ctx, v); p != nil {
		return r.PointsToSet(p)
	}
	return nil
}

// VarPointsTo returns the abstract objects v may point to in any context.
func (r *Result) VarPointsTo(v *ir.Var) []*Obj {
	var objs []*CSObj
	for _, p := range r.Contexts(v) {
		objs = append(objs, r.PointsToSet(p)...)
	}
	return projectContexts(objs)
}

// StaticFieldPointsTo returns the objects the static field f may point to.
func (r *Result) StaticFieldPointsTo(f *ir.Field) []*CSObj {
	if p, ok := r.csm.staticFields[f]; ok {
		return r.PointsToSet(p)
	}
	return nil
}

// InstanceFieldPointsTo returns the objects field f of base may point to.
func (r *Result) InstanceFieldPointsTo(base *CSObj, f *ir.Field) []*CSObj {
	if p, ok := r.csm.instanceFields[fieldKey{base, f}]; ok {
		return r.PointsToSet(p)
	}
	return nil
}

// ArrayPointsTo returns the objects the elements of array may point to.
func (r *Result) ArrayPointsTo(array *CSObj) []*CSObj {
	if p, ok := r.csm.arrayIndexes[array]; ok {
		return r.PointsToSet(p)
	}
	return nil
}

// MayAlias reports whether the points-to sets of p and q intersect.
func (r *Result) MayAlias(p, q Pointer) bool {
	return p.pointer().pts.Intersects(&q.pointer().pts.Sparse)
}

// Successors returns the pointers that p flows to.
func (r *Result) Successors(p Pointer) []Pointer {
	return r.pfg.succsOf(p)
}

// Pointers returns all pointers in creation order.
func (r *Result) Pointers() []Pointer { return r.csm.pointers }

// PFGEdges returns the edges of the pointer flow graph as (source, target)
// pairs, grouped by source in creation order.
func (r *Result) PFGEdges() [][2]Pointer {
	var res [][2]Pointer
	for _, p := range r.csm.pointers {
		for _, s := range r.pfg.succsOf(p) {
			res = append(res, [2]Pointer{p, s})
		}
	}
	return res
}

// IsReachable reports whether m is reachable in some context.
func (r *Result) IsReachable(m *ir.Method) bool {
	for _, cm := range r.CallGraph.order {
		if cm.Method == m {
			return true
		}
	}
	return false
}

// ReachableMethods returns the reachable methods without contexts, in
// discovery order.
func (r *Result) ReachableMethods() []*ir.Method {
	seen := make(map[*ir.Method]bool)
	var res []*ir.Method
	for _, cm := range r.CallGraph.order {
		if !seen[cm.Method] {
			seen[cm.Method] = true
			res = append(res, cm.Method)
		}
	}
	return res
}

// Snapshot renders the facts of r as sorted strings, keyed by the string of
// each pointer and call site. Two results of the same program and selector
// have equal snapshots iff they derived the same facts.
type Snapshot struct {
	PointsTo  map[string][]string
	CallEdges map[string][]string
	Reachable []string
	Flows     []string
}

func (r *Result) Snapshot() Snapshot {
	s := Snapshot{
		PointsTo:  make(map[string][]string),
		CallEdges: make(map[string][]string),
	}

	for _, p := range r.csm.pointers {
		objs := r.PointsToSet(p)
		if len(objs) == 0 {
			continue
		}
		strs := make([]string, len(objs))
		for i, o := range objs {
			strs[i] = o.String()
		}
		sort.Strings(strs)
		s.PointsTo[p.String()] = strs
	}

	for _, e := range r.CallGraph.edgeList {
		k := e.CallSite.String()
		s.CallEdges[k] = append(s.CallEdges[k], fmt.Sprintf("[%v] %v", e.Kind, e.Callee))
	}
	for _, k := range maps.SortedKeys(s.CallEdges) {
		sort.Strings(s.CallEdges[k])
	}

	for _, m := range r.CallGraph.order {
		s.Reachable = append(s.Reachable, m.String())
	}
	sort.Strings(s.Reachable)

	for _, f := range r.TaintFlows {
		s.Flows = append(s.Flows, f.String())
	}
	return s
}

// Covers reports whether every fact of o is also a fact of s.
func (s Snapshot) Covers(o Snapshot) bool {
	covers := func(a, b map[string][]string) bool {
		for k, objs := range b {
			if !slices.Subset(objs, a[k]) {
				return false
			}
		}
		return true
	}
	return covers(s.PointsTo, o.PointsTo) &&
		covers(s.CallEdges, o.CallEdges) &&
		slices.Subset(o.Reachable, s.Reachable) &&
		slices.Subset(o.Flows, s.Flows)
}

// Diff lists the differences between s and o, one line per fact present in
// only one of them.
func (s Snapshot) Diff(o Snapshot) []string {
	var res []string
	diffMap := func(what string, a, b map[string][]string) {
		keys := maps.SortedKeys(a)
		for _, k := range maps.SortedKeys(b) {
			if _, ok := a[k]; !ok {
				keys = append(keys, k)
			}
		}
		for _, k := range keys {
			if fmt.Sprint(a[k]) != fmt.Sprint(b[k]) {
				res = append(res, fmt.Sprintf("%s %s: %v vs %v", what, k, a[k], b[k]))
			}
		}
	}
	diffMap("points-to", s.PointsTo, o.PointsTo)
	diffMap("callees", s.CallEdges, o.CallEdges)
	if fmt.Sprint(s.Reachable) != fmt.Sprint(o.Reachable) {
		res = append(res, fmt.Sprintf("reachable: %v vs %v", s.Reachable, o.Reachable))
	}
	if fmt.Sprint(s.Flows) != fmt.Sprint(o.Flows) {
		res = append(res, fmt.Sprintf("flows: %v vs %v", s.Flows, o.Flows))
	}
	return res
}
