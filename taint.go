package pointer

import (
	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/BarrensZeppelin/cspta/taint"
	"github.com/sirupsen/logrus"
)

type transferRule struct {
	from, to taint.Position
	// nil keeps the type of the transferred taint object
	typ ir.Type
}

type transferEdge struct {
	from, to *CSVar
	typ      ir.Type
}

// taintAnalysis tracks taint objects on top of the points-to analysis.
// Taint objects are created at source calls and move along the pointer flow
// graph like other objects. Transfer edges only let taint objects through.
type taintAnalysis struct {
	a *aContext

	sources   map[*ir.Method][]ir.Type
	sinks     map[*ir.Method][]int
	transfers map[*ir.Method][]transferRule

	edges   map[*CSVar][]transferEdge
	edgeSet map[transferEdge]bool

	log *logrus.Entry
}

func newTaintAnalysis(a *aContext, config *taint.Config) *taintAnalysis {
	t := &taintAnalysis{
		a:         a,
		sources:   make(map[*ir.Method][]ir.Type),
		sinks:     make(map[*ir.Method][]int),
		transfers: make(map[*ir.Method][]transferRule),
		edges:     make(map[*CSVar][]transferEdge),
		edgeSet:   make(map[transferEdge]bool),
		log:       a.log.WithField("component", "taint"),
	}

	prog := a.prog
	resolve := func(kind, sig, typ string) (*ir.Method, ir.Type, bool) {
		log := t.log.WithFields(logrus.Fields{"rule": kind, "method": sig})
		m := prog.LookupMethod(sig)
		if m == nil {
			log.Warn("taint rule refers to an unknown method")
			return nil, nil, false
		}
		if typ == "" {
			return m, nil, true
		}
		ty, ok := prog.LookupType(typ)
		if !ok {
			log.WithField("type", typ).Warn("taint rule refers to an unknown type")
			return nil, nil, false
		}
		return m, ty, true
	}

	for _, s := range config.Sources {
		if m, ty, ok := resolve("source", s.Method, s.Type); ok {
			t.sources[m] = append(t.sources[m], ty)
		}
	}
	for _, s := range config.Sinks {
		if m, _, ok := resolve("sink", s.Method, ""); ok {
			t.sinks[m] = append(t.sinks[m], s.Index)
		}
	}
	for _, tr := range config.Transfers {
		if m, ty, ok := resolve("transfer", tr.Method, tr.Type); ok {
			t.transfers[m] = append(t.transfers[m], transferRule{tr.From, tr.To, ty})
		}
	}
	return t
}

func (t *taintAnalysis) makeTaint(source *ir.Invoke, typ ir.Type) *CSObj {
	obj := t.a.heap.getTaintObj(source, typ)
	return t.a.csm.getCSObj(t.a.selector.EmptyContext(), obj)
}

// pointerAt returns the variable at position pos of the call site, or nil if
// the call has no such position.
func (t *taintAnalysis) pointerAt(cs *CSCallSite, pos taint.Position) *CSVar {
	call := cs.CallSite
	var v *ir.Var
	switch {
	case pos == taint.Base:
		v = call.Base
	case pos == taint.Result:
		v = call.Result
	case int(pos) < len(call.Args):
		v = call.Args[pos]
	}
	if v == nil {
		return nil
	}
	return t.a.csVar(cs.Context, v)
}

func (t *taintAnalysis) onNewCallEdge(e Edge) {
	cs, callee := e.CallSite, e.Callee.Method
	call := cs.CallSite

	if call.Result != nil {
		for _, typ := range t.sources[callee] {
			if callee.ReturnType != typ {
				continue
			}
			t.a.addWork(t.a.csVar(cs.Context, call.Result), singleton(t.makeTaint(call, typ)))
		}
	}

	for _, rule := range t.transfers[callee] {
		from, to := t.pointerAt(cs, rule.from), t.pointerAt(cs, rule.to)
		if from == nil || to == nil {
			t.log.WithFields(logrus.Fields{
				"callsite": call,
				"from":     rule.from,
				"to":       rule.to,
			}).Debug("transfer rule does not fit call site")
			continue
		}
		t.addTransferEdge(transferEdge{from, to, rule.typ})
	}
}

func (t *taintAnalysis) addTransferEdge(e transferEdge) {
	if t.edgeSet[e] {
		return
	}
	t.edgeSet[e] = true
	t.edges[e.from] = append(t.edges[e.from], e)

	if pts := &e.from.pts; !pts.IsEmpty() {
		t.transfer(pts, e)
	}
}

func (t *taintAnalysis) onNewPointsTo(p Pointer, diff *pointsToSet) {
	v, ok := p.(*CSVar)
	if !ok {
		return
	}
	for _, e := range t.edges[v] {
		t.transfer(diff, e)
	}
}

// transfer sends the taint objects of pts across e, retyped if e has a type.
func (t *taintAnalysis) transfer(pts *pointsToSet, e transferEdge) {
	out := new(pointsToSet)
	for _, o := range t.a.csm.objects(pts) {
		if !o.Obj.IsTaint() {
			continue
		}
		typ := e.typ
		if typ == nil {
			typ = o.Obj.Type()
		}
		out.Insert(t.makeTaint(o.Obj.SourceCall(), typ).id)
	}
	if !out.IsEmpty() {
		t.a.addWork(e.to, out)
	}
}

// collectFlows reports the taint objects reaching sink arguments.
func (t *taintAnalysis) collectFlows() []taint.Flow {
	seen := make(map[taint.Flow]bool)
	var flows []taint.Flow
	for _, e := range t.a.cg.Edges() {
		call := e.CallSite.CallSite
		for _, idx := range t.sinks[e.Callee.Method] {
			if idx >= len(call.Args) {
				continue
			}
			arg, ok := t.a.csm.vars[varKey{e.CallSite.Context, call.Args[idx]}]
			if !ok {
				continue
			}
			for _, o := range t.a.csm.objects(&arg.pts) {
				if !o.Obj.IsTaint() {
					continue
				}
				f := taint.Flow{Source: o.Obj.SourceCall(), Sink: call, Index: idx}
				if !seen[f] {
					seen[f] = true
					flows = append(flows, f)
				}
			}
		}
	}
	taint.SortFlows(flows)
	return flows
}
