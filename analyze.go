package pointer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BarrensZeppelin/cspta/internal/queue"
	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/BarrensZeppelin/cspta/taint"
	"github.com/sirupsen/logrus"
)

// ErrIncomplete is wrapped by the error returned when the analysis stops
// before reaching a fixpoint, because its work budget was exhausted or its
// context was cancelled.
var ErrIncomplete = errors.New("analysis incomplete")

// Order is the discipline in which work items are processed. The computed
// result does not depend on it.
type Order int

const (
	FIFO Order = iota
	LIFO
)

func (o Order) String() string {
	if o == LIFO {
		return "lifo"
	}
	return "fifo"
}

// ParseOrder parses "fifo" or "lifo".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	}
	return 0, fmt.Errorf("unknown worklist order %q", s)
}

type AnalysisConfig struct {
	Program *ir.Program

	// Selector defaults to Insensitive().
	Selector ContextSelector

	// Taint enables the taint overlay when non-nil.
	Taint *taint.Config

	Order Order

	// When MaxWorkItems is positive, the analysis gives up after processing
	// that many work items.
	MaxWorkItems int

	// Logger defaults to a logger on stderr at warning level.
	Logger *logrus.Logger
}

// analysisError carries fail-fast errors out of the solver to Analyze.
type analysisError struct{ err error }

type workItem struct {
	p   Pointer
	pts *pointsToSet
}

type worklist interface {
	Push(workItem)
	Pop() workItem
	Empty() bool
	Len() int
}

type aContext struct {
	prog     *ir.Program
	selector ContextSelector

	heap *heapModel
	csm  *csManager
	pfg  *pointerFlowGraph
	cg   *CallGraph

	work    worklist
	methods queue.Queue[*CSMethod]

	taint *taintAnalysis

	log      *logrus.Entry
	steps    int
	maxSteps int
}

// Analyze computes the points-to sets and call graph of config.Program,
// starting from its entry method, and reports taint flows if a taint
// configuration is given.
//
// If the analysis is stopped early the returned error wraps ErrIncomplete,
// and the returned Result holds the facts derived so far. Taint flows are only
// collected for complete results.
func Analyze(ctx context.Context, config AnalysisConfig) (res *Result, err error) {
	prog := config.Program
	if prog == nil {
		return nil, errors.New("no program to analyze")
	}
	if prog.Entry() == nil {
		return nil, fmt.Errorf("%w: program has no entry method", ir.ErrMalformed)
	}
	if !prog.Finalized() {
		return nil, fmt.Errorf("%w: program is not finalized", ir.ErrMalformed)
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	a := &aContext{
		prog:     prog,
		selector: config.Selector,
		heap:     newHeapModel(),
		csm:      newCSManager(),
		pfg:      newPointerFlowGraph(),
		cg:       newCallGraph(),
		log:      logger.WithField("component", "solver"),
		maxSteps: config.MaxWorkItems,
	}
	if a.selector == nil {
		a.selector = Insensitive()
	}
	switch config.Order {
	case LIFO:
		a.work = new(queue.Stack[workItem])
	default:
		a.work = new(queue.Queue[workItem])
	}
	if config.Taint != nil {
		if err := config.Taint.Validate(); err != nil {
			return nil, err
		}
		a.taint = newTaintAnalysis(a, config.Taint)
	}

	defer func() {
		if r := recover(); r != nil {
			ae, ok := r.(analysisError)
			if !ok {
				panic(r)
			}
			res, err = nil, ae.err
		}
	}()

	start := time.Now()
	entry := a.csm.getCSMethod(a.selector.EmptyContext(), prog.Entry())
	a.cg.addEntry(entry)
	a.addReachable(entry)

	err = a.solve(ctx)

	res = a.result(err == nil)
	res.Stats.Duration = time.Since(start)
	a.log.WithFields(logrus.Fields{
		"selector":  a.selector,
		"workItems": res.Stats.WorkItems,
		"pfgEdges":  res.Stats.PFGEdges,
		"reachable": res.Stats.ReachableMethods,
		"complete":  res.Complete,
	}).Info("analysis finished")
	return res, err
}

func (a *aContext) fail(err error) {
	panic(analysisError{err})
}

func (a *aContext) solve(ctx context.Context) error {
	for {
		for !a.methods.Empty() {
			a.processMethod(a.methods.Pop())
		}

		if a.work.Empty() {
			return nil
		}

		if a.maxSteps > 0 && a.steps >= a.maxSteps {
			return fmt.Errorf("%w: budget of %d work items exhausted (%d pending)",
				ErrIncomplete, a.maxSteps, a.work.Len())
		}
		if a.steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrIncomplete, err)
			}
		}

		item := a.work.Pop()
		a.steps++
		a.process(item)
	}
}

func (a *aContext) addWork(p Pointer, pts *pointsToSet) {
	a.work.Push(workItem{p, pts})
}

func (a *aContext) csVar(ctx Context, v *ir.Var) *CSVar {
	return a.csm.getCSVar(ctx, v)
}

// addPFGEdge adds src -> dst to the pointer flow graph. Facts already known
// for src are sent to dst when the edge is new.
func (a *aContext) addPFGEdge(src, dst Pointer) {
	if !a.pfg.addEdge(src, dst) {
		return
	}

	if pts := &src.pointer().pts; !pts.IsEmpty() {
		cp := new(pointsToSet)
		cp.Copy(&pts.Sparse)
		a.addWork(dst, cp)
	}
}

func (a *aContext) addReachable(m *CSMethod) {
	if a.cg.addReachable(m) {
		a.methods.Push(m)
	}
}

// processMethod handles the statements of a newly reachable method.
// Statements that depend on the points-to set of a base variable are handled
// in process when new objects arrive.
func (a *aContext) processMethod(cm *CSMethod) {
	ctx := cm.Context
	for _, stmt := range cm.Method.Stmts() {
		switch s := stmt.(type) {
		case *ir.New:
			obj := a.heap.getObj(s)
			hctx := a.selector.SelectHeapContext(cm, obj)
			a.addWork(a.csVar(ctx, s.LValue), singleton(a.csm.getCSObj(hctx, obj)))

		case *ir.Copy:
			a.addPFGEdge(a.csVar(ctx, s.RValue), a.csVar(ctx, s.LValue))

		case *ir.LoadField:
			if s.IsStatic() {
				a.addPFGEdge(a.csm.getStaticField(s.Field), a.csVar(ctx, s.LValue))
			}

		case *ir.StoreField:
			if s.IsStatic() {
				a.addPFGEdge(a.csVar(ctx, s.RValue), a.csm.getStaticField(s.Field))
			}

		case *ir.Invoke:
			switch s.Kind {
			case ir.CallStatic:
				a.processStaticCall(cm, s)
			case ir.CallDynamic:
				a.log.WithField("callsite", s).Debug("ignoring dynamic invocation")
			}

		case *ir.LoadArray, *ir.StoreArray, *ir.Return, *ir.Nop:

		default:
			a.log.Panicf("unexpected statement: %T %v", s, s)
		}
	}
}

func (a *aContext) processStaticCall(cm *CSMethod, call *ir.Invoke) {
	callee := a.prog.ResolveCallee(nil, call)
	if callee == nil {
		a.log.WithField("callsite", call).Debug("no target for static call")
		return
	}

	cs := a.csm.getCSCallSite(cm.Context, call)
	calleeCtx := a.selector.SelectContext(cs, callee)
	a.addCallEdge(Edge{call.Kind, cs, a.csm.getCSMethod(calleeCtx, callee)})
}

// process propagates the facts of a work item and handles the accesses and
// calls rooted at a variable whose points-to set grew.
func (a *aContext) process(item workItem) {
	diff := a.propagate(item.p, item.pts)
	if diff == nil {
		return
	}

	if a.taint != nil {
		a.taint.onNewPointsTo(item.p, diff)
	}

	v, ok := item.p.(*CSVar)
	if !ok {
		return
	}

	ctx := v.Context
	for _, o := range a.csm.objects(diff) {
		for _, load := range v.Var.LoadFields() {
			a.addPFGEdge(a.csm.getInstanceField(o, load.Field), a.csVar(ctx, load.LValue))
		}
		for _, store := range v.Var.StoreFields() {
			a.addPFGEdge(a.csVar(ctx, store.RValue), a.csm.getInstanceField(o, store.Field))
		}
		for _, load := range v.Var.LoadArrays() {
			a.addPFGEdge(a.csm.getArrayIndex(o), a.csVar(ctx, load.LValue))
		}
		for _, store := range v.Var.StoreArrays() {
			a.addPFGEdge(a.csVar(ctx, store.RValue), a.csm.getArrayIndex(o))
		}
		a.processCall(v, o)
	}
}

// propagate adds pts to the points-to set of p and forwards the objects that
// were not already there to the successors of p. It returns those objects,
// or nil if there were none.
func (a *aContext) propagate(p Pointer, pts *pointsToSet) *pointsToSet {
	cur := &p.pointer().pts
	diff := new(pointsToSet)
	diff.Difference(&pts.Sparse, &cur.Sparse)
	if diff.IsEmpty() {
		return nil
	}

	cur.UnionWith(&diff.Sparse)
	for _, succ := range a.pfg.succsOf(p) {
		a.addWork(succ, diff)
	}
	return diff
}

// processCall dispatches the instance calls on recv for the receiver object
// o.
func (a *aContext) processCall(recv *CSVar, o *CSObj) {
	for _, call := range recv.Var.Invokes() {
		log := a.log.WithField("callsite", call)
		if !a.prog.IsSubtype(o.Obj.Type(), call.Ref.Class) {
			log.WithField("receiver", o).Debug("receiver type does not match the call")
			continue
		}

		callee := a.prog.ResolveCallee(o.Obj.Type(), call)
		if callee == nil || callee.Static {
			log.WithField("receiver", o).Debug("no target for call")
			continue
		}

		cs := a.csm.getCSCallSite(recv.Context, call)
		calleeCtx := a.selector.SelectInstanceContext(cs, o, callee)
		cm := a.csm.getCSMethod(calleeCtx, callee)

		// The receiver is bound even when the edge exists: another receiver
		// object may have selected the same callee context.
		a.addWork(a.csVar(calleeCtx, callee.This), singleton(o))
		a.addCallEdge(Edge{call.Kind, cs, cm})
	}
}

// addCallEdge records a call edge. For new edges the callee becomes reachable
// and arguments and return values are connected.
func (a *aContext) addCallEdge(e Edge) {
	if !a.cg.addEdge(e) {
		return
	}
	a.addReachable(e.Callee)

	call, callee := e.CallSite.CallSite, e.Callee.Method
	callerCtx, calleeCtx := e.CallSite.Context, e.Callee.Context
	if len(call.Args) != len(callee.Params) {
		a.fail(fmt.Errorf("%w: %v passes %d arguments to %v which takes %d",
			ir.ErrMalformed, call, len(call.Args), callee, len(callee.Params)))
	}

	for i, arg := range call.Args {
		if param := callee.Params[i]; PointerLike(param.Type) {
			a.addPFGEdge(a.csVar(callerCtx, arg), a.csVar(calleeCtx, param))
		}
	}

	if call.Result != nil && PointerLike(call.Result.Type) {
		res := a.csVar(callerCtx, call.Result)
		for _, rv := range callee.ReturnVars() {
			a.addPFGEdge(a.csVar(calleeCtx, rv), res)
		}
	}

	if a.taint != nil {
		a.taint.onNewCallEdge(e)
	}
}
