package pointer

import (
	"fmt"

	"github.com/BarrensZeppelin/cspta/ir"
)

// This file contains definitions of types whose instances represent abstract
// objects that are targets of pointers in the analysed program.

// ObjKind distinguishes ordinary allocation sites from taint objects.
type ObjKind int

const (
	// AllocationSite objects stand for all objects allocated by one New
	// statement.
	AllocationSite ObjKind = iota
	// TaintObject objects stand for the tainted values produced by one
	// source call, for one type.
	TaintObject
)

// Obj denotes an abstract object, independent of any heap context.
type Obj struct {
	id   int
	kind ObjKind
	// *ir.New for allocation sites, *ir.Invoke (the source call) for taint
	// objects.
	site ir.Stmt
	typ  ir.Type
}

func (o *Obj) Kind() ObjKind { return o.kind }

// Type returns the type of the object.
func (o *Obj) Type() ir.Type { return o.typ }

// Site returns the statement that creates the object.
func (o *Obj) Site() ir.Stmt { return o.site }

// Container returns the method containing the creating statement.
func (o *Obj) Container() *ir.Method { return o.site.Method() }

// Allocation returns the allocation statement, or nil for taint objects.
func (o *Obj) Allocation() *ir.New {
	n, _ := o.site.(*ir.New)
	return n
}

// IsTaint reports whether o is a taint object.
func (o *Obj) IsTaint() bool { return o.kind == TaintObject }

// SourceCall returns the source call of a taint object, or nil.
func (o *Obj) SourceCall() *ir.Invoke {
	if o.kind != TaintObject {
		return nil
	}
	return o.site.(*ir.Invoke)
}

func (o *Obj) String() string {
	if o.kind == TaintObject {
		return fmt.Sprintf("TaintObj{%v, %v}", o.site, o.typ)
	}
	return fmt.Sprintf("NewObj{%v}", o.site)
}

type taintKey struct {
	source *ir.Invoke
	typ    ir.Type
}

// heapModel abstracts objects by their allocation site. Taint objects are
// abstracted by their source call and type.
type heapModel struct {
	allocs map[*ir.New]*Obj
	taints map[taintKey]*Obj
	objs   []*Obj
}

func newHeapModel() *heapModel {
	return &heapModel{
		allocs: make(map[*ir.New]*Obj),
		taints: make(map[taintKey]*Obj),
	}
}

func (h *heapModel) newObj(kind ObjKind, site ir.Stmt, typ ir.Type) *Obj {
	o := &Obj{id: len(h.objs), kind: kind, site: site, typ: typ}
	h.objs = append(h.objs, o)
	return o
}

func (h *heapModel) getObj(alloc *ir.New) *Obj {
	if o, ok := h.allocs[alloc]; ok {
		return o
	}
	o := h.newObj(AllocationSite, alloc, alloc.Type)
	h.allocs[alloc] = o
	return o
}

func (h *heapModel) getTaintObj(source *ir.Invoke, typ ir.Type) *Obj {
	key := taintKey{source, typ}
	if o, ok := h.taints[key]; ok {
		return o
	}
	o := h.newObj(TaintObject, source, typ)
	h.taints[key] = o
	return o
}

// CSObj is an abstract object qualified by a heap context.
type CSObj struct {
	id      int
	Context Context
	Obj     *Obj
}

func (o *CSObj) String() string {
	return fmt.Sprintf("%v:%v", o.Context, o.Obj)
}
