package pointer

import (
	"fmt"

	"github.com/BarrensZeppelin/cspta/ir"
	"golang.org/x/tools/container/intsets"
)

// pointsToSet is a set of context-sensitive objects, represented by their
// indices in the element manager.
type pointsToSet struct {
	intsets.Sparse
}

func singleton(o *CSObj) *pointsToSet {
	s := new(pointsToSet)
	s.Insert(o.id)
	return s
}

// Pointer is a node of the pointer flow graph: a context-sensitive variable
// (*CSVar), a static field (*StaticField), an instance field of an object
// (*InstanceField) or the elements of an array object (*ArrayIndex).
type Pointer interface {
	fmt.Stringer
	// method used to tag pointer kinds
	pointer() *pointerBase
}

type pointerBase struct {
	id  int
	pts pointsToSet
}

func (p *pointerBase) pointer() *pointerBase { return p }

// CSVar is a variable qualified by the context of its method.
type CSVar struct {
	pointerBase
	Context Context
	Var     *ir.Var
}

func (v *CSVar) String() string { return fmt.Sprintf("%v:%v", v.Context, v.Var) }

// StaticField is the single location of a static field.
type StaticField struct {
	pointerBase
	Field *ir.Field
}

func (f *StaticField) String() string { return f.Field.String() }

// InstanceField is a field of an abstract object.
type InstanceField struct {
	pointerBase
	Base  *CSObj
	Field *ir.Field
}

func (f *InstanceField) String() string { return fmt.Sprintf("%v.%s", f.Base, f.Field.Name) }

// ArrayIndex stands for all elements of an abstract array object.
type ArrayIndex struct {
	pointerBase
	Array *CSObj
}

func (a *ArrayIndex) String() string { return fmt.Sprintf("%v[*]", a.Array) }

// CSCallSite is a call site qualified by the context of its method.
type CSCallSite struct {
	Context  Context
	CallSite *ir.Invoke
	// The context-sensitive method containing the call site
	Container *CSMethod
}

func (c *CSCallSite) String() string { return fmt.Sprintf("%v:%v", c.Context, c.CallSite) }

// CSMethod is a method qualified by a context.
type CSMethod struct {
	id      int
	Context Context
	Method  *ir.Method
}

func (m *CSMethod) String() string { return fmt.Sprintf("%v:%v", m.Context, m.Method) }

type varKey struct {
	ctx Context
	v   *ir.Var
}

type fieldKey struct {
	base *CSObj
	f    *ir.Field
}

type objKey struct {
	ctx Context
	obj *Obj
}

type callKey struct {
	ctx  Context
	call *ir.Invoke
}

type methodKey struct {
	ctx Context
	m   *ir.Method
}

// csManager canonicalizes context-sensitive elements: structurally equal
// requests return the identical element. Pointers and objects are numbered
// densely in creation order.
type csManager struct {
	vars           map[varKey]*CSVar
	varContexts    map[*ir.Var][]*CSVar
	staticFields   map[*ir.Field]*StaticField
	instanceFields map[fieldKey]*InstanceField
	arrayIndexes   map[*CSObj]*ArrayIndex
	objs           map[objKey]*CSObj
	callSites      map[callKey]*CSCallSite
	methods        map[methodKey]*CSMethod

	pointers []Pointer
	objList  []*CSObj
	mlist    []*CSMethod
}

func newCSManager() *csManager {
	return &csManager{
		vars:           make(map[varKey]*CSVar),
		varContexts:    make(map[*ir.Var][]*CSVar),
		staticFields:   make(map[*ir.Field]*StaticField),
		instanceFields: make(map[fieldKey]*InstanceField),
		arrayIndexes:   make(map[*CSObj]*ArrayIndex),
		objs:           make(map[objKey]*CSObj),
		callSites:      make(map[callKey]*CSCallSite),
		methods:        make(map[methodKey]*CSMethod),
	}
}

func (m *csManager) register(p Pointer) {
	p.pointer().id = len(m.pointers)
	m.pointers = append(m.pointers, p)
}

func (m *csManager) getCSVar(ctx Context, v *ir.Var) *CSVar {
	key := varKey{ctx, v}
	if p, ok := m.vars[key]; ok {
		return p
	}
	p := &CSVar{Context: ctx, Var: v}
	m.register(p)
	m.vars[key] = p
	m.varContexts[v] = append(m.varContexts[v], p)
	return p
}

func (m *csManager) getStaticField(f *ir.Field) *StaticField {
	if p, ok := m.staticFields[f]; ok {
		return p
	}
	p := &StaticField{Field: f}
	m.register(p)
	m.staticFields[f] = p
	return p
}

func (m *csManager) getInstanceField(base *CSObj, f *ir.Field) *InstanceField {
	key := fieldKey{base, f}
	if p, ok := m.instanceFields[key]; ok {
		return p
	}
	p := &InstanceField{Base: base, Field: f}
	m.register(p)
	m.instanceFields[key] = p
	return p
}

func (m *csManager) getArrayIndex(array *CSObj) *ArrayIndex {
	if p, ok := m.arrayIndexes[array]; ok {
		return p
	}
	p := &ArrayIndex{Array: array}
	m.register(p)
	m.arrayIndexes[array] = p
	return p
}

func (m *csManager) getCSObj(ctx Context, obj *Obj) *CSObj {
	key := objKey{ctx, obj}
	if o, ok := m.objs[key]; ok {
		return o
	}
	o := &CSObj{id: len(m.objList), Context: ctx, Obj: obj}
	m.objList = append(m.objList, o)
	m.objs[key] = o
	return o
}

func (m *csManager) getCSMethod(ctx Context, method *ir.Method) *CSMethod {
	key := methodKey{ctx, method}
	if cm, ok := m.methods[key]; ok {
		return cm
	}
	cm := &CSMethod{id: len(m.mlist), Context: ctx, Method: method}
	m.mlist = append(m.mlist, cm)
	m.methods[key] = cm
	return cm
}

func (m *csManager) getCSCallSite(ctx Context, call *ir.Invoke) *CSCallSite {
	key := callKey{ctx, call}
	if cs, ok := m.callSites[key]; ok {
		return cs
	}
	cs := &CSCallSite{
		Context:   ctx,
		CallSite:  call,
		Container: m.getCSMethod(ctx, call.Method()),
	}
	m.callSites[key] = cs
	return cs
}

// objects decodes a points-to set.
func (m *csManager) objects(pts *pointsToSet) []*CSObj {
	ids := pts.AppendTo(nil)
	res := make([]*CSObj, len(ids))
	for i, id := range ids {
		res[i] = m.objList[id]
	}
	return res
}
