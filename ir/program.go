package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// ErrMalformed is wrapped by all errors reporting a program that violates the
// structural rules of the IR.
var ErrMalformed = errors.New("malformed IR")

// ObjectClassName is the name of the root class. Arrays dispatch methods from
// this class when the program declares it.
const ObjectClassName = "Object"

// Program is a whole program: its classes and the designated entry method.
// A program is built with the New* and Add* methods and must be finalized
// before it is analyzed. A finalized program is immutable and may be shared
// by concurrent analyses.
type Program struct {
	classes map[string]*Class
	order   []*Class
	arrays  *xsync.Map[Type, *ArrayType]
	entry   *Method

	errs      []error
	finalized bool

	dispatchCache *xsync.Map[dispatchKey, *Method]
}

func NewProgram() *Program {
	return &Program{
		classes:       make(map[string]*Class),
		arrays:        xsync.NewMap[Type, *ArrayType](),
		dispatchCache: xsync.NewMap[dispatchKey, *Method](),
	}
}

func (p *Program) errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...))
}

// Class returns the class called name, or nil.
func (p *Program) Class(name string) *Class { return p.classes[name] }

// Classes returns all classes in declaration order.
func (p *Program) Classes() []*Class { return p.order }

// Entry returns the entry method of the program.
func (p *Program) Entry() *Method { return p.entry }

// Finalized reports whether Finalize has succeeded on p.
func (p *Program) Finalized() bool { return p.finalized }

// SetEntry designates m as the entry method.
func (p *Program) SetEntry(m *Method) { p.entry = m }

// ArrayOf returns the interned array type with elements of type elem. It is
// safe for concurrent use.
func (p *Program) ArrayOf(elem Type) *ArrayType {
	if at, ok := p.arrays.Load(elem); ok {
		return at
	}
	at, _ := p.arrays.LoadOrStore(elem, &ArrayType{Elem: elem})
	return at
}

// LookupType resolves a type name: a primitive, a class name, or any of those
// followed by one or more "[]".
func (p *Program) LookupType(name string) (Type, bool) {
	name = strings.TrimSpace(name)
	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		t, ok := p.LookupType(elem)
		if !ok {
			return nil, false
		}
		return p.ArrayOf(t), true
	}
	if prim, ok := primitives[name]; ok {
		return prim, true
	}
	if c := p.classes[name]; c != nil {
		return c, true
	}
	return nil, false
}

// NewClass declares a class called name with the given super class and
// implemented interfaces.
func (p *Program) NewClass(name string, super *Class, interfaces ...*Class) *Class {
	if c := p.classes[name]; c != nil {
		p.errorf("duplicate class %s", name)
		return c
	}
	c := &Class{
		Name:       name,
		Super:      super,
		Interfaces: interfaces,
		prog:       p,
		methods:    make(map[Subsignature]*Method),
		fields:     make(map[string]*Field),
	}
	p.classes[name] = c
	p.order = append(p.order, c)
	return c
}

// NewInterface declares an interface extending the given interfaces.
func (p *Program) NewInterface(name string, supers ...*Class) *Class {
	c := p.NewClass(name, nil, supers...)
	c.Interface = true
	c.Abstract = true
	return c
}

// NewField declares a field in c.
func (c *Class) NewField(name string, t Type, static bool) *Field {
	if f := c.fields[name]; f != nil {
		c.prog.errorf("duplicate field %s.%s", c.Name, name)
		return f
	}
	f := &Field{Class: c, Name: name, Type: t, Static: static}
	c.fields[name] = f
	return f
}

// Param describes a formal parameter of a method.
type Param struct {
	Name string
	Type Type
}

// NewMethod declares a method in c. Instance methods get an implicit
// receiver variable called "this".
func (c *Class) NewMethod(name string, ret Type, static bool, params ...Param) *Method {
	if ret == nil {
		ret = Void
	}
	m := &Method{
		Class:      c,
		Name:       name,
		ReturnType: ret,
		Static:     static,
	}
	for _, prm := range params {
		m.ParamTypes = append(m.ParamTypes, prm.Type)
	}
	m.subsig = MakeSubsignature(name, m.ParamTypes...)
	if !static {
		m.This = m.NewVar("this", c)
	}
	for _, prm := range params {
		m.Params = append(m.Params, m.NewVar(prm.Name, prm.Type))
	}

	if prev := c.methods[m.subsig]; prev != nil {
		c.prog.errorf("duplicate method %s", m.Signature())
		return prev
	}
	c.methods[m.subsig] = m
	c.mlist = append(c.mlist, m)
	return m
}

// Ref returns a reference to m, suitable for invocations of m.
func (m *Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Subsig: m.subsig, NumParams: len(m.ParamTypes)}
}

// NewMethodRef builds a reference to the method called name taking the given
// parameter types, as seen from class c. The method may be inherited.
func NewMethodRef(c *Class, name string, params ...Type) MethodRef {
	return MethodRef{Class: c, Subsig: MakeSubsignature(name, params...), NumParams: len(params)}
}

// NewVar declares a local variable in m.
func (m *Method) NewVar(name string, t Type) *Var {
	if v := m.Var(name); v != nil {
		m.Class.prog.errorf("duplicate variable %s in %s", name, m)
		return v
	}
	v := &Var{Name: name, Type: t, Method: m}
	m.vars = append(m.vars, v)
	return v
}

func (m *Method) add(s Stmt) {
	base := s.stmtNode()
	base.method = m
	base.index = len(m.stmts)
	m.stmts = append(m.stmts, s)
}

func (m *Method) AddNew(lhs *Var, t Type) *New {
	s := &New{LValue: lhs, Type: t}
	m.add(s)
	return s
}

func (m *Method) AddCopy(lhs, rhs *Var) *Copy {
	s := &Copy{LValue: lhs, RValue: rhs}
	m.add(s)
	return s
}

// AddLoadField appends lhs = base.f, or lhs = C.f when base is nil.
func (m *Method) AddLoadField(lhs, base *Var, f *Field) *LoadField {
	s := &LoadField{LValue: lhs, Base: base, Field: f}
	m.add(s)
	return s
}

// AddStoreField appends base.f = rhs, or C.f = rhs when base is nil.
func (m *Method) AddStoreField(base *Var, f *Field, rhs *Var) *StoreField {
	s := &StoreField{Base: base, Field: f, RValue: rhs}
	m.add(s)
	return s
}

func (m *Method) AddLoadArray(lhs, base, index *Var) *LoadArray {
	s := &LoadArray{LValue: lhs, Base: base, IndexVar: index}
	m.add(s)
	return s
}

func (m *Method) AddStoreArray(base, index, rhs *Var) *StoreArray {
	s := &StoreArray{Base: base, IndexVar: index, RValue: rhs}
	m.add(s)
	return s
}

// AddInvoke appends a call. result may be nil; base must be nil exactly for
// static calls.
func (m *Method) AddInvoke(kind CallKind, result, base *Var, ref MethodRef, args ...*Var) *Invoke {
	s := &Invoke{Kind: kind, Ref: ref, Base: base, Args: args, Result: result}
	m.add(s)
	return s
}

func (m *Method) AddReturn(v *Var) *Return {
	s := &Return{Value: v}
	m.add(s)
	return s
}

func (m *Method) AddNop(text string) *Nop {
	s := &Nop{Text: text}
	m.add(s)
	return s
}

// Finalize builds the type hierarchy and the per-variable statement indices,
// and validates the program. Errors wrap ErrMalformed.
func (p *Program) Finalize() error {
	if p.finalized {
		return nil
	}

	for _, c := range p.order {
		c.subclasses, c.subinterfaces, c.implementors = nil, nil, nil
	}
	for _, c := range p.order {
		if c.Super != nil {
			if c.Super.Interface {
				p.errorf("%s extends interface %s", c, c.Super)
			} else if !c.Interface {
				c.Super.subclasses = append(c.Super.subclasses, c)
			}
		}
		for _, itf := range c.Interfaces {
			switch {
			case !itf.Interface:
				p.errorf("%s implements non-interface %s", c, itf)
			case c.Interface:
				itf.subinterfaces = append(itf.subinterfaces, c)
			default:
				itf.implementors = append(itf.implementors, c)
			}
		}
	}
	p.checkAcyclic()

	if p.entry == nil {
		p.errorf("no entry method")
	}

	for _, c := range p.order {
		for _, m := range c.mlist {
			p.indexMethod(m)
		}
	}

	if len(p.errs) != 0 {
		return errors.Join(p.errs...)
	}
	p.finalized = true
	return nil
}

// checkAcyclic reports classes that are not reachable from a root of the
// hierarchy by following subclass and implementor edges downwards, which
// happens exactly for classes on an inheritance cycle.
func (p *Program) checkAcyclic() {
	seen := make(map[*Class]bool, len(p.order))
	var queue []*Class
	for _, c := range p.order {
		if c.Super == nil && len(c.Interfaces) == 0 {
			seen[c] = true
			queue = append(queue, c)
		}
	}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, subs := range [...][]*Class{
			p.DirectSubclassesOf(c),
			p.DirectSubinterfacesOf(c),
			p.DirectImplementorsOf(c),
		} {
			for _, sub := range subs {
				if !seen[sub] && p.allSupersSeen(sub, seen) {
					seen[sub] = true
					queue = append(queue, sub)
				}
			}
		}
	}

	for _, c := range p.order {
		if !seen[c] {
			p.errorf("inheritance cycle through %s", c)
		}
	}
}

func (p *Program) allSupersSeen(c *Class, seen map[*Class]bool) bool {
	if c.Super != nil && !c.Super.Interface && !seen[c.Super] {
		return false
	}
	for _, itf := range c.Interfaces {
		if itf.Interface && !seen[itf] {
			return false
		}
	}
	return true
}

func (p *Program) indexMethod(m *Method) {
	owned := func(v *Var, what string, s Stmt) bool {
		if v == nil {
			p.errorf("%v: missing %s", s, what)
			return false
		}
		if v.Method != m {
			p.errorf("%v: %s %s belongs to %s", s, what, v.Name, v.Method)
			return false
		}
		return true
	}

	for _, v := range m.vars {
		v.loadFields, v.storeFields = nil, nil
		v.loadArrays, v.storeArrays, v.invokes = nil, nil, nil
	}
	m.returnVars = nil

	if m.Abstract && len(m.stmts) > 0 {
		p.errorf("abstract method %s has a body", m)
	}

	for _, s := range m.stmts {
		switch s := s.(type) {
		case *New:
			owned(s.LValue, "target", s)
			switch t := s.Type.(type) {
			case *Class:
				if t.Abstract || t.Interface {
					p.errorf("%v: cannot allocate abstract type %v", s, t)
				}
			case *ArrayType:
			default:
				p.errorf("%v: cannot allocate %v", s, s.Type)
			}

		case *Copy:
			owned(s.LValue, "target", s)
			owned(s.RValue, "source", s)

		case *LoadField:
			owned(s.LValue, "target", s)
			if s.Field == nil {
				p.errorf("%v: missing field", s)
			} else if s.Field.Static != s.IsStatic() {
				p.errorf("%v: static/instance mismatch for %v", s, s.Field)
			}
			if !s.IsStatic() && owned(s.Base, "base", s) {
				s.Base.loadFields = append(s.Base.loadFields, s)
			}

		case *StoreField:
			owned(s.RValue, "source", s)
			if s.Field == nil {
				p.errorf("%v: missing field", s)
			} else if s.Field.Static != s.IsStatic() {
				p.errorf("%v: static/instance mismatch for %v", s, s.Field)
			}
			if !s.IsStatic() && owned(s.Base, "base", s) {
				s.Base.storeFields = append(s.Base.storeFields, s)
			}

		case *LoadArray:
			owned(s.LValue, "target", s)
			if owned(s.Base, "base", s) {
				s.Base.loadArrays = append(s.Base.loadArrays, s)
			}

		case *StoreArray:
			owned(s.RValue, "source", s)
			if owned(s.Base, "base", s) {
				s.Base.storeArrays = append(s.Base.storeArrays, s)
			}

		case *Invoke:
			if s.Ref.Class == nil {
				p.errorf("%v: unresolved method reference", s)
			}
			if len(s.Args) != s.Ref.NumParams {
				p.errorf("%v: %d arguments for %d parameters", s, len(s.Args), s.Ref.NumParams)
			}
			for _, a := range s.Args {
				owned(a, "argument", s)
			}
			if s.Result != nil {
				owned(s.Result, "result", s)
			}
			switch s.Kind {
			case CallStatic, CallDynamic:
				if s.Base != nil {
					p.errorf("%v: %v call with receiver", s, s.Kind)
				}
			default:
				if owned(s.Base, "receiver", s) {
					s.Base.invokes = append(s.Base.invokes, s)
				}
			}

		case *Return:
			if s.Value != nil && owned(s.Value, "return value", s) {
				m.returnVars = append(m.returnVars, s.Value)
			}

		case *Nop:

		default:
			p.errorf("%v: unhandled statement %T", s, s)
		}
	}
}
