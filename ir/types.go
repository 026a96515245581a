package ir

import (
	"fmt"
	"strings"
)

// Type is the static type of an expression or an allocated object.
type Type interface {
	fmt.Stringer
	// method used to tag type constructors
	irType()
}

type tTag struct{}

func (tTag) irType() {}

// PrimitiveType is a non-reference type. Objects of primitive type are never
// allocated, but primitive types appear in signatures.
type PrimitiveType string

func (PrimitiveType) irType() {}

func (p PrimitiveType) String() string { return string(p) }

const (
	Void    PrimitiveType = "void"
	Int     PrimitiveType = "int"
	Long    PrimitiveType = "long"
	Boolean PrimitiveType = "boolean"
	Byte    PrimitiveType = "byte"
	Char    PrimitiveType = "char"
	Short   PrimitiveType = "short"
)

var primitives = map[string]PrimitiveType{
	"void": Void, "int": Int, "long": Long, "boolean": Boolean,
	"byte": Byte, "char": Char, "short": Short,
}

// ArrayType is the type of arrays with elements of type Elem. Array types are
// interned by the program, so two array types are identical iff they are
// pointer-equal.
type ArrayType struct {
	tTag
	Elem Type
}

func (a *ArrayType) String() string { return a.Elem.String() + "[]" }

// Class is a class or an interface.
type Class struct {
	tTag
	Name       string
	Super      *Class
	Interfaces []*Class
	Interface  bool
	Abstract   bool

	prog    *Program
	methods map[Subsignature]*Method
	mlist   []*Method
	fields  map[string]*Field

	// populated by Program.Finalize
	subclasses    []*Class
	subinterfaces []*Class
	implementors  []*Class
}

func (c *Class) String() string { return c.Name }

// DeclaredMethod returns the method with the given subsignature declared
// directly in c, or nil.
func (c *Class) DeclaredMethod(subsig Subsignature) *Method {
	return c.methods[subsig]
}

// Methods returns the methods declared in c in declaration order.
func (c *Class) Methods() []*Method { return c.mlist }

// DeclaredField returns the field called name declared directly in c, or nil.
func (c *Class) DeclaredField(name string) *Field {
	return c.fields[name]
}

// Field looks up a field by name in c and its super classes.
func (c *Class) Field(name string) *Field {
	for k := c; k != nil; k = k.Super {
		if f := k.fields[name]; f != nil {
			return f
		}
	}
	return nil
}

// Field is a static or instance field of a class.
type Field struct {
	Class  *Class
	Name   string
	Type   Type
	Static bool
}

func (f *Field) String() string {
	return f.Class.Name + "." + f.Name
}

// Subsignature identifies a method within a class: its name and parameter
// types, e.g. "foo(A,int)".
type Subsignature string

// MakeSubsignature builds the subsignature of a method called name with the
// given parameter types.
func MakeSubsignature(name string, params ...Type) Subsignature {
	ps := make([]string, len(params))
	for i, p := range params {
		ps[i] = p.String()
	}
	return Subsignature(name + "(" + strings.Join(ps, ",") + ")")
}

// Name returns the method name part of the subsignature.
func (s Subsignature) Name() string {
	if i := strings.IndexByte(string(s), '('); i >= 0 {
		return string(s[:i])
	}
	return string(s)
}

// MethodRef is the symbolic reference to a method at a call site. It is
// resolved to a concrete method by the type hierarchy.
type MethodRef struct {
	Class  *Class
	Subsig Subsignature
	// Number of parameters of the referenced method
	NumParams int
}

func (r MethodRef) String() string {
	return r.Class.Name + "." + string(r.Subsig)
}

// Method is a method declared in a class. Methods without statements model
// native or library methods that the analysis does not look into.
type Method struct {
	Class      *Class
	Name       string
	ParamTypes []Type
	ReturnType Type
	Static     bool
	Abstract   bool

	// This is nil for static methods.
	This   *Var
	Params []*Var

	vars       []*Var
	stmts      []Stmt
	returnVars []*Var
	subsig     Subsignature
}

// Subsignature returns the subsignature of m.
func (m *Method) Subsignature() Subsignature { return m.subsig }

// Signature returns the fully qualified signature of m, e.g. "A.foo(B)".
func (m *Method) Signature() string {
	return m.Class.Name + "." + string(m.subsig)
}

func (m *Method) String() string { return m.Signature() }

// Stmts returns the body of m.
func (m *Method) Stmts() []Stmt { return m.stmts }

// Vars returns all variables of m, including this and the parameters.
func (m *Method) Vars() []*Var { return m.vars }

// ReturnVars returns the variables returned by Return statements in m.
func (m *Method) ReturnVars() []*Var { return m.returnVars }

// Var returns the variable of m called name, or nil.
func (m *Method) Var(name string) *Var {
	for _, v := range m.vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Var is a local variable, parameter or receiver of a method.
type Var struct {
	Name   string
	Type   Type
	Method *Method

	loadFields  []*LoadField
	storeFields []*StoreField
	loadArrays  []*LoadArray
	storeArrays []*StoreArray
	invokes     []*Invoke
}

func (v *Var) String() string {
	return v.Method.Signature() + "/" + v.Name
}

// LoadFields returns the instance field loads whose base is v.
func (v *Var) LoadFields() []*LoadField { return v.loadFields }

// StoreFields returns the instance field stores whose base is v.
func (v *Var) StoreFields() []*StoreField { return v.storeFields }

// LoadArrays returns the array loads whose base is v.
func (v *Var) LoadArrays() []*LoadArray { return v.loadArrays }

// StoreArrays returns the array stores whose base is v.
func (v *Var) StoreArrays() []*StoreArray { return v.storeArrays }

// Invokes returns the instance invocations whose receiver is v.
func (v *Var) Invokes() []*Invoke { return v.invokes }
