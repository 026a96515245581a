package ir

import (
	"fmt"
	"strings"
)

// Stmt is a statement of a method body. The set of statement types is closed:
// New, Copy, LoadField, StoreField, LoadArray, StoreArray, Invoke, Return and
// Nop.
type Stmt interface {
	fmt.Stringer
	// Method returns the method containing the statement.
	Method() *Method
	// Index returns the position of the statement in its method.
	Index() int
	// method used to tag statement constructors
	stmtNode() *stmtBase
}

type stmtBase struct {
	method *Method
	index  int
}

func (s *stmtBase) stmtNode() *stmtBase { return s }
func (s *stmtBase) Method() *Method     { return s.method }
func (s *stmtBase) Index() int          { return s.index }

func (s *stmtBase) pos() string {
	return fmt.Sprintf("%s/%d", s.method.Signature(), s.index)
}

// New allocates an object of type Type and assigns it to LValue.
type New struct {
	stmtBase
	LValue *Var
	Type   Type
}

func (s *New) String() string {
	return fmt.Sprintf("%s: %s = new %v", s.pos(), s.LValue.Name, s.Type)
}

// Copy assigns RValue to LValue.
type Copy struct {
	stmtBase
	LValue, RValue *Var
}

func (s *Copy) String() string {
	return fmt.Sprintf("%s: %s = %s", s.pos(), s.LValue.Name, s.RValue.Name)
}

// LoadField reads Base.Field into LValue. Base is nil for static fields.
type LoadField struct {
	stmtBase
	LValue *Var
	Base   *Var
	Field  *Field
}

// IsStatic reports whether the statement reads a static field.
func (s *LoadField) IsStatic() bool { return s.Base == nil }

func (s *LoadField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s: %s = %v", s.pos(), s.LValue.Name, s.Field)
	}
	return fmt.Sprintf("%s: %s = %s.%s", s.pos(), s.LValue.Name, s.Base.Name, s.Field.Name)
}

// StoreField writes RValue to Base.Field. Base is nil for static fields.
type StoreField struct {
	stmtBase
	Base   *Var
	Field  *Field
	RValue *Var
}

// IsStatic reports whether the statement writes a static field.
func (s *StoreField) IsStatic() bool { return s.Base == nil }

func (s *StoreField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s: %v = %s", s.pos(), s.Field, s.RValue.Name)
	}
	return fmt.Sprintf("%s: %s.%s = %s", s.pos(), s.Base.Name, s.Field.Name, s.RValue.Name)
}

// LoadArray reads an element of the array Base into LValue. The index is
// kept for presentation only.
type LoadArray struct {
	stmtBase
	LValue   *Var
	Base     *Var
	IndexVar *Var
}

func (s *LoadArray) String() string {
	return fmt.Sprintf("%s: %s = %s[%s]", s.pos(), s.LValue.Name, s.Base.Name, varName(s.IndexVar))
}

// StoreArray writes RValue to an element of the array Base.
type StoreArray struct {
	stmtBase
	Base     *Var
	IndexVar *Var
	RValue   *Var
}

func (s *StoreArray) String() string {
	return fmt.Sprintf("%s: %s[%s] = %s", s.pos(), s.Base.Name, varName(s.IndexVar), s.RValue.Name)
}

// CallKind classifies how the target of an invocation is resolved.
type CallKind int

const (
	CallStatic CallKind = iota
	CallSpecial
	CallVirtual
	CallInterface
	CallDynamic
)

var callKindNames = [...]string{"static", "special", "virtual", "interface", "dynamic"}

func (k CallKind) String() string {
	if int(k) < len(callKindNames) {
		return callKindNames[k]
	}
	return fmt.Sprintf("CallKind(%d)", int(k))
}

// ParseCallKind returns the call kind with the given name.
func ParseCallKind(name string) (CallKind, error) {
	for i, n := range callKindNames {
		if n == name {
			return CallKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown call kind %q", name)
}

// Invoke calls the method referenced by Ref. Base is the receiver and is nil
// for static calls. Result is nil when the returned value is discarded.
type Invoke struct {
	stmtBase
	Kind   CallKind
	Ref    MethodRef
	Base   *Var
	Args   []*Var
	Result *Var
}

// IsStatic reports whether the call has no receiver.
func (s *Invoke) IsStatic() bool { return s.Kind == CallStatic }

func (s *Invoke) String() string {
	var sb strings.Builder
	sb.WriteString(s.pos())
	sb.WriteString(": ")
	if s.Result != nil {
		sb.WriteString(s.Result.Name + " = ")
	}
	sb.WriteString("invoke" + s.Kind.String() + " ")
	if s.Base != nil {
		sb.WriteString(s.Base.Name + ".")
	}
	sb.WriteString(s.Ref.String())
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.Name
	}
	sb.WriteString("(" + strings.Join(args, ", ") + ")")
	return sb.String()
}

// Return exits the method, returning Value (nil for void returns).
type Return struct {
	stmtBase
	Value *Var
}

func (s *Return) String() string {
	if s.Value == nil {
		return s.pos() + ": return"
	}
	return s.pos() + ": return " + s.Value.Name
}

// Nop is any statement without effect on the heap, such as arithmetic or
// control flow.
type Nop struct {
	stmtBase
	Text string
}

func (s *Nop) String() string { return s.pos() + ": " + s.Text }

func varName(v *Var) string {
	if v == nil {
		return "*"
	}
	return v.Name
}
