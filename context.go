package pointer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BarrensZeppelin/cspta/ir"
)

// MaxContextDepth bounds the number of elements in a context. Since context
// elements are drawn from the finite sets of call sites, abstract objects
// and types of the program, the set of contexts is finite.
const MaxContextDepth = 4

// Context abstracts the calling context of a method or the allocation
// context of an object as a bounded sequence of context elements: call sites
// (*ir.Invoke), abstract objects (*Obj) or types (ir.Type).
//
// Contexts are values; two contexts are equal under == iff they consist of
// the same elements.
type Context struct {
	depth int
	elems [MaxContextDepth]any
}

// MakeContext returns the context consisting of the last MaxContextDepth of
// the given elements.
func MakeContext(elems ...any) Context {
	var c Context
	for _, e := range elems {
		c = c.Append(e, MaxContextDepth)
	}
	return c
}

// Len returns the number of elements of c.
func (c Context) Len() int { return c.depth }

// Elem returns the i'th element of c, oldest first.
func (c Context) Elem(i int) any { return c.elems[i] }

// Append returns c extended with e, keeping only the most recent k elements.
func (c Context) Append(e any, k int) Context {
	k = clampDepth(k)
	if k == 0 {
		return Context{}
	}

	var res Context
	start := 0
	if c.depth+1 > k {
		start = c.depth + 1 - k
	}
	for i := start; i < c.depth; i++ {
		res.elems[res.depth] = c.elems[i]
		res.depth++
	}
	res.elems[res.depth] = e
	res.depth++
	return res
}

// Last returns the context of the most recent k elements of c.
func (c Context) Last(k int) Context {
	k = clampDepth(k)
	if c.depth <= k {
		return c
	}
	var res Context
	for i := c.depth - k; i < c.depth; i++ {
		res.elems[res.depth] = c.elems[i]
		res.depth++
	}
	return res
}

func (c Context) String() string {
	parts := make([]string, c.depth)
	for i := range parts {
		parts[i] = fmt.Sprint(c.elems[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func clampDepth(k int) int {
	switch {
	case k < 0:
		return 0
	case k > MaxContextDepth:
		return MaxContextDepth
	default:
		return k
	}
}

// ContextSelector chooses the contexts of callees and of allocated objects.
// Implementations must be deterministic.
type ContextSelector interface {
	// EmptyContext returns the context of the entry method and of taint
	// objects.
	EmptyContext() Context
	// SelectContext selects the callee context for a call without receiver.
	SelectContext(callSite *CSCallSite, callee *ir.Method) Context
	// SelectInstanceContext selects the callee context for a call on the
	// receiver object recv.
	SelectInstanceContext(callSite *CSCallSite, recv *CSObj, callee *ir.Method) Context
	// SelectHeapContext selects the heap context of obj allocated in method.
	SelectHeapContext(method *CSMethod, obj *Obj) Context
}

type insensitive struct{}

// Insensitive returns the context-insensitive selector: every context is
// empty.
func Insensitive() ContextSelector { return insensitive{} }

func (insensitive) EmptyContext() Context { return Context{} }
func (insensitive) SelectContext(*CSCallSite, *ir.Method) Context { return Context{} }
func (insensitive) SelectInstanceContext(*CSCallSite, *CSObj, *ir.Method) Context { return Context{} }
func (insensitive) SelectHeapContext(*CSMethod, *Obj) Context { return Context{} }
func (insensitive) String() string { return "ci" }

// callSelector implements k-limited call-site sensitivity.
type callSelector struct{ k, hk int }

// KCallSite returns a selector using the k most recent call sites as method
// context and the hk most recent call sites of the allocating method as heap
// context.
func KCallSite(k, hk int) ContextSelector {
	return callSelector{clampDepth(k), clampDepth(hk)}
}

func (callSelector) EmptyContext() Context { return Context{} }

func (s callSelector) SelectContext(cs *CSCallSite, _ *ir.Method) Context {
	return cs.Context.Append(cs.CallSite, s.k)
}

func (s callSelector) SelectInstanceContext(cs *CSCallSite, _ *CSObj, callee *ir.Method) Context {
	return s.SelectContext(cs, callee)
}

func (s callSelector) SelectHeapContext(m *CSMethod, _ *Obj) Context {
	return m.Context.Last(s.hk)
}

func (s callSelector) String() string { return fmt.Sprintf("%d-call", s.k) }

// objSelector implements k-limited object sensitivity.
type objSelector struct{ k, hk int }

// KObject returns a selector using the receiver object and its heap context
// as method context. Calls without receiver inherit the caller's context.
func KObject(k, hk int) ContextSelector {
	return objSelector{clampDepth(k), clampDepth(hk)}
}

func (objSelector) EmptyContext() Context { return Context{} }

func (s objSelector) SelectContext(cs *CSCallSite, _ *ir.Method) Context {
	return cs.Context
}

func (s objSelector) SelectInstanceContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) Context {
	return recv.Context.Append(recv.Obj, s.k)
}

func (s objSelector) SelectHeapContext(m *CSMethod, _ *Obj) Context {
	return m.Context.Last(s.hk)
}

func (s objSelector) String() string { return fmt.Sprintf("%d-obj", s.k) }

// typeSelector implements k-limited type sensitivity.
type typeSelector struct{ k, hk int }

// KType returns a selector like KObject, but using the class containing the
// allocation site of the receiver in place of the receiver object.
func KType(k, hk int) ContextSelector {
	return typeSelector{clampDepth(k), clampDepth(hk)}
}

func (typeSelector) EmptyContext() Context { return Context{} }

func (s typeSelector) SelectContext(cs *CSCallSite, _ *ir.Method) Context {
	return cs.Context
}

func (s typeSelector) SelectInstanceContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) Context {
	var t ir.Type = recv.Obj.Container().Class
	return recv.Context.Append(t, s.k)
}

func (s typeSelector) SelectHeapContext(m *CSMethod, _ *Obj) Context {
	return m.Context.Last(s.hk)
}

func (s typeSelector) String() string { return fmt.Sprintf("%d-type", s.k) }

var selectorRe = regexp.MustCompile(`^([0-9]+)-(call|obj|type)$`)

// SelectorByName returns the selector described by name: "ci" for context
// insensitivity, or "<k>-call", "<k>-obj" and "<k>-type" for k-limited call
// site, object and type sensitivity with heap contexts of depth k-1.
func SelectorByName(name string) (ContextSelector, error) {
	switch name {
	case "", "ci", "insens":
		return Insensitive(), nil
	}

	m := selectorRe.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("unknown context sensitivity %q", name)
	}
	k, _ := strconv.Atoi(m[1])
	if k < 1 || k > MaxContextDepth {
		return nil, fmt.Errorf("context depth %d of %q is outside [1, %d]", k, name, MaxContextDepth)
	}

	switch m[2] {
	case "call":
		return KCallSite(k, k-1), nil
	case "obj":
		return KObject(k, k-1), nil
	default:
		return KType(k, k-1), nil
	}
}
