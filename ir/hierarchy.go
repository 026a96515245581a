package ir

// DirectSubclassesOf returns the classes whose super class is c.
func (p *Program) DirectSubclassesOf(c *Class) []*Class { return c.subclasses }

// DirectSubinterfacesOf returns the interfaces directly extending c.
func (p *Program) DirectSubinterfacesOf(c *Class) []*Class { return c.subinterfaces }

// DirectImplementorsOf returns the classes directly implementing c.
func (p *Program) DirectImplementorsOf(c *Class) []*Class { return c.implementors }

// IsSubtype reports whether sub is a subtype of super. Arrays are covariant
// and are subtypes of the root class.
func (p *Program) IsSubtype(sub, super Type) bool {
	if sub == super {
		return true
	}

	switch s := sub.(type) {
	case *ArrayType:
		switch t := super.(type) {
		case *ArrayType:
			return p.IsSubtype(s.Elem, t.Elem)
		case *Class:
			return t.Name == ObjectClassName
		}
		return false

	case *Class:
		target, ok := super.(*Class)
		if !ok {
			return false
		}
		seen := map[*Class]bool{s: true}
		queue := []*Class{s}
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			if c == target {
				return true
			}
			next := c.Interfaces
			if c.Super != nil {
				next = append([]*Class{c.Super}, next...)
			}
			for _, n := range next {
				if !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		return target.Name == ObjectClassName
	}

	return false
}

type dispatchKey struct {
	t      Type
	subsig Subsignature
}

// Dispatch finds the concrete method invoked when a method with the given
// subsignature is called on an object of type t. The search walks the super
// class chain and falls back to non-abstract (default) methods of the
// implemented interfaces. It returns nil if there is no concrete
// implementation. Results are memoized and the cache is safe for concurrent
// use.
func (p *Program) Dispatch(t Type, subsig Subsignature) *Method {
	key := dispatchKey{t, subsig}
	if m, ok := p.dispatchCache.Load(key); ok {
		return m
	}

	m := p.dispatch(t, subsig)
	p.dispatchCache.Store(key, m)
	return m
}

func (p *Program) dispatch(t Type, subsig Subsignature) *Method {
	var start *Class
	switch t := t.(type) {
	case *Class:
		start = t
	case *ArrayType:
		start = p.classes[ObjectClassName]
	}
	if start == nil {
		return nil
	}

	for c := start; c != nil; c = c.Super {
		if m := c.methods[subsig]; m != nil && !m.Abstract {
			return m
		}
	}

	// Default methods: breadth-first over the interfaces of the class chain.
	seen := make(map[*Class]bool)
	var queue []*Class
	for c := start; c != nil; c = c.Super {
		for _, itf := range c.Interfaces {
			if !seen[itf] {
				seen[itf] = true
				queue = append(queue, itf)
			}
		}
	}
	for len(queue) > 0 {
		itf := queue[0]
		queue = queue[1:]
		if m := itf.methods[subsig]; m != nil && !m.Abstract && !m.Static {
			return m
		}
		for _, sup := range itf.Interfaces {
			if !seen[sup] {
				seen[sup] = true
				queue = append(queue, sup)
			}
		}
	}

	return nil
}

// ResolveCallee resolves the target of call. recvType is the type of the
// receiver object and is ignored for static and special calls. It returns
// nil when the call has no concrete target.
func (p *Program) ResolveCallee(recvType Type, call *Invoke) *Method {
	switch call.Kind {
	case CallStatic:
		for c := call.Ref.Class; c != nil; c = c.Super {
			if m := c.methods[call.Ref.Subsig]; m != nil {
				if m.Static && !m.Abstract {
					return m
				}
				return nil
			}
		}
		return nil

	case CallSpecial:
		return p.Dispatch(call.Ref.Class, call.Ref.Subsig)

	case CallVirtual, CallInterface:
		if recvType == nil {
			return nil
		}
		return p.Dispatch(recvType, call.Ref.Subsig)

	default:
		return nil
	}
}
