package ir

import (
	"fmt"
	"strings"
)

// ParseMethodRef parses a method reference written as "Class.name(T1,T2)".
// The class and parameter types must exist, but the method itself need not
// be declared in the class.
func (p *Program) ParseMethodRef(sig string) (MethodRef, error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return MethodRef{}, fmt.Errorf("method reference %q: expected Class.name(params)", sig)
	}
	dot := strings.LastIndexByte(sig[:open], '.')
	if dot <= 0 {
		return MethodRef{}, fmt.Errorf("method reference %q: missing class", sig)
	}

	c := p.classes[sig[:dot]]
	if c == nil {
		return MethodRef{}, fmt.Errorf("method reference %q: unknown class %s", sig, sig[:dot])
	}

	var params []Type
	if inner := strings.TrimSpace(sig[open+1 : len(sig)-1]); inner != "" {
		for _, name := range strings.Split(inner, ",") {
			t, ok := p.LookupType(name)
			if !ok {
				return MethodRef{}, fmt.Errorf("method reference %q: unknown type %s", sig, strings.TrimSpace(name))
			}
			params = append(params, t)
		}
	}

	return NewMethodRef(c, sig[dot+1:open], params...), nil
}

// LookupMethod returns the method with the given signature, written as
// "Class.name(T1,T2)", declared in Class. It returns nil if there is none.
func (p *Program) LookupMethod(sig string) *Method {
	ref, err := p.ParseMethodRef(sig)
	if err != nil {
		return nil
	}
	return ref.Class.DeclaredMethod(ref.Subsig)
}

// LookupField returns the field written as "Class.name", or nil.
func (p *Program) LookupField(name string) *Field {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return nil
	}
	c := p.classes[strings.TrimSpace(name[:dot])]
	if c == nil {
		return nil
	}
	return c.Field(strings.TrimSpace(name[dot+1:]))
}
