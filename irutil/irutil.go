// Package irutil loads programs from YAML program descriptions.
//
// A program description lists classes with their fields and methods, and
// designates an entry method:
//
//	entry: Main.main()
//	classes:
//	  - name: Object
//	  - name: A
//	    extends: Object
//	    fields:
//	      - {name: f, type: Object}
//	    methods:
//	      - name: get
//	        returns: Object
//	        body:
//	          - load: {to: r, base: this, field: A.f}
//	          - return: r
//	  - name: Main
//	    extends: Object
//	    methods:
//	      - name: main
//	        static: true
//	        vars: {a: A}
//	        body:
//	          - new: {to: a, type: A}
//	          - invoke: {kind: virtual, to: x, base: a, method: A.get()}
//
// Variables used in a body but not declared under vars are declared untyped.
// Fields are referenced as Class.name and methods as Class.name(T1,T2).
// Invocations without a kind are static when they have no base and virtual
// otherwise.
package irutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BarrensZeppelin/cspta/internal/maps"
	"github.com/BarrensZeppelin/cspta/ir"
	"gopkg.in/yaml.v3"
)

type programFile struct {
	Entry   string      `yaml:"entry"`
	Classes []classSpec `yaml:"classes"`
}

type classSpec struct {
	Name       string       `yaml:"name"`
	Extends    string       `yaml:"extends"`
	Implements []string     `yaml:"implements"`
	Interface  bool         `yaml:"interface"`
	Abstract   bool         `yaml:"abstract"`
	Fields     []fieldSpec  `yaml:"fields"`
	Methods    []methodSpec `yaml:"methods"`
}

type fieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static"`
}

type paramSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type methodSpec struct {
	Name     string            `yaml:"name"`
	Static   bool              `yaml:"static"`
	Abstract bool              `yaml:"abstract"`
	Returns  string            `yaml:"returns"`
	Params   []paramSpec       `yaml:"params"`
	Vars     map[string]string `yaml:"vars"`
	Body     []stmtSpec        `yaml:"body"`
}

type stmtSpec struct {
	New *struct {
		To   string `yaml:"to"`
		Type string `yaml:"type"`
	} `yaml:"new"`
	Copy *struct {
		To   string `yaml:"to"`
		From string `yaml:"from"`
	} `yaml:"copy"`
	Load *struct {
		To    string `yaml:"to"`
		Base  string `yaml:"base"`
		Field string `yaml:"field"`
	} `yaml:"load"`
	Store *struct {
		Base  string `yaml:"base"`
		Field string `yaml:"field"`
		From  string `yaml:"from"`
	} `yaml:"store"`
	ALoad *struct {
		To    string `yaml:"to"`
		Base  string `yaml:"base"`
		Index string `yaml:"index"`
	} `yaml:"aload"`
	AStore *struct {
		Base  string `yaml:"base"`
		Index string `yaml:"index"`
		From  string `yaml:"from"`
	} `yaml:"astore"`
	Invoke *struct {
		Kind   string   `yaml:"kind"`
		To     string   `yaml:"to"`
		Base   string   `yaml:"base"`
		Method string   `yaml:"method"`
		Args   []string `yaml:"args"`
	} `yaml:"invoke"`
	Return *string `yaml:"return"`
	Nop    *string `yaml:"nop"`
}

// LoadProgramFromSource loads a program from an inline YAML description.
func LoadProgramFromSource(source string) (*ir.Program, error) {
	return LoadProgram(strings.NewReader(source))
}

// LoadProgramFile loads the program described in the YAML file at path.
func LoadProgramFile(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := LoadProgram(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// LoadProgram decodes a YAML program description and returns the finalized
// program.
func LoadProgram(r io.Reader) (*ir.Program, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var pf programFile
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	l := &loader{prog: ir.NewProgram()}
	l.build(&pf)
	if len(l.errs) != 0 {
		return nil, errors.Join(l.errs...)
	}
	if err := l.prog.Finalize(); err != nil {
		return nil, err
	}
	return l.prog, nil
}

type loader struct {
	prog *ir.Program
	errs []error
}

func (l *loader) errorf(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

func (l *loader) typ(name string) ir.Type {
	if name == "" {
		return nil
	}
	t, ok := l.prog.LookupType(name)
	if !ok {
		l.errorf("unknown type %s", name)
	}
	return t
}

func (l *loader) class(name string) *ir.Class {
	c := l.prog.Class(name)
	if c == nil {
		l.errorf("unknown class %s", name)
	}
	return c
}

func (l *loader) build(pf *programFile) {
	prog := l.prog

	// Declare all classes first so that they may refer to each other.
	for _, cs := range pf.Classes {
		if cs.Interface {
			prog.NewInterface(cs.Name)
		} else {
			prog.NewClass(cs.Name, nil).Abstract = cs.Abstract
		}
	}

	for _, cs := range pf.Classes {
		c := prog.Class(cs.Name)
		if cs.Extends != "" {
			if cs.Interface {
				// interfaces list their super interfaces under extends
				for _, name := range strings.Split(cs.Extends, ",") {
					if sup := l.class(strings.TrimSpace(name)); sup != nil {
						c.Interfaces = append(c.Interfaces, sup)
					}
				}
			} else {
				c.Super = l.class(cs.Extends)
			}
		}
		for _, name := range cs.Implements {
			if itf := l.class(name); itf != nil {
				c.Interfaces = append(c.Interfaces, itf)
			}
		}
		for _, fs := range cs.Fields {
			c.NewField(fs.Name, l.typ(fs.Type), fs.Static)
		}
	}

	type pending struct {
		m    *ir.Method
		spec *methodSpec
	}
	var bodies []pending

	for _, cs := range pf.Classes {
		c := prog.Class(cs.Name)
		for i := range cs.Methods {
			ms := &cs.Methods[i]
			params := make([]ir.Param, len(ms.Params))
			for j, ps := range ms.Params {
				params[j] = ir.Param{Name: ps.Name, Type: l.typ(ps.Type)}
			}
			ret := l.typ(ms.Returns)
			m := c.NewMethod(ms.Name, ret, ms.Static, params...)
			m.Abstract = ms.Abstract || cs.Interface && len(ms.Body) == 0 && !ms.Static
			bodies = append(bodies, pending{m, ms})
		}
	}

	if len(l.errs) != 0 {
		return
	}

	for _, b := range bodies {
		l.body(b.m, b.spec)
	}

	if pf.Entry == "" {
		l.errorf("missing entry method")
	} else if entry := prog.LookupMethod(pf.Entry); entry == nil {
		l.errorf("unknown entry method %s", pf.Entry)
	} else {
		prog.SetEntry(entry)
	}
}

func (l *loader) body(m *ir.Method, ms *methodSpec) {
	for _, name := range maps.SortedKeys(ms.Vars) {
		m.NewVar(name, l.typ(ms.Vars[name]))
	}

	v := func(name string) *ir.Var {
		if name == "" {
			return nil
		}
		if v := m.Var(name); v != nil {
			return v
		}
		return m.NewVar(name, nil)
	}
	field := func(name string) *ir.Field {
		f := l.prog.LookupField(name)
		if f == nil {
			l.errorf("%v: unknown field %s", m, name)
		}
		return f
	}

	for i, st := range ms.Body {
		switch {
		case st.New != nil:
			if t := l.typ(st.New.Type); t != nil {
				m.AddNew(v(st.New.To), t)
			}
		case st.Copy != nil:
			m.AddCopy(v(st.Copy.To), v(st.Copy.From))
		case st.Load != nil:
			if f := field(st.Load.Field); f != nil {
				m.AddLoadField(v(st.Load.To), v(st.Load.Base), f)
			}
		case st.Store != nil:
			if f := field(st.Store.Field); f != nil {
				m.AddStoreField(v(st.Store.Base), f, v(st.Store.From))
			}
		case st.ALoad != nil:
			m.AddLoadArray(v(st.ALoad.To), v(st.ALoad.Base), v(st.ALoad.Index))
		case st.AStore != nil:
			m.AddStoreArray(v(st.AStore.Base), v(st.AStore.Index), v(st.AStore.From))
		case st.Invoke != nil:
			inv := st.Invoke
			ref, err := l.prog.ParseMethodRef(inv.Method)
			if err != nil {
				l.errorf("%v: %w", m, err)
				continue
			}
			kind := ir.CallStatic
			if inv.Base != "" {
				kind = ir.CallVirtual
			}
			if inv.Kind != "" {
				if kind, err = ir.ParseCallKind(inv.Kind); err != nil {
					l.errorf("%v: %w", m, err)
					continue
				}
			}
			args := make([]*ir.Var, len(inv.Args))
			for j, a := range inv.Args {
				args[j] = v(a)
			}
			m.AddInvoke(kind, v(inv.To), v(inv.Base), ref, args...)
		case st.Return != nil:
			m.AddReturn(v(*st.Return))
		case st.Nop != nil:
			m.AddNop(*st.Nop)
		default:
			l.errorf("%v: statement %d has no known operation", m, i)
		}
	}
}
