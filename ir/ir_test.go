package ir_test

import (
	"testing"

	"github.com/BarrensZeppelin/cspta/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hierarchy builds
//
//	interface I { default m() }
//	interface J extends I
//	class A implements J { m() }
//	class B extends A
//	class C implements I
//	abstract class D { abstract m() }
type hierarchy struct {
	prog       *ir.Program
	object     *ir.Class
	i, j       *ir.Class
	a, b, c, d *ir.Class
	im, am, dm *ir.Method
}

func newHierarchy(t *testing.T) *hierarchy {
	h := &hierarchy{prog: ir.NewProgram()}
	p := h.prog
	h.object = p.NewClass(ir.ObjectClassName, nil)
	h.i = p.NewInterface("I")
	h.j = p.NewInterface("J", h.i)
	h.a = p.NewClass("A", h.object, h.j)
	h.b = p.NewClass("B", h.a)
	h.c = p.NewClass("C", h.object, h.i)
	h.d = p.NewClass("D", h.object)
	h.d.Abstract = true

	h.im = h.i.NewMethod("m", nil, false)
	h.im.AddNop("default")
	h.am = h.a.NewMethod("m", nil, false)
	h.dm = h.d.NewMethod("m", nil, false)
	h.dm.Abstract = true

	main := p.NewClass("Main", h.object).NewMethod("main", nil, true)
	p.SetEntry(main)
	require.NoError(t, p.Finalize())
	return h
}

func TestHierarchy(t *testing.T) {
	h := newHierarchy(t)
	p := h.prog

	t.Run("IsSubtype", func(t *testing.T) {
		assert.True(t, p.IsSubtype(h.b, h.a))
		assert.True(t, p.IsSubtype(h.b, h.i), "through super class and super interface")
		assert.True(t, p.IsSubtype(h.c, h.i))
		assert.False(t, p.IsSubtype(h.c, h.j))
		assert.False(t, p.IsSubtype(h.a, h.b))
		assert.True(t, p.IsSubtype(h.i, h.object))

		arrB, arrA := p.ArrayOf(h.b), p.ArrayOf(h.a)
		assert.Same(t, arrB, p.ArrayOf(h.b), "array types are interned")
		assert.True(t, p.IsSubtype(arrB, arrA))
		assert.False(t, p.IsSubtype(arrA, arrB))
		assert.True(t, p.IsSubtype(arrA, h.object))
		assert.False(t, p.IsSubtype(ir.Int, h.object))
	})

	t.Run("Dispatch", func(t *testing.T) {
		sub := ir.MakeSubsignature("m")
		assert.Equal(t, h.am, p.Dispatch(h.b, sub), "inherited from super class")
		assert.Equal(t, h.im, p.Dispatch(h.c, sub), "default method")
		assert.Equal(t, h.im, p.Dispatch(h.i, sub), "declared by the interface itself")
		assert.Equal(t, h.im, p.Dispatch(h.j, sub), "inherited from a super interface")
		assert.Nil(t, p.Dispatch(h.d, sub), "abstract methods are not targets")
		assert.Nil(t, p.Dispatch(h.b, ir.MakeSubsignature("n")))
		// cached
		assert.Equal(t, h.am, p.Dispatch(h.b, sub))
	})

	t.Run("Hierarchy", func(t *testing.T) {
		assert.Equal(t, []*ir.Class{h.b}, p.DirectSubclassesOf(h.a))
		assert.Equal(t, []*ir.Class{h.j}, p.DirectSubinterfacesOf(h.i))
		assert.Equal(t, []*ir.Class{h.c}, p.DirectImplementorsOf(h.i))
		assert.Equal(t, []*ir.Class{h.a}, p.DirectImplementorsOf(h.j))
	})

	t.Run("Lookup", func(t *testing.T) {
		typ, ok := p.LookupType("A[][]")
		require.True(t, ok)
		assert.Equal(t, "A[][]", typ.String())

		typ, ok = p.LookupType("int")
		require.True(t, ok)
		assert.Equal(t, ir.Int, typ)

		_, ok = p.LookupType("Nope")
		assert.False(t, ok)

		assert.Equal(t, h.am, p.LookupMethod("A.m()"))
		assert.Nil(t, p.LookupMethod("B.m()"), "only declared methods")
		assert.Nil(t, p.LookupMethod("A.m"))

		ref, err := p.ParseMethodRef("B.foo(A, int[])")
		require.NoError(t, err)
		assert.Equal(t, h.b, ref.Class)
		assert.Equal(t, ir.Subsignature("foo(A,int[])"), ref.Subsig)
		assert.Equal(t, 2, ref.NumParams)
		assert.Equal(t, "foo", ref.Subsig.Name())

		for _, bad := range []string{"foo()", "X.foo()", "A.foo(X)", "A.foo"} {
			_, err := p.ParseMethodRef(bad)
			assert.Error(t, err, bad)
		}
	})
}

func TestFinalize(t *testing.T) {
	newProgram := func() (*ir.Program, *ir.Class, *ir.Method) {
		p := ir.NewProgram()
		object := p.NewClass(ir.ObjectClassName, nil)
		main := p.NewClass("Main", object).NewMethod("main", nil, true)
		p.SetEntry(main)
		return p, object, main
	}

	t.Run("Valid", func(t *testing.T) {
		p, object, main := newProgram()
		x := main.NewVar("x", object)
		main.AddNew(x, object)
		main.AddReturn(x)
		require.NoError(t, p.Finalize())
		assert.Equal(t, []*ir.Var{x}, main.ReturnVars())
		assert.True(t, p.Finalized())
	})

	t.Run("ArrayAccess", func(t *testing.T) {
		p, object, main := newProgram()
		arr := main.NewVar("arr", p.ArrayOf(object))
		i, x := main.NewVar("i", ir.Int), main.NewVar("x", object)
		main.AddNew(arr, p.ArrayOf(object))
		main.AddNew(x, object)
		store := main.AddStoreArray(arr, i, x)
		load := main.AddLoadArray(x, arr, nil)
		require.NoError(t, p.Finalize())

		assert.Equal(t, 2, store.Index())
		assert.Equal(t, 3, load.Index())
		assert.Same(t, i, store.IndexVar)
		assert.Nil(t, load.IndexVar)
		assert.Equal(t, "Main.main()/2: arr[i] = x", store.String())
		assert.Equal(t, "Main.main()/3: x = arr[*]", load.String())
		assert.Equal(t, []*ir.StoreArray{store}, arr.StoreArrays())
		assert.Equal(t, []*ir.LoadArray{load}, arr.LoadArrays())
	})

	for name, build := range map[string]func(p *ir.Program, object *ir.Class, main *ir.Method){
		"NoEntry": func(p *ir.Program, _ *ir.Class, _ *ir.Method) {
			p.SetEntry(nil)
		},
		"AbstractAllocation": func(p *ir.Program, _ *ir.Class, main *ir.Method) {
			main.AddNew(main.NewVar("x", nil), p.NewInterface("I"))
		},
		"PrimitiveAllocation": func(_ *ir.Program, _ *ir.Class, main *ir.Method) {
			main.AddNew(main.NewVar("x", nil), ir.Int)
		},
		"StaticMismatch": func(_ *ir.Program, object *ir.Class, main *ir.Method) {
			f := object.NewField("f", object, false)
			main.AddLoadField(main.NewVar("x", nil), nil, f)
		},
		"ArgumentCount": func(_ *ir.Program, object *ir.Class, main *ir.Method) {
			x := main.NewVar("x", nil)
			main.AddInvoke(ir.CallStatic, nil, nil, ir.NewMethodRef(object, "f", object), x, x)
		},
		"StaticWithReceiver": func(_ *ir.Program, object *ir.Class, main *ir.Method) {
			x := main.NewVar("x", nil)
			main.AddInvoke(ir.CallStatic, nil, x, ir.NewMethodRef(object, "f"))
		},
		"ForeignVariable": func(_ *ir.Program, object *ir.Class, main *ir.Method) {
			other := object.NewMethod("other", nil, true)
			main.AddCopy(main.NewVar("x", nil), other.NewVar("y", nil))
		},
		"Cycle": func(p *ir.Program, _ *ir.Class, _ *ir.Method) {
			a := p.NewClass("A", nil)
			b := p.NewClass("B", a)
			a.Super = b
		},
		"AbstractBody": func(_ *ir.Program, object *ir.Class, _ *ir.Method) {
			m := object.NewMethod("m", nil, false)
			m.Abstract = true
			m.AddNop("body")
		},
		"DuplicateClass": func(p *ir.Program, _ *ir.Class, _ *ir.Method) {
			p.NewClass("Main", nil)
		},
	} {
		t.Run(name, func(t *testing.T) {
			p, object, main := newProgram()
			build(p, object, main)
			assert.ErrorIs(t, p.Finalize(), ir.ErrMalformed)
		})
	}
}
