package pointer_test

import (
	"fmt"
	"testing"

	pointer "github.com/BarrensZeppelin/cspta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	var empty pointer.Context
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "[]", empty.String())

	c := empty.Append("a", 2).Append("b", 2)
	assert.Equal(t, pointer.MakeContext("a", "b"), c)
	assert.Equal(t, "[a, b]", c.String())

	c = c.Append("c", 2)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "b", c.Elem(0))
	assert.Equal(t, "c", c.Elem(1))
	assert.Equal(t, pointer.MakeContext("b", "c"), c)

	assert.Equal(t, pointer.MakeContext("c"), c.Last(1))
	assert.Equal(t, c, c.Last(3))
	assert.Equal(t, empty, c.Last(0))
	assert.Equal(t, empty, c.Append("d", 0))

	long := pointer.MakeContext(1, 2, 3, 4, 5, 6)
	assert.Equal(t, pointer.MaxContextDepth, long.Len())
	assert.Equal(t, 3, long.Elem(0))

	assert.NotEqual(t, pointer.MakeContext("a"), pointer.MakeContext("a", "a"))
}

func TestSelectorByName(t *testing.T) {
	for name, want := range map[string]string{
		"":       "ci",
		"ci":     "ci",
		"insens": "ci",
		"1-call": "1-call",
		"2-obj":  "2-obj",
		"4-type": "4-type",
	} {
		sel, err := pointer.SelectorByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, fmt.Sprint(sel))
	}

	for _, name := range []string{"0-call", "5-obj", "2-cfa", "call", "k-obj"} {
		_, err := pointer.SelectorByName(name)
		assert.Error(t, err, name)
	}
}

func TestParseOrder(t *testing.T) {
	o, err := pointer.ParseOrder("LIFO")
	require.NoError(t, err)
	assert.Equal(t, pointer.LIFO, o)
	assert.Equal(t, "lifo", o.String())

	o, err = pointer.ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, pointer.FIFO, o)

	_, err = pointer.ParseOrder("random")
	assert.Error(t, err)
}
