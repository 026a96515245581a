package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	q.Push(1)
	assert.False(t, q.Empty())
	assert.Equal(t, q.Pop(), 1)
	assert.True(t, q.Empty())

	q.Push(2)
	q.Push(3)
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, q.Pop(), 2)
	assert.Equal(t, q.Pop(), 3)
	assert.True(t, q.Empty())

	assert.Panics(t, func() { q.Pop() })
}

func TestStack(t *testing.T) {
	var s Stack[string]
	assert.True(t, s.Empty())

	s.Push("a")
	s.Push("b")
	s.Push("c")
	assert.Equal(t, 3, s.Len())

	assert.Equal(t, "c", s.Pop())
	s.Push("d")
	assert.Equal(t, "d", s.Pop())
	assert.Equal(t, "b", s.Pop())
	assert.Equal(t, "a", s.Pop())
	assert.True(t, s.Empty())

	assert.PanicsWithError(t, ErrEmpty.Error(), func() { s.Pop() })
}
