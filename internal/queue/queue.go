package queue

import "errors"

// Queue is a first-in first-out queue. The zero value is an empty queue.
type Queue[E any] struct {
	elements []E
}

func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements)
}

var ErrEmpty = errors.New("Queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	var zero E
	e := q.elements[0]
	q.elements[0] = zero
	q.elements = q.elements[1:]
	return e
}

// Stack is a last-in first-out stack. The zero value is an empty stack.
type Stack[E any] struct {
	elements []E
}

func (s *Stack[E]) Push(e E) {
	s.elements = append(s.elements, e)
}

func (s *Stack[E]) Empty() bool {
	return len(s.elements) == 0
}

func (s *Stack[E]) Len() int {
	return len(s.elements)
}

func (s *Stack[E]) Pop() E {
	if s.Empty() {
		panic(ErrEmpty)
	}

	var zero E
	n := len(s.elements) - 1
	e := s.elements[n]
	s.elements[n] = zero
	s.elements = s.elements[:n]
	return e
}
