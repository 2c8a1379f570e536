/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package container

import "slices"

// Stack is a LIFO of E, the zero value is an empty stack.
type Stack[E any] struct {
	data []E
}

// Data returns a copy of the elements from the bottom up.
func (s *Stack[E]) Data() []E {
	return slices.Clone(s.data)
}

func (s *Stack[E]) Len() int {
	return len(s.data)
}

func (s *Stack[E]) Empty() bool {
	return len(s.data) == 0
}

func (s *Stack[E]) Push(e E) {
	s.data = append(s.data, e)
}

// Pop panics on an empty stack.
func (s *Stack[E]) Pop() E {
	e := s.data[len(s.data)-1]
	var zero E
	s.data[len(s.data)-1] = zero
	s.data = s.data[:len(s.data)-1]
	return e
}

// Peek returns a pointer to the top element or nil if the stack is empty.
// The pointer is invalidated by the next Push.
func (s *Stack[E]) Peek() *E {
	if len(s.data) == 0 {
		return nil
	}
	return &s.data[len(s.data)-1]
}

// Truncate pops elements until at most l remain, calling f on each popped
// element from the top down. f may be nil.
func (s *Stack[E]) Truncate(l int, f func(E)) {
	for len(s.data) > max(l, 0) {
		e := s.Pop()
		if f != nil {
			f(e)
		}
	}
}
