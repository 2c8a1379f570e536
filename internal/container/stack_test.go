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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack(t *testing.T) {
	s := Stack[int]{}
	assert.True(t, s.Empty())
	assert.Nil(t, s.Peek())

	for i := range 4 {
		s.Push(i)
	}
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []int{0, 1, 2, 3}, s.Data())
	assert.Equal(t, 3, *s.Peek())

	*s.Peek() = 7
	assert.Equal(t, 7, s.Pop())

	popped := []int{}
	s.Truncate(1, func(e int) { popped = append(popped, e) })
	assert.Equal(t, []int{2, 1}, popped)
	assert.Equal(t, 1, s.Len())

	s.Truncate(-1, nil)
	assert.True(t, s.Empty())
	assert.Panics(t, func() { s.Pop() })
}
