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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesAliases(t *testing.T) {
	v := uint32(0x04030201)
	b := Bytes(&v)
	require.Len(t, b, 4)

	b[0] = 0xFF
	assert.Equal(t, byte(0xFF), byte(v))
	assert.Nil(t, Bytes[uint32](nil))
}

func TestSliceBytes(t *testing.T) {
	type pair struct{ A, B float32 }
	s := []pair{{1, 2}, {3, 4}, {5, 6}}
	assert.Len(t, SliceBytes(s), 24)
	assert.Nil(t, SliceBytes([]pair(nil)))
}

func TestCopyBytesDoesNotAlias(t *testing.T) {
	v := uint16(7)
	b := CopyBytes(v)
	b[0] = 0
	assert.Equal(t, uint16(7), v)
}

func TestNoCopy(t *testing.T) {
	var n NoCopy
	n.Init()
	assert.NotPanics(t, n.Check)

	// A byte copy moves n the way an assignment would.
	var copied NoCopy
	copy(Bytes(&copied), Bytes(&n))
	assert.PanicsWithValue(t, "Fatal Error", copied.Check)
	assert.PanicsWithValue(t, "Fatal Error", n.Init)

	n.Close()
	assert.PanicsWithValue(t, "Fatal Error", n.Check)

	var lazy NoCopy
	assert.True(t, lazy.InitLazy())
	assert.False(t, lazy.InitLazy())
}
