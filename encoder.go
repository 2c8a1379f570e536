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

package mtlbind

import "goarrg.com/gmath"

// NativeRenderCommandEncoder mirrors the argument table setters of
// MTLRenderCommandEncoder.
type NativeRenderCommandEncoder interface {
	SetVertexBytes(data []byte, index uint32)
	SetVertexBuffer(buffer NativeBuffer, offset uint64, index uint32)
	SetVertexBufferOffset(offset uint64, index uint32)
	SetVertexTexture(texture NativeTexture, index uint32)
	SetVertexAccelerationStructure(as NativeAccelerationStructure, index uint32)

	SetFragmentBytes(data []byte, index uint32)
	SetFragmentBuffer(buffer NativeBuffer, offset uint64, index uint32)
	SetFragmentBufferOffset(offset uint64, index uint32)
	SetFragmentTexture(texture NativeTexture, index uint32)
	SetFragmentAccelerationStructure(as NativeAccelerationStructure, index uint32)
}

// NativeComputeCommandEncoder mirrors the argument table setters of
// MTLComputeCommandEncoder.
type NativeComputeCommandEncoder interface {
	SetBytes(data []byte, index uint32)
	SetBuffer(buffer NativeBuffer, offset uint64, index uint32)
	SetBufferOffset(offset uint64, index uint32)
	SetTexture(texture NativeTexture, index uint32)
	SetAccelerationStructure(as NativeAccelerationStructure, index uint32)
}

/*
Encoder is the stage independent set of operations a binding variant uses to
attach itself to a slot. A nil texture or acceleration structure clears the
slot.

Implementations are Vertex, Fragment and Compute, generated code accepts the
concrete type so that a vertex contract can not be encoded into a compute
encoder.
*/
type Encoder interface {
	Bytes(slot uint32, data []byte)
	BufferAndOffset(slot uint32, buffer NativeBuffer, offset uint64)
	BufferOffset(slot uint32, offset uint64)
	Texture(slot uint32, texture NativeTexture)
	AccelerationStructure(slot uint32, as NativeAccelerationStructure)
}

func checkSlot(stage Stage, t Table, slot uint32) {
	if !gmath.InRange(slot, 0, t.Len()-1) {
		abort("%s %s slot %d out of range [0, %d)", stage, t, slot, t.Len())
	}
}

type Vertex struct {
	Native NativeRenderCommandEncoder
}

func (e Vertex) Bytes(slot uint32, data []byte) {
	checkSlot(StageVertex, TableBuffer, slot)
	e.Native.SetVertexBytes(data, slot)
}

func (e Vertex) BufferAndOffset(slot uint32, buffer NativeBuffer, offset uint64) {
	checkSlot(StageVertex, TableBuffer, slot)
	e.Native.SetVertexBuffer(buffer, offset, slot)
}

func (e Vertex) BufferOffset(slot uint32, offset uint64) {
	checkSlot(StageVertex, TableBuffer, slot)
	e.Native.SetVertexBufferOffset(offset, slot)
}

func (e Vertex) Texture(slot uint32, texture NativeTexture) {
	checkSlot(StageVertex, TableTexture, slot)
	e.Native.SetVertexTexture(texture, slot)
}

func (e Vertex) AccelerationStructure(slot uint32, as NativeAccelerationStructure) {
	checkSlot(StageVertex, TableBuffer, slot)
	e.Native.SetVertexAccelerationStructure(as, slot)
}

type Fragment struct {
	Native NativeRenderCommandEncoder
}

func (e Fragment) Bytes(slot uint32, data []byte) {
	checkSlot(StageFragment, TableBuffer, slot)
	e.Native.SetFragmentBytes(data, slot)
}

func (e Fragment) BufferAndOffset(slot uint32, buffer NativeBuffer, offset uint64) {
	checkSlot(StageFragment, TableBuffer, slot)
	e.Native.SetFragmentBuffer(buffer, offset, slot)
}

func (e Fragment) BufferOffset(slot uint32, offset uint64) {
	checkSlot(StageFragment, TableBuffer, slot)
	e.Native.SetFragmentBufferOffset(offset, slot)
}

func (e Fragment) Texture(slot uint32, texture NativeTexture) {
	checkSlot(StageFragment, TableTexture, slot)
	e.Native.SetFragmentTexture(texture, slot)
}

func (e Fragment) AccelerationStructure(slot uint32, as NativeAccelerationStructure) {
	checkSlot(StageFragment, TableBuffer, slot)
	e.Native.SetFragmentAccelerationStructure(as, slot)
}

type Compute struct {
	Native NativeComputeCommandEncoder
}

func (e Compute) Bytes(slot uint32, data []byte) {
	checkSlot(StageCompute, TableBuffer, slot)
	e.Native.SetBytes(data, slot)
}

func (e Compute) BufferAndOffset(slot uint32, buffer NativeBuffer, offset uint64) {
	checkSlot(StageCompute, TableBuffer, slot)
	e.Native.SetBuffer(buffer, offset, slot)
}

func (e Compute) BufferOffset(slot uint32, offset uint64) {
	checkSlot(StageCompute, TableBuffer, slot)
	e.Native.SetBufferOffset(offset, slot)
}

func (e Compute) Texture(slot uint32, texture NativeTexture) {
	checkSlot(StageCompute, TableTexture, slot)
	e.Native.SetTexture(texture, slot)
}

func (e Compute) AccelerationStructure(slot uint32, as NativeAccelerationStructure) {
	checkSlot(StageCompute, TableBuffer, slot)
	e.Native.SetAccelerationStructure(as, slot)
}

var (
	_ Encoder = Vertex{}
	_ Encoder = Fragment{}
	_ Encoder = Compute{}
)
