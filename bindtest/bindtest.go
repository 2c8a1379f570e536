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

/*
Package bindtest provides in memory stand ins for the native Metal objects so
binding contracts can be exercised without a device.
*/
package bindtest

import (
	"fmt"

	"goarrg.com/rhi/mtlbind"
)

type Method uint8

const (
	MethodBytes Method = iota
	MethodBuffer
	MethodBufferOffset
	MethodTexture
	MethodAccelerationStructure
)

func (m Method) String() string {
	switch m {
	case MethodBytes:
		return "Bytes"
	case MethodBuffer:
		return "Buffer"
	case MethodBufferOffset:
		return "BufferOffset"
	case MethodTexture:
		return "Texture"
	case MethodAccelerationStructure:
		return "AccelerationStructure"
	default:
		return "invalid"
	}
}

// Call is one recorded argument table update.
type Call struct {
	Stage    mtlbind.Stage
	Method   Method
	Slot     uint32
	Data     []byte
	Offset   uint64
	Resource any
}

func (c Call) String() string {
	return fmt.Sprintf("%s.%s(%d)", c.Stage, c.Method, c.Slot)
}

// Recorder implements both native encoder interfaces and records every call.
type Recorder struct {
	Calls []Call
}

func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}

func (r *Recorder) Vertex() mtlbind.Vertex {
	return mtlbind.Vertex{Native: r}
}

func (r *Recorder) Fragment() mtlbind.Fragment {
	return mtlbind.Fragment{Native: r}
}

func (r *Recorder) Compute() mtlbind.Compute {
	return mtlbind.Compute{Native: r}
}

func (r *Recorder) record(c Call) {
	if c.Data != nil {
		c.Data = append([]byte(nil), c.Data...)
	}
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) SetVertexBytes(data []byte, index uint32) {
	r.record(Call{Stage: mtlbind.StageVertex, Method: MethodBytes, Slot: index, Data: data})
}

func (r *Recorder) SetVertexBuffer(buffer mtlbind.NativeBuffer, offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageVertex, Method: MethodBuffer, Slot: index, Offset: offset, Resource: buffer})
}

func (r *Recorder) SetVertexBufferOffset(offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageVertex, Method: MethodBufferOffset, Slot: index, Offset: offset})
}

func (r *Recorder) SetVertexTexture(texture mtlbind.NativeTexture, index uint32) {
	r.record(Call{Stage: mtlbind.StageVertex, Method: MethodTexture, Slot: index, Resource: texture})
}

func (r *Recorder) SetVertexAccelerationStructure(as mtlbind.NativeAccelerationStructure, index uint32) {
	r.record(Call{Stage: mtlbind.StageVertex, Method: MethodAccelerationStructure, Slot: index, Resource: as})
}

func (r *Recorder) SetFragmentBytes(data []byte, index uint32) {
	r.record(Call{Stage: mtlbind.StageFragment, Method: MethodBytes, Slot: index, Data: data})
}

func (r *Recorder) SetFragmentBuffer(buffer mtlbind.NativeBuffer, offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageFragment, Method: MethodBuffer, Slot: index, Offset: offset, Resource: buffer})
}

func (r *Recorder) SetFragmentBufferOffset(offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageFragment, Method: MethodBufferOffset, Slot: index, Offset: offset})
}

func (r *Recorder) SetFragmentTexture(texture mtlbind.NativeTexture, index uint32) {
	r.record(Call{Stage: mtlbind.StageFragment, Method: MethodTexture, Slot: index, Resource: texture})
}

func (r *Recorder) SetFragmentAccelerationStructure(as mtlbind.NativeAccelerationStructure, index uint32) {
	r.record(Call{Stage: mtlbind.StageFragment, Method: MethodAccelerationStructure, Slot: index, Resource: as})
}

func (r *Recorder) SetBytes(data []byte, index uint32) {
	r.record(Call{Stage: mtlbind.StageCompute, Method: MethodBytes, Slot: index, Data: data})
}

func (r *Recorder) SetBuffer(buffer mtlbind.NativeBuffer, offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageCompute, Method: MethodBuffer, Slot: index, Offset: offset, Resource: buffer})
}

func (r *Recorder) SetBufferOffset(offset uint64, index uint32) {
	r.record(Call{Stage: mtlbind.StageCompute, Method: MethodBufferOffset, Slot: index, Offset: offset})
}

func (r *Recorder) SetTexture(texture mtlbind.NativeTexture, index uint32) {
	r.record(Call{Stage: mtlbind.StageCompute, Method: MethodTexture, Slot: index, Resource: texture})
}

func (r *Recorder) SetAccelerationStructure(as mtlbind.NativeAccelerationStructure, index uint32) {
	r.record(Call{Stage: mtlbind.StageCompute, Method: MethodAccelerationStructure, Slot: index, Resource: as})
}

var (
	_ mtlbind.NativeRenderCommandEncoder  = (*Recorder)(nil)
	_ mtlbind.NativeComputeCommandEncoder = (*Recorder)(nil)
)

// Buffer is a CPU backed NativeBuffer.
type Buffer struct {
	Label string
	Data  []byte
}

func NewBuffer(label string, length uint64) *Buffer {
	return &Buffer{Label: label, Data: make([]byte, length)}
}

func (b *Buffer) Length() uint64 {
	return uint64(len(b.Data))
}

func (b *Buffer) Contents() []byte {
	return b.Data
}

type Texture struct {
	Label string
	W, H  uint64
}

func (t *Texture) Width() uint64 {
	return t.W
}

func (t *Texture) Height() uint64 {
	return t.H
}

type AccelerationStructure struct {
	Label string
	Bytes uint64
}

func (a *AccelerationStructure) Size() uint64 {
	return a.Bytes
}
