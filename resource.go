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

import (
	"unsafe"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/internal/util"
)

type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "invalid"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	if s > StageCompute {
		return nil, debug.Errorf("Invalid stage: %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(data []byte) error {
	switch string(data) {
	case "vertex":
		*s = StageVertex
	case "fragment":
		*s = StageFragment
	case "compute", "kernel":
		*s = StageCompute
	default:
		return debug.Errorf("Invalid stage: %q", data)
	}
	return nil
}

/*
ResourceClass is the kind of resource a shader parameter consumes. Buffers and
acceleration structures are addressed through the buffer argument table,
textures through the texture argument table.
*/
type ResourceClass uint8

const (
	ResourceClassBuffer ResourceClass = iota
	ResourceClassTexture
	ResourceClassAccelerationStructure
)

func (c ResourceClass) String() string {
	switch c {
	case ResourceClassBuffer:
		return "buffer"
	case ResourceClassTexture:
		return "texture"
	case ResourceClassAccelerationStructure:
		return "accelerationStructure"
	default:
		return "invalid"
	}
}

func (c ResourceClass) MarshalText() ([]byte, error) {
	if c > ResourceClassAccelerationStructure {
		return nil, debug.Errorf("Invalid resource class: %d", c)
	}
	return []byte(c.String()), nil
}

func (c *ResourceClass) UnmarshalText(data []byte) error {
	switch string(data) {
	case "buffer":
		*c = ResourceClassBuffer
	case "texture":
		*c = ResourceClassTexture
	case "accelerationStructure":
		*c = ResourceClassAccelerationStructure
	default:
		return debug.Errorf("Invalid resource class: %q", data)
	}
	return nil
}

func (c ResourceClass) Table() Table {
	if c == ResourceClassTexture {
		return TableTexture
	}
	return TableBuffer
}

// Table is one of the per stage argument tables of the native encoder.
type Table uint8

const (
	TableBuffer Table = iota
	TableTexture
)

const (
	MaxBufferSlots  = 31
	MaxTextureSlots = 128
)

func (t Table) String() string {
	if t == TableTexture {
		return "texture"
	}
	return "buffer"
}

func (t Table) Len() uint32 {
	if t == TableTexture {
		return MaxTextureSlots
	}
	return MaxBufferSlots
}

/*
NativeBuffer is a GPU buffer owned by the native API. Contents returns the
CPU visible memory of the buffer or nil if the storage mode is private.
*/
type NativeBuffer interface {
	Length() uint64
	Contents() []byte
}

type NativeTexture interface {
	Width() uint64
	Height() uint64
}

type NativeAccelerationStructure interface {
	Size() uint64
}

/*
TypedBuffer is a view of a NativeBuffer as an array of T, it does not own the
buffer and never resizes it.
*/
type TypedBuffer[T any] struct {
	buffer NativeBuffer
	len    uint64
}

func NewTypedBuffer[T any](buffer NativeBuffer, length uint64) *TypedBuffer[T] {
	if buffer == nil {
		abort("NewTypedBuffer called with nil buffer")
	}
	var t T
	if sz := uint64(unsafe.Sizeof(t)) * length; sz > buffer.Length() {
		abort("TypedBuffer of %d elements needs %d bytes but buffer is %d bytes", length, sz, buffer.Length())
	}
	return &TypedBuffer[T]{
		buffer: buffer,
		len:    length,
	}
}

func (b *TypedBuffer[T]) Native() NativeBuffer {
	return b.buffer
}

func (b *TypedBuffer[T]) Len() uint64 {
	return b.len
}

func (b *TypedBuffer[T]) ElementSize() uint64 {
	var t T
	return uint64(unsafe.Sizeof(t))
}

func (b *TypedBuffer[T]) byteOffset(elementOffset uint64) uint64 {
	offset := elementOffset * b.ElementSize()
	if checksEnabled && offset > b.buffer.Length() {
		abort("Element offset %d (%d bytes) is past the end of a %d byte buffer", elementOffset, offset, b.buffer.Length())
	}
	return offset
}

// Write copies data into the buffer starting at elementOffset.
func (b *TypedBuffer[T]) Write(elementOffset uint64, data ...T) {
	if elementOffset+uint64(len(data)) > b.len {
		abort("Write of %d elements at %d overflows buffer of %d elements", len(data), elementOffset, b.len)
	}
	contents := b.buffer.Contents()
	if contents == nil {
		abort("Write called on a buffer without CPU visible contents")
	}
	if len(data) == 0 {
		return
	}
	copy(contents[b.byteOffset(elementOffset):], util.SliceBytes(data))
}
