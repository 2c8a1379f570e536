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

	"goarrg.com/rhi/mtlbind/internal/util"
)

// maxBytesLength is the largest payload the native API accepts for inline
// bytes, larger values must live in a buffer.
const maxBytesLength = 4096

type bindKind uint8

const (
	bindSkip bindKind = iota
	bindValue
	bindBuffer
	bindBufferOffset
	bindNull
)

func (k bindKind) String() string {
	switch k {
	case bindSkip:
		return "Skip"
	case bindValue:
		return "Value"
	case bindBuffer:
		return "Buffer"
	case bindBufferOffset:
		return "BufferOffset"
	case bindNull:
		return "Null"
	default:
		return "invalid"
	}
}

// Binding is implemented by every binding variant. The zero value of every
// variant is Skip which performs no encode calls.
type Binding interface {
	Encode(e Encoder, slot uint32)
	IsSkip() bool
}

func sizeOf[T any]() uint64 {
	var t T
	return uint64(unsafe.Sizeof(t))
}

func checkByteOffset[T any](byteOffset uint64) {
	if checksEnabled {
		if sz := sizeOf[T](); sz != 0 && byteOffset%sz != 0 {
			abort("Byte offset %d is not a multiple of the element size %d", byteOffset, sz)
		}
	}
}

func checkBytes(data []byte) {
	if checksEnabled {
		if len(data) == 0 {
			abort("Inline bytes can not be empty")
		}
		if len(data) > maxBytesLength {
			abort("Inline bytes of %d bytes exceeds the %d byte limit, use a buffer", len(data), maxBytesLength)
		}
	}
}

/*
Bind attaches one T to a buffer table slot. Construct it with Value, Buffer,
BufferOffset, BufferByteOffset, BufferRollingOffset or BufferIteratingOffset.
The zero value is Skip.
*/
type Bind[T any] struct {
	kind   bindKind
	value  *T
	buffer *TypedBuffer[T]
	offset uint64
}

// Value copies *v into the slot at encode time.
func Value[T any](v *T) Bind[T] {
	if v == nil {
		abort("Value called with nil pointer")
	}
	return Bind[T]{kind: bindValue, value: v}
}

// Buffer binds buffer with elementOffset elements of T skipped.
func Buffer[T any](buffer *TypedBuffer[T], elementOffset uint64) Bind[T] {
	if buffer == nil {
		abort("Buffer called with nil buffer")
	}
	return Bind[T]{kind: bindBuffer, buffer: buffer, offset: buffer.byteOffset(elementOffset)}
}

// BufferOffset changes the offset of the buffer already bound to the slot.
func BufferOffset[T any](elementOffset uint64) Bind[T] {
	return Bind[T]{kind: bindBufferOffset, offset: elementOffset * sizeOf[T]()}
}

// BufferByteOffset is BufferOffset in bytes, the offset must be a multiple
// of the size of T.
func BufferByteOffset[T any](byteOffset uint64) Bind[T] {
	checkByteOffset[T](byteOffset)
	return Bind[T]{kind: bindBufferOffset, offset: byteOffset}
}

/*
BufferRollingOffset binds the whole buffer when elementOffset is 0 and only
updates the offset otherwise, for walking a buffer of per draw data from the
start.
*/
func BufferRollingOffset[T any](buffer *TypedBuffer[T], elementOffset uint64) Bind[T] {
	if elementOffset == 0 {
		return Buffer(buffer, 0)
	}
	return Bind[T]{kind: bindBufferOffset, offset: buffer.byteOffset(elementOffset)}
}

// BufferIteratingOffset binds the whole buffer on the first iteration and
// only updates the offset after that.
func BufferIteratingOffset[T any](iteration int, buffer *TypedBuffer[T], elementOffset uint64) Bind[T] {
	if iteration == 0 {
		return Buffer(buffer, elementOffset)
	}
	return Bind[T]{kind: bindBufferOffset, offset: buffer.byteOffset(elementOffset)}
}

func (b Bind[T]) IsSkip() bool {
	return b.kind == bindSkip
}

func (b Bind[T]) String() string {
	return b.kind.String()
}

func (b Bind[T]) Encode(e Encoder, slot uint32) {
	switch b.kind {
	case bindSkip:
	case bindValue:
		data := util.Bytes(b.value)
		checkBytes(data)
		e.Bytes(slot, data)
	case bindBuffer:
		e.BufferAndOffset(slot, b.buffer.Native(), b.offset)
	case bindBufferOffset:
		e.BufferOffset(slot, b.offset)
	default:
		abort("Invalid bind kind: %d", b.kind)
	}
}

// BindMany attaches an array of T to a buffer table slot. The zero value is
// Skip.
type BindMany[T any] struct {
	kind   bindKind
	values []T
	buffer *TypedBuffer[T]
	offset uint64
}

// Values copies vs into the slot at encode time.
func Values[T any](vs []T) BindMany[T] {
	return BindMany[T]{kind: bindValue, values: vs}
}

func ManyBuffer[T any](buffer *TypedBuffer[T], elementOffset uint64) BindMany[T] {
	if buffer == nil {
		abort("ManyBuffer called with nil buffer")
	}
	return BindMany[T]{kind: bindBuffer, buffer: buffer, offset: buffer.byteOffset(elementOffset)}
}

func ManyBufferOffset[T any](elementOffset uint64) BindMany[T] {
	return BindMany[T]{kind: bindBufferOffset, offset: elementOffset * sizeOf[T]()}
}

func ManyBufferByteOffset[T any](byteOffset uint64) BindMany[T] {
	checkByteOffset[T](byteOffset)
	return BindMany[T]{kind: bindBufferOffset, offset: byteOffset}
}

func ManyBufferRollingOffset[T any](buffer *TypedBuffer[T], elementOffset uint64) BindMany[T] {
	if elementOffset == 0 {
		return ManyBuffer(buffer, 0)
	}
	return BindMany[T]{kind: bindBufferOffset, offset: buffer.byteOffset(elementOffset)}
}

func ManyBufferIteratingOffset[T any](iteration int, buffer *TypedBuffer[T], elementOffset uint64) BindMany[T] {
	if iteration == 0 {
		return ManyBuffer(buffer, elementOffset)
	}
	return BindMany[T]{kind: bindBufferOffset, offset: buffer.byteOffset(elementOffset)}
}

func (b BindMany[T]) IsSkip() bool {
	return b.kind == bindSkip
}

func (b BindMany[T]) String() string {
	return b.kind.String()
}

func (b BindMany[T]) Encode(e Encoder, slot uint32) {
	switch b.kind {
	case bindSkip:
	case bindValue:
		data := util.SliceBytes(b.values)
		checkBytes(data)
		e.Bytes(slot, data)
	case bindBuffer:
		e.BufferAndOffset(slot, b.buffer.Native(), b.offset)
	case bindBufferOffset:
		e.BufferOffset(slot, b.offset)
	default:
		abort("Invalid bind kind: %d", b.kind)
	}
}

// BindTexture attaches a texture to a texture table slot. The zero value is
// Skip.
type BindTexture struct {
	kind    bindKind
	texture NativeTexture
}

func Texture(texture NativeTexture) BindTexture {
	if texture == nil {
		return NullTexture()
	}
	return BindTexture{kind: bindBuffer, texture: texture}
}

// NullTexture clears the slot.
func NullTexture() BindTexture {
	return BindTexture{kind: bindNull}
}

func (b BindTexture) IsSkip() bool {
	return b.kind == bindSkip
}

func (b BindTexture) Encode(e Encoder, slot uint32) {
	switch b.kind {
	case bindSkip:
	case bindBuffer:
		e.Texture(slot, b.texture)
	case bindNull:
		e.Texture(slot, nil)
	default:
		abort("Invalid bind kind: %d", b.kind)
	}
}

// BindAccelerationStructure attaches an acceleration structure to a buffer
// table slot. The zero value is Skip.
type BindAccelerationStructure struct {
	kind bindKind
	as   NativeAccelerationStructure
}

func AccelerationStructure(as NativeAccelerationStructure) BindAccelerationStructure {
	if as == nil {
		return NullAccelerationStructure()
	}
	return BindAccelerationStructure{kind: bindBuffer, as: as}
}

func NullAccelerationStructure() BindAccelerationStructure {
	return BindAccelerationStructure{kind: bindNull}
}

func (b BindAccelerationStructure) IsSkip() bool {
	return b.kind == bindSkip
}

func (b BindAccelerationStructure) Encode(e Encoder, slot uint32) {
	switch b.kind {
	case bindSkip:
	case bindBuffer:
		e.AccelerationStructure(slot, b.as)
	case bindNull:
		e.AccelerationStructure(slot, nil)
	default:
		abort("Invalid bind kind: %d", b.kind)
	}
}

var (
	_ Binding = Bind[float32]{}
	_ Binding = BindMany[float32]{}
	_ Binding = BindTexture{}
	_ Binding = BindAccelerationStructure{}
)
