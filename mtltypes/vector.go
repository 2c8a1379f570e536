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

package mtltypes

// Vector types follow the Metal layout, a 3 component vector is padded to
// the size of a 4 component one.

type Float2 struct{ X, Y float32 }

type Float3 struct {
	X, Y, Z float32
	_       float32
}

type Float4 struct{ X, Y, Z, W float32 }

type Half2 struct{ X, Y Half }

type Half3 struct {
	X, Y, Z Half
	_       Half
}

type Half4 struct{ X, Y, Z, W Half }

type Int2 struct{ X, Y int32 }

type Int3 struct {
	X, Y, Z int32
	_       int32
}

type Int4 struct{ X, Y, Z, W int32 }

type UInt2 struct{ X, Y uint32 }

type UInt3 struct {
	X, Y, Z uint32
	_       uint32
}

type UInt4 struct{ X, Y, Z, W uint32 }

type Short2 struct{ X, Y int16 }

type Short3 struct {
	X, Y, Z int16
	_       int16
}

type Short4 struct{ X, Y, Z, W int16 }

type UShort2 struct{ X, Y uint16 }

type UShort3 struct {
	X, Y, Z uint16
	_       uint16
}

type UShort4 struct{ X, Y, Z, W uint16 }

type Char2 struct{ X, Y int8 }

type Char3 struct {
	X, Y, Z int8
	_       int8
}

type Char4 struct{ X, Y, Z, W int8 }

type UChar2 struct{ X, Y uint8 }

type UChar3 struct {
	X, Y, Z uint8
	_       uint8
}

type UChar4 struct{ X, Y, Z, W uint8 }

type Bool2 struct{ X, Y bool }

type Bool3 struct {
	X, Y, Z bool
	_       bool
}

type Bool4 struct{ X, Y, Z, W bool }

type Long2 struct{ X, Y int64 }

type Long3 struct {
	X, Y, Z int64
	_       int64
}

type Long4 struct{ X, Y, Z, W int64 }

type ULong2 struct{ X, Y uint64 }

type ULong3 struct {
	X, Y, Z uint64
	_       uint64
}

type ULong4 struct{ X, Y, Z, W uint64 }

// Packed vectors have no padding and the alignment of their scalar.

type PackedFloat2 struct{ X, Y float32 }

type PackedFloat3 struct{ X, Y, Z float32 }

type PackedFloat4 struct{ X, Y, Z, W float32 }

type PackedHalf2 struct{ X, Y Half }

type PackedHalf3 struct{ X, Y, Z Half }

type PackedHalf4 struct{ X, Y, Z, W Half }

type PackedInt2 struct{ X, Y int32 }

type PackedInt3 struct{ X, Y, Z int32 }

type PackedInt4 struct{ X, Y, Z, W int32 }

type PackedUInt2 struct{ X, Y uint32 }

type PackedUInt3 struct{ X, Y, Z uint32 }

type PackedUInt4 struct{ X, Y, Z, W uint32 }

type PackedShort2 struct{ X, Y int16 }

type PackedShort3 struct{ X, Y, Z int16 }

type PackedShort4 struct{ X, Y, Z, W int16 }

type PackedUShort2 struct{ X, Y uint16 }

type PackedUShort3 struct{ X, Y, Z uint16 }

type PackedUShort4 struct{ X, Y, Z, W uint16 }

type PackedChar2 struct{ X, Y int8 }

type PackedChar3 struct{ X, Y, Z int8 }

type PackedChar4 struct{ X, Y, Z, W int8 }

type PackedUChar2 struct{ X, Y uint8 }

type PackedUChar3 struct{ X, Y, Z uint8 }

type PackedUChar4 struct{ X, Y, Z, W uint8 }

type PackedBool2 struct{ X, Y bool }

type PackedBool3 struct{ X, Y, Z bool }

type PackedBool4 struct{ X, Y, Z, W bool }

// Matrices are column major, FloatCxR has C columns of R rows.

type Float2x2 [2]Float2

type Float2x3 [2]Float3

type Float2x4 [2]Float4

type Float3x2 [3]Float2

type Float3x3 [3]Float3

type Float3x4 [3]Float4

type Float4x2 [4]Float2

type Float4x3 [4]Float3

type Float4x4 [4]Float4

type Half2x2 [2]Half2

type Half2x3 [2]Half3

type Half2x4 [2]Half4

type Half3x2 [3]Half2

type Half3x3 [3]Half3

type Half3x4 [3]Half4

type Half4x2 [4]Half2

type Half4x3 [4]Half3

type Half4x4 [4]Half4
