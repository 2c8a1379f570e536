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

// Package mtltypes defines Go types with the size of the Metal shading
// language scalar, vector and matrix types.
package mtltypes

import (
	"reflect"
	"strings"
)

/*
Types maps the spelling of every Metal scalar, vector and matrix type as it
appears in clang output to the Go type with the same size. The Go alignment
may be smaller than the Metal alignment, generated structs insert explicit
padding so field offsets still match.
*/
var Types = map[string]reflect.Type{
	"float":          reflect.TypeFor[float32](),
	"half":           reflect.TypeFor[Half](),
	"int":            reflect.TypeFor[int32](),
	"uint":           reflect.TypeFor[uint32](),
	"short":          reflect.TypeFor[int16](),
	"ushort":         reflect.TypeFor[uint16](),
	"char":           reflect.TypeFor[int8](),
	"uchar":          reflect.TypeFor[uint8](),
	"bool":           reflect.TypeFor[bool](),
	"long":           reflect.TypeFor[int64](),
	"ulong":          reflect.TypeFor[uint64](),
	"unsigned int":   reflect.TypeFor[uint32](),
	"unsigned short": reflect.TypeFor[uint16](),
	"unsigned char":  reflect.TypeFor[uint8](),
	"signed char":    reflect.TypeFor[int8](),
	"unsigned long":  reflect.TypeFor[uint64](),
	"_Bool":          reflect.TypeFor[bool](),
	"int32_t":        reflect.TypeFor[int32](),
	"uint32_t":       reflect.TypeFor[uint32](),
	"int16_t":        reflect.TypeFor[int16](),
	"uint16_t":       reflect.TypeFor[uint16](),
	"int8_t":         reflect.TypeFor[int8](),
	"uint8_t":        reflect.TypeFor[uint8](),
	"int64_t":        reflect.TypeFor[int64](),
	"uint64_t":       reflect.TypeFor[uint64](),
	"atomic_int":     reflect.TypeFor[int32](),
	"atomic_uint":    reflect.TypeFor[uint32](),
	"atomic_bool":    reflect.TypeFor[bool](),
	"atomic_float":   reflect.TypeFor[float32](),
	"atomic_ulong":   reflect.TypeFor[uint64](),
	"float2":         reflect.TypeFor[Float2](),
	"packed_float2":  reflect.TypeFor[PackedFloat2](),
	"float3":         reflect.TypeFor[Float3](),
	"packed_float3":  reflect.TypeFor[PackedFloat3](),
	"float4":         reflect.TypeFor[Float4](),
	"packed_float4":  reflect.TypeFor[PackedFloat4](),
	"half2":          reflect.TypeFor[Half2](),
	"packed_half2":   reflect.TypeFor[PackedHalf2](),
	"half3":          reflect.TypeFor[Half3](),
	"packed_half3":   reflect.TypeFor[PackedHalf3](),
	"half4":          reflect.TypeFor[Half4](),
	"packed_half4":   reflect.TypeFor[PackedHalf4](),
	"int2":           reflect.TypeFor[Int2](),
	"packed_int2":    reflect.TypeFor[PackedInt2](),
	"int3":           reflect.TypeFor[Int3](),
	"packed_int3":    reflect.TypeFor[PackedInt3](),
	"int4":           reflect.TypeFor[Int4](),
	"packed_int4":    reflect.TypeFor[PackedInt4](),
	"uint2":          reflect.TypeFor[UInt2](),
	"packed_uint2":   reflect.TypeFor[PackedUInt2](),
	"uint3":          reflect.TypeFor[UInt3](),
	"packed_uint3":   reflect.TypeFor[PackedUInt3](),
	"uint4":          reflect.TypeFor[UInt4](),
	"packed_uint4":   reflect.TypeFor[PackedUInt4](),
	"short2":         reflect.TypeFor[Short2](),
	"packed_short2":  reflect.TypeFor[PackedShort2](),
	"short3":         reflect.TypeFor[Short3](),
	"packed_short3":  reflect.TypeFor[PackedShort3](),
	"short4":         reflect.TypeFor[Short4](),
	"packed_short4":  reflect.TypeFor[PackedShort4](),
	"ushort2":        reflect.TypeFor[UShort2](),
	"packed_ushort2": reflect.TypeFor[PackedUShort2](),
	"ushort3":        reflect.TypeFor[UShort3](),
	"packed_ushort3": reflect.TypeFor[PackedUShort3](),
	"ushort4":        reflect.TypeFor[UShort4](),
	"packed_ushort4": reflect.TypeFor[PackedUShort4](),
	"char2":          reflect.TypeFor[Char2](),
	"packed_char2":   reflect.TypeFor[PackedChar2](),
	"char3":          reflect.TypeFor[Char3](),
	"packed_char3":   reflect.TypeFor[PackedChar3](),
	"char4":          reflect.TypeFor[Char4](),
	"packed_char4":   reflect.TypeFor[PackedChar4](),
	"uchar2":         reflect.TypeFor[UChar2](),
	"packed_uchar2":  reflect.TypeFor[PackedUChar2](),
	"uchar3":         reflect.TypeFor[UChar3](),
	"packed_uchar3":  reflect.TypeFor[PackedUChar3](),
	"uchar4":         reflect.TypeFor[UChar4](),
	"packed_uchar4":  reflect.TypeFor[PackedUChar4](),
	"bool2":          reflect.TypeFor[Bool2](),
	"packed_bool2":   reflect.TypeFor[PackedBool2](),
	"bool3":          reflect.TypeFor[Bool3](),
	"packed_bool3":   reflect.TypeFor[PackedBool3](),
	"bool4":          reflect.TypeFor[Bool4](),
	"packed_bool4":   reflect.TypeFor[PackedBool4](),
	"long2":          reflect.TypeFor[Long2](),
	"long3":          reflect.TypeFor[Long3](),
	"long4":          reflect.TypeFor[Long4](),
	"ulong2":         reflect.TypeFor[ULong2](),
	"ulong3":         reflect.TypeFor[ULong3](),
	"ulong4":         reflect.TypeFor[ULong4](),
	"float2x2":       reflect.TypeFor[Float2x2](),
	"float2x3":       reflect.TypeFor[Float2x3](),
	"float2x4":       reflect.TypeFor[Float2x4](),
	"float3x2":       reflect.TypeFor[Float3x2](),
	"float3x3":       reflect.TypeFor[Float3x3](),
	"float3x4":       reflect.TypeFor[Float3x4](),
	"float4x2":       reflect.TypeFor[Float4x2](),
	"float4x3":       reflect.TypeFor[Float4x3](),
	"float4x4":       reflect.TypeFor[Float4x4](),
	"half2x2":        reflect.TypeFor[Half2x2](),
	"half2x3":        reflect.TypeFor[Half2x3](),
	"half2x4":        reflect.TypeFor[Half2x4](),
	"half3x2":        reflect.TypeFor[Half3x2](),
	"half3x3":        reflect.TypeFor[Half3x3](),
	"half3x4":        reflect.TypeFor[Half3x4](),
	"half4x2":        reflect.TypeFor[Half4x2](),
	"half4x3":        reflect.TypeFor[Half4x3](),
	"half4x4":        reflect.TypeFor[Half4x4](),
}

// GPUAddress is the 64 bit GPU virtual address a Metal pointer holds in memory.
type GPUAddress uint64

// ResourceID is the 64 bit handle of a texture or sampler stored in an
// argument buffer.
type ResourceID uint64

/*
Lookup resolves a Metal type spelling to its Go type. Pointers in any address
space resolve to GPUAddress and texture, depth, sampler and acceleration
structure types to ResourceID.
*/
func Lookup(spelling string) (reflect.Type, bool) {
	s := strings.TrimSpace(spelling)
	if strings.HasSuffix(s, "*") {
		return reflect.TypeFor[GPUAddress](), true
	}
	s = strings.TrimPrefix(s, "const ")
	s = strings.TrimPrefix(s, "metal::")
	s = strings.TrimPrefix(s, "raytracing::")

	switch {
	case strings.HasPrefix(s, "texture"), strings.HasPrefix(s, "depth"),
		s == "sampler", s == "MTLResourceID",
		strings.HasSuffix(s, "acceleration_structure"):
		return reflect.TypeFor[ResourceID](), true
	}

	t, ok := Types[s]
	return t, ok
}
