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

import (
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetalSizes(t *testing.T) {
	for _, tc := range []struct {
		name string
		size uintptr
	}{
		{"float", 4}, {"half", 2}, {"bool", 1}, {"ulong", 8},
		{"float2", 8}, {"float3", 16}, {"float4", 16},
		{"half3", 8}, {"uchar3", 4}, {"packed_float3", 12}, {"packed_half3", 6},
		{"float2x2", 16}, {"float3x3", 48}, {"float4x3", 64}, {"float4x4", 64},
		{"half3x3", 24}, {"atomic_uint", 4}, {"unsigned int", 4},
	} {
		typ, ok := Types[tc.name]
		require.True(t, ok, tc.name)
		assert.Equal(t, tc.size, typ.Size(), tc.name)
	}
}

func TestAllTypesArePlainData(t *testing.T) {
	for name, typ := range Types {
		assert.NoError(t, CheckPlainData(typ), name)
	}
}

func TestCheckPlainDataRejects(t *testing.T) {
	type withPointer struct {
		A float32
		B *float32
	}
	type nested struct {
		Inner [2]struct{ S string }
	}
	for _, typ := range []reflect.Type{
		reflect.TypeFor[withPointer](),
		reflect.TypeFor[nested](),
		reflect.TypeFor[[]float32](),
		reflect.TypeFor[map[int32]int32](),
		reflect.TypeFor[any](),
		reflect.TypeFor[func()](),
		reflect.TypeFor[chan int32](),
		reflect.TypeFor[uintptr](),
		reflect.TypeFor[int](),
	} {
		assert.Error(t, CheckPlainData(typ), typ.String())
	}
}

func TestHalfRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1, -2, 0.5, 65504, 6.1035156e-05, 5.9604645e-08, -0.33325195} {
		assert.Equal(t, f, HalfFromFloat32(f).Float32(), "%g", f)
	}

	assert.Equal(t, Half(0x3C00), HalfFromFloat32(1))
	assert.Equal(t, Half(0xC000), HalfFromFloat32(-2))
	assert.Equal(t, Half(0x7C00), HalfFromFloat32(1e6))
	assert.Equal(t, Half(0xFC00), HalfFromFloat32(float32(math.Inf(-1))))
	assert.True(t, math.IsNaN(float64(HalfFromFloat32(float32(math.NaN())).Float32())))
	assert.Equal(t, Half(0), HalfFromFloat32(1e-10))

	// 1 + 2^-11 is halfway between 1 and the next half, ties go to even
	assert.Equal(t, Half(0x3C00), HalfFromFloat32(1+1.0/2048))
	assert.Equal(t, Half(0x3C02), HalfFromFloat32(1+3.0/2048))
}

func TestVectorCopyIsBitIdentical(t *testing.T) {
	src := [3]Float3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}, {X: 7, Y: 8, Z: 9}}
	dst := src
	assert.Equal(t,
		unsafe.Slice((*byte)(unsafe.Pointer(&src)), unsafe.Sizeof(src)),
		unsafe.Slice((*byte)(unsafe.Pointer(&dst)), unsafe.Sizeof(dst)))
	assert.Equal(t, "0.5", HalfFromFloat32(0.5).String())
}

func TestLookup(t *testing.T) {
	for spelling, expect := range map[string]reflect.Type{
		"metal::float4":                 reflect.TypeFor[Float4](),
		"const uint":                    reflect.TypeFor[uint32](),
		"device float4 *":               reflect.TypeFor[GPUAddress](),
		"const constant Geometry *":     reflect.TypeFor[GPUAddress](),
		"metal::texture2d<float>":       reflect.TypeFor[ResourceID](),
		"depth2d<float>":                reflect.TypeFor[ResourceID](),
		"MTLResourceID":                 reflect.TypeFor[ResourceID](),
		"metal::raytracing::instance_acceleration_structure": reflect.TypeFor[ResourceID](),
	} {
		typ, ok := Lookup(spelling)
		require.True(t, ok, spelling)
		assert.Equal(t, expect, typ, spelling)
	}

	_, ok := Lookup("Geometry")
	assert.False(t, ok)
}
