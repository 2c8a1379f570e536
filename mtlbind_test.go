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

package mtlbind_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/rhi/mtlbind"
	"goarrg.com/rhi/mtlbind/bindtest"
)

type float4 [4]float32

func TestSkipEncodesNothing(t *testing.T) {
	r := bindtest.Recorder{}
	for _, e := range []mtlbind.Encoder{r.Vertex(), r.Fragment(), r.Compute()} {
		mtlbind.Bind[float4]{}.Encode(e, 0)
		mtlbind.BindMany[float4]{}.Encode(e, 1)
		mtlbind.BindTexture{}.Encode(e, 0)
		mtlbind.BindAccelerationStructure{}.Encode(e, 2)
	}
	assert.Empty(t, r.Calls)

	assert.True(t, mtlbind.Bind[float4]{}.IsSkip())
	assert.True(t, mtlbind.BindMany[float4]{}.IsSkip())
	assert.True(t, mtlbind.BindTexture{}.IsSkip())
	assert.True(t, mtlbind.BindAccelerationStructure{}.IsSkip())
}

func TestValueCopiesBytes(t *testing.T) {
	r := bindtest.Recorder{}
	v := float4{1, 2, 3, 4}
	mtlbind.Value(&v).Encode(r.Vertex(), 3)

	require.Len(t, r.Calls, 1)
	c := r.Calls[0]
	assert.Equal(t, mtlbind.StageVertex, c.Stage)
	assert.Equal(t, bindtest.MethodBytes, c.Method)
	assert.Equal(t, uint32(3), c.Slot)
	require.Len(t, c.Data, 16)
	assert.Equal(t, float32(3), math.Float32frombits(binary.NativeEndian.Uint32(c.Data[8:])))
}

func TestValuesCopiesSlice(t *testing.T) {
	r := bindtest.Recorder{}
	mtlbind.Values([]uint32{1, 2, 3}).Encode(r.Compute(), 0)
	require.Len(t, r.Calls, 1)
	assert.Len(t, r.Calls[0].Data, 12)
}

func TestInlineBytesLimit(t *testing.T) {
	r := bindtest.Recorder{}
	big := make([]float4, 257)
	assert.PanicsWithValue(t, "Fatal Error", func() {
		mtlbind.Values(big).Encode(r.Fragment(), 0)
	})
	assert.PanicsWithValue(t, "Fatal Error", func() {
		mtlbind.Values([]float4{}).Encode(r.Fragment(), 0)
	})
	assert.Empty(t, r.Calls)
}

func TestBufferOffsets(t *testing.T) {
	r := bindtest.Recorder{}
	native := bindtest.NewBuffer("positions", 16*8)
	buf := mtlbind.NewTypedBuffer[float4](native, 8)

	mtlbind.Buffer(buf, 2).Encode(r.Vertex(), 1)
	mtlbind.BufferOffset[float4](5).Encode(r.Vertex(), 1)
	mtlbind.BufferByteOffset[float4](48).Encode(r.Vertex(), 1)
	mtlbind.ManyBuffer(buf, 0).Encode(r.Compute(), 4)
	mtlbind.ManyBufferOffset[float4](1).Encode(r.Compute(), 4)

	require.Len(t, r.Calls, 5)
	assert.Equal(t, bindtest.MethodBuffer, r.Calls[0].Method)
	assert.Same(t, native, r.Calls[0].Resource)
	assert.Equal(t, uint64(32), r.Calls[0].Offset)
	assert.Equal(t, bindtest.MethodBufferOffset, r.Calls[1].Method)
	assert.Equal(t, uint64(80), r.Calls[1].Offset)
	assert.Equal(t, uint64(48), r.Calls[2].Offset)
	assert.Equal(t, mtlbind.StageCompute, r.Calls[3].Stage)
	assert.Equal(t, uint64(0), r.Calls[3].Offset)
	assert.Equal(t, uint64(16), r.Calls[4].Offset)
}

func TestBufferByteOffsetMustBeAligned(t *testing.T) {
	assert.PanicsWithValue(t, "Fatal Error", func() {
		mtlbind.BufferByteOffset[float4](8)
	})
	assert.PanicsWithValue(t, "Fatal Error", func() {
		mtlbind.ManyBufferByteOffset[uint32](6)
	})
	assert.NotPanics(t, func() {
		mtlbind.ManyBufferByteOffset[uint32](8)
	})
}

func TestBufferElementOffsetPastEnd(t *testing.T) {
	buf := mtlbind.NewTypedBuffer[uint32](bindtest.NewBuffer("", 16), 4)
	assert.NotPanics(t, func() { mtlbind.Buffer(buf, 4) })
	assert.PanicsWithValue(t, "Fatal Error", func() { mtlbind.Buffer(buf, 5) })
}

func TestRollingAndIteratingOffsets(t *testing.T) {
	r := bindtest.Recorder{}
	buf := mtlbind.NewTypedBuffer[uint32](bindtest.NewBuffer("", 64), 16)

	for i := uint64(0); i < 3; i++ {
		mtlbind.BufferRollingOffset(buf, i).Encode(r.Fragment(), 0)
	}
	for i := 0; i < 3; i++ {
		mtlbind.ManyBufferIteratingOffset(i, buf, uint64(i)*2).Encode(r.Fragment(), 1)
	}

	methods := []bindtest.Method{}
	offsets := []uint64{}
	for _, c := range r.Calls {
		methods = append(methods, c.Method)
		offsets = append(offsets, c.Offset)
	}
	assert.Equal(t, []bindtest.Method{
		bindtest.MethodBuffer, bindtest.MethodBufferOffset, bindtest.MethodBufferOffset,
		bindtest.MethodBuffer, bindtest.MethodBufferOffset, bindtest.MethodBufferOffset,
	}, methods)
	assert.Equal(t, []uint64{0, 4, 8, 0, 8, 16}, offsets)
}

func TestTextureAndAccelerationStructure(t *testing.T) {
	r := bindtest.Recorder{}
	tex := &bindtest.Texture{Label: "albedo", W: 4, H: 4}
	as := &bindtest.AccelerationStructure{Label: "scene", Bytes: 1024}

	mtlbind.Texture(tex).Encode(r.Fragment(), 7)
	mtlbind.NullTexture().Encode(r.Fragment(), 8)
	mtlbind.AccelerationStructure(as).Encode(r.Compute(), 2)
	mtlbind.NullAccelerationStructure().Encode(r.Compute(), 3)

	require.Len(t, r.Calls, 4)
	assert.Same(t, tex, r.Calls[0].Resource)
	assert.Nil(t, r.Calls[1].Resource)
	assert.Equal(t, bindtest.MethodAccelerationStructure, r.Calls[2].Method)
	assert.Same(t, as, r.Calls[2].Resource)
	assert.Nil(t, r.Calls[3].Resource)
}

func TestSlotRange(t *testing.T) {
	r := bindtest.Recorder{}
	v := uint32(1)
	assert.NotPanics(t, func() { mtlbind.Value(&v).Encode(r.Vertex(), mtlbind.MaxBufferSlots-1) })
	assert.PanicsWithValue(t, "Fatal Error", func() { mtlbind.Value(&v).Encode(r.Vertex(), mtlbind.MaxBufferSlots) })
	assert.NotPanics(t, func() { mtlbind.NullTexture().Encode(r.Compute(), mtlbind.MaxTextureSlots-1) })
	assert.PanicsWithValue(t, "Fatal Error", func() { mtlbind.NullTexture().Encode(r.Compute(), mtlbind.MaxTextureSlots) })
	assert.PanicsWithValue(t, "Fatal Error", func() {
		mtlbind.NullAccelerationStructure().Encode(r.Fragment(), mtlbind.MaxBufferSlots)
	})
}

func TestTypedBuffer(t *testing.T) {
	native := bindtest.NewBuffer("", 32)
	assert.PanicsWithValue(t, "Fatal Error", func() { mtlbind.NewTypedBuffer[float4](native, 3) })

	buf := mtlbind.NewTypedBuffer[float4](native, 2)
	assert.Equal(t, uint64(2), buf.Len())
	assert.Equal(t, uint64(16), buf.ElementSize())

	buf.Write(1, float4{0, 0, 0, 1})
	assert.Equal(t, float32(1), math.Float32frombits(binary.NativeEndian.Uint32(native.Data[28:])))
	assert.PanicsWithValue(t, "Fatal Error", func() { buf.Write(2, float4{}) })
}

type layout struct {
	name  string
	stage mtlbind.Stage
	slots []mtlbind.Slot
}

func (l layout) FunctionName() string { return l.name }
func (l layout) Stage() mtlbind.Stage { return l.stage }
func (l layout) Slots() []mtlbind.Slot { return l.slots }

func TestValidateFunction(t *testing.T) {
	ok := layout{name: "main_vertex", slots: []mtlbind.Slot{
		{Name: "buf0", Class: mtlbind.ResourceClassBuffer, Index: 0},
		{Name: "tex0", Class: mtlbind.ResourceClassTexture, Index: 0},
		{Name: "buf1", Class: mtlbind.ResourceClassBuffer, Index: 1},
	}}
	require.NoError(t, mtlbind.ValidateFunction(ok))

	conflict := layout{name: "main_kernel", stage: mtlbind.StageCompute, slots: []mtlbind.Slot{
		{Name: "accel", Class: mtlbind.ResourceClassAccelerationStructure, Index: 2},
		{Name: "data", Class: mtlbind.ResourceClassBuffer, Index: 2},
	}}
	err := mtlbind.ValidateFunction(conflict)
	require.Error(t, err)
	assert.ErrorIs(t, err, mtlbind.ErrorSlotConflict{})

	outOfRange := layout{name: "f", slots: []mtlbind.Slot{{Name: "b", Index: mtlbind.MaxBufferSlots}}}
	assert.Error(t, mtlbind.ValidateFunction(outOfRange))
}

func TestFunctionConstantValue(t *testing.T) {
	v := float32(2)
	c := mtlbind.NewFunctionConstantValue(4, mtlbind.DataTypeFloat, &v)
	assert.Equal(t, uint16(4), c.Index)
	assert.Equal(t, mtlbind.DataTypeFloat, c.Type)
	assert.Equal(t, math.Float32bits(2), binary.NativeEndian.Uint32(c.Data))

	v = 3
	assert.Equal(t, math.Float32bits(2), binary.NativeEndian.Uint32(c.Data))
}

func TestStageText(t *testing.T) {
	var s mtlbind.Stage
	require.NoError(t, s.UnmarshalText([]byte("kernel")))
	assert.Equal(t, mtlbind.StageCompute, s)
	b, err := mtlbind.StageFragment.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "fragment", string(b))
	assert.Error(t, s.UnmarshalText([]byte("mesh")))

	var c mtlbind.ResourceClass
	require.NoError(t, c.UnmarshalText([]byte("accelerationStructure")))
	assert.Equal(t, mtlbind.TableBuffer, c.Table())
	assert.Equal(t, mtlbind.TableTexture, mtlbind.ResourceClassTexture.Table())
}
