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

package codegen

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/rhi/mtlbind"
	"goarrg.com/rhi/mtlbind/mtltypes"
	"goarrg.com/rhi/mtlbind/reflector"
	"golang.org/x/tools/imports"
)

const exampleDir = "../internal/example"

func exampleRecord() *reflector.Record {
	return &reflector.Record{
		Source: "shaders.metal",
		FunctionConstants: []reflector.FunctionConstant{
			{Name: "use_fog", DataType: "bool", Index: 0},
			{Name: "fog_density", DataType: "float", Index: 1},
		},
		Functions: []reflector.Function{
			{
				Name: "vertex_main", Stage: mtlbind.StageVertex,
				Params: []reflector.Param{
					{Name: "matrix", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "float4x4"},
				},
			},
			{
				Name: "fragment_main", Stage: mtlbind.StageFragment,
				Params: []reflector.Param{
					{Name: "albedo", Class: mtlbind.ResourceClassTexture, Slot: 0, ElementType: "texture2d<half>"},
					{Name: "lights", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "Light", Multiplicity: reflector.MultiplicityMany},
					{Name: "world", Class: mtlbind.ResourceClassBuffer, Slot: 1, ElementType: "World"},
				},
				FunctionConstants: []int{0, 1},
			},
			{
				Name: "cull_lights", Stage: mtlbind.StageCompute,
				Params: []reflector.Param{
					{Name: "world", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "World"},
					{Name: "visible", Class: mtlbind.ResourceClassBuffer, Slot: 1, ElementType: "uint", Mutable: true, Multiplicity: reflector.MultiplicityMany},
					{Name: "scene", Class: mtlbind.ResourceClassAccelerationStructure, Slot: 2, ElementType: "metal::raytracing::instance_acceleration_structure"},
				},
			},
		},
	}
}

func exampleTypes(t *testing.T) *reflector.TypeRecord {
	t.Helper()
	ast, err := os.Open(filepath.Join("..", "reflector", "testdata", "common_h.ast"))
	require.NoError(t, err)
	defer ast.Close()

	record, err := reflector.ParseDecls("shader_src/common.h", []string{"shader_src/common.h", "shader_src/other/light.h"}, ast)
	require.NoError(t, err)

	layout, err := os.Open(filepath.Join("..", "reflector", "testdata", "common_h.layout"))
	require.NoError(t, err)
	defer layout.Close()
	require.NoError(t, reflector.ParseLayouts(record, layout))
	return record
}

func readGolden(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(exampleDir, name))
	require.NoError(t, err)
	src, err := imports.Process(name, data, nil)
	require.NoError(t, err)
	return string(src)
}

func TestGoTypeKeepsNamedTypes(t *testing.T) {
	g := generator{}
	assert.Equal(t, "mtltypes.Float4x4", g.goType(reflect.TypeFor[mtltypes.Float4x4]()))
	assert.Equal(t, "mtltypes.Float3x3", g.goType(reflect.TypeFor[mtltypes.Float3x3]()))
	assert.Equal(t, "[2]mtltypes.Float4x4", g.goType(reflect.TypeFor[[2]mtltypes.Float4x4]()))
	assert.Equal(t, "[3]uint32", g.goType(reflect.TypeFor[[3]uint32]()))
	assert.Equal(t, []string{typesPkg}, g.imports)
}

func TestBindingsMatrixParam(t *testing.T) {
	r := &reflector.Record{
		Source: "matrix.metal",
		Functions: []reflector.Function{{
			Name:   "v",
			Stage:  mtlbind.StageVertex,
			Params: []reflector.Param{{Name: "m", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "float4x4"}},
		}},
	}
	src, err := Bindings(r, Options{Package: "example"})
	require.NoError(t, err)
	assert.Contains(t, string(src), "mtlbind.Bind[mtltypes.Float4x4]")
}

func TestGoName(t *testing.T) {
	for in, expect := range map[string]string{
		"vertex_main":     "VertexMain",
		"buf0":            "Buf0",
		"MAX_LIGHTS":      "MaxLights",
		"LENGTH":          "Length",
		"worldMatrix":     "WorldMatrix",
		"ShadingModeNone": "ShadingModeNone",
		"camera_position": "CameraPosition",
		"__x":             "X",
		"2d":              "X2d",
		"a":               "A",
		"":                "",
	} {
		assert.Equal(t, expect, GoName(in), in)
	}
}

func TestBindingsGolden(t *testing.T) {
	src, err := Bindings(exampleRecord(), Options{
		Package: "example",
		Command: "goarrg.com/rhi/mtlbind/cmd/mtlbindgen -package example shaders.metal",
	})
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, "zmtlbind_shaders.go"), string(src))
}

func TestBindingsDeterministic(t *testing.T) {
	a, err := Bindings(exampleRecord(), Options{Package: "shaders"})
	require.NoError(t, err)
	b, err := Bindings(exampleRecord(), Options{Package: "shaders"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, string(a), "// Code generated by mtlbindgen; DO NOT EDIT.")
}

func TestBindingsTypesImport(t *testing.T) {
	src, err := Bindings(exampleRecord(), Options{
		Package:     "shaders",
		TypesImport: "goarrg.com/game/gpu/shadertypes",
	})
	require.NoError(t, err)
	assert.Contains(t, string(src), `"goarrg.com/game/gpu/shadertypes"`)
	assert.Contains(t, string(src), "mtlbind.BindMany[shadertypes.Light]")
	assert.Contains(t, string(src), "mtlbind.Bind[mtltypes.Float4x4]")
}

func TestBindingsFieldCollision(t *testing.T) {
	record := &reflector.Record{
		Source: "collide.metal",
		Functions: []reflector.Function{{
			Name: "k", Stage: mtlbind.StageCompute,
			Params: []reflector.Param{
				{Name: "in_data", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "float"},
				{Name: "inData", Class: mtlbind.ResourceClassBuffer, Slot: 1, ElementType: "float"},
			},
		}},
	}
	_, err := Bindings(record, Options{Package: "p"})
	require.Error(t, err)

	var collision ErrorNameCollision
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "InData", collision.GoName)
	assert.Equal(t, [2]string{"in_data", "inData"}, collision.Names)
}

func TestBindingsReservedField(t *testing.T) {
	record := &reflector.Record{
		Source: "reserved.metal",
		Functions: []reflector.Function{{
			Name: "k", Stage: mtlbind.StageCompute,
			Params: []reflector.Param{
				{Name: "encode", Class: mtlbind.ResourceClassBuffer, Slot: 0, ElementType: "float"},
			},
		}},
	}
	_, err := Bindings(record, Options{Package: "p"})
	assert.True(t, errors.Is(err, ErrorNameCollision{}))
}

func TestBindingsRejectsInvalidRecord(t *testing.T) {
	record := &reflector.Record{
		Source: "conflict.metal",
		Functions: []reflector.Function{{
			Name: "k", Stage: mtlbind.StageCompute,
			Params: []reflector.Param{
				{Name: "a", Class: mtlbind.ResourceClassBuffer, Slot: 3, ElementType: "float"},
				{Name: "b", Class: mtlbind.ResourceClassAccelerationStructure, Slot: 3},
			},
		}},
	}
	_, err := Bindings(record, Options{Package: "p"})
	assert.True(t, errors.Is(err, mtlbind.ErrorSlotConflict{}))
}

func TestBindingsUnsupportedConstantType(t *testing.T) {
	record := &reflector.Record{
		Source:            "consts.metal",
		FunctionConstants: []reflector.FunctionConstant{{Name: "m", DataType: "float4x4", Index: 0}},
		Functions:         []reflector.Function{},
	}
	_, err := Bindings(record, Options{Package: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float4x4")
}

func TestBindingsNoParams(t *testing.T) {
	record := &reflector.Record{
		Source:    "empty.metal",
		Functions: []reflector.Function{{Name: "fullscreen", Stage: mtlbind.StageVertex, Params: []reflector.Param{}}},
	}
	src, err := Bindings(record, Options{Package: "p"})
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (_ *FullscreenBinds) Encode(e mtlbind.Vertex) {\n}")
	assert.Contains(t, string(src), "return nil")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "zmtlbind_shaders.go", FileName("internal/example/shaders.metal"))
	assert.Equal(t, "zmtlbind_post_fx.go", FileName("post.fx.wgsl"))
}

func TestTypesGolden(t *testing.T) {
	record := exampleTypes(t)
	acc := &reflector.TypeAccumulator{}
	acc.AddRecord(record)

	src, test, err := Types([]*reflector.TypeRecord{record}, acc, Options{
		Package: "example",
		Command: "goarrg.com/rhi/mtlbind/cmd/mtlbindgen -package example -types shader_src/common.h",
	})
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, TypesFileName), string(src))
	assert.Equal(t, readGolden(t, TypesTestFileName), string(test))
}

func TestTypesFirstHeaderWins(t *testing.T) {
	record := exampleTypes(t)
	again := exampleTypes(t)
	again.Source = "shader_src/other.h"

	acc := &reflector.TypeAccumulator{}
	acc.AddRecord(record)
	acc.AddRecord(again)
	assert.Equal(t, 6, acc.Len())

	src, _, err := Types([]*reflector.TypeRecord{record, again}, acc, Options{Package: "p"})
	require.NoError(t, err)
	assert.Contains(t, string(src), "// Source: shader_src/other.h")
	assert.Equal(t, 1, strings.Count(string(src), "type World struct"))
}

func TestTypesUnknownFieldType(t *testing.T) {
	record := &reflector.TypeRecord{
		Source: "a.h",
		Structs: []reflector.Struct{{
			Name: "Holder", Size: 16, Align: 16,
			Fields: []reflector.Field{{Name: "thing", Type: "Mystery", Offset: 0}},
		}},
	}
	acc := &reflector.TypeAccumulator{}
	acc.AddRecord(record)

	_, _, err := Types([]*reflector.TypeRecord{record}, acc, Options{Package: "p"})
	require.Error(t, err)

	var unknown ErrorUnknownType
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Holder.thing", unknown.Scope)
	assert.Equal(t, "Mystery", unknown.Type)
}

func TestTypesOverlappingFields(t *testing.T) {
	record := &reflector.TypeRecord{
		Source: "a.h",
		Structs: []reflector.Struct{{
			Name: "Bad", Size: 8, Align: 4,
			Fields: []reflector.Field{
				{Name: "a", Type: "float2", Offset: 0},
				{Name: "b", Type: "float", Offset: 4},
			},
		}},
	}
	acc := &reflector.TypeAccumulator{}
	_, _, err := Types([]*reflector.TypeRecord{record}, acc, Options{Package: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad.b")
}

func TestTypesCollectedButMissing(t *testing.T) {
	acc := &reflector.TypeAccumulator{}
	acc.Add("Ghost")
	_, _, err := Types(nil, acc, Options{Package: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestGoPackageName(t *testing.T) {
	assert.Equal(t, "shaders", GoPackageName("shaders"))
	assert.Equal(t, "gpushaders", GoPackageName("gpu-Shaders"))
	assert.Equal(t, "p3d", GoPackageName("3d"))
	assert.Equal(t, "p", GoPackageName("_"))
}

func TestPackageName(t *testing.T) {
	name, err := PackageName(exampleDir)
	require.NoError(t, err)
	assert.Equal(t, "example", name)
}
