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

package reflector

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	t        *testing.T
	calls    [][]string
	outputs  map[string]string
	failWith string
	unit     string
}

func (f *fakeCompiler) run(dir, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.failWith != "" {
		return f.failWith, errors.New("exit status 1")
	}
	switch {
	case slices.Contains(args, "-MM"):
		return f.outputs["-MM"], nil
	case slices.Contains(args, "-fdump-record-layouts"):
		unit := args[slices.Index(args, "-fdump-record-layouts")-2]
		data, err := os.ReadFile(unit)
		require.NoError(f.t, err)
		f.unit = string(data)
		return f.outputs["layout"], nil
	case slices.Contains(args, "-ast-dump"):
		return f.outputs["ast"], nil
	}
	return "", nil
}

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestMetalFrontendReflect(t *testing.T) {
	fake := &fakeCompiler{t: t, outputs: map[string]string{"ast": readTestdata(t, "mixed_functions.ast")}}
	m := MetalFrontend{
		Std:         "metal3.0",
		Macros:      []Macro{{Name: "DEBUG"}, {Name: "LIGHTS", Value: "4"}},
		IncludeDirs: []string{"include"},
		Run:         fake.run,
	}

	r, err := m.Reflect("shaders.metal")
	require.NoError(t, err)
	assert.Len(t, r.Functions, 2)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{
		"xcrun", "-sdk", "macosx", "metal", "-std=metal3.0", "-DDEBUG", "-DLIGHTS=4", "-I", "include",
		"-x", "metal", "shaders.metal", "-Xclang", "-ast-dump", "-fsyntax-only", "-fno-color-diagnostics", "-w",
	}, fake.calls[0])
}

func TestMetalFrontendFailureKeepsOutput(t *testing.T) {
	fake := &fakeCompiler{t: t, failWith: "shaders.metal:3:1: error: unknown type name 'flaot4'"}
	m := MetalFrontend{Run: fake.run}

	_, err := m.Reflect("shaders.metal")
	require.Error(t, err)

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Output, "unknown type name")
	assert.Equal(t, "xcrun", perr.Cmd[0])
	assert.Contains(t, err.Error(), "flaot4")
}

func TestParseMakeDeps(t *testing.T) {
	out := "shaders.air: shaders.metal shader_src/common.h \\\n  shader_src/other/light.h \\\n  /sdk/metal/module.modulemap \\\n  path\\ with\\ space.h\n"
	deps, err := parseMakeDeps("shaders.metal", out)
	require.NoError(t, err)
	assert.Equal(t, []string{"shader_src/common.h", "shader_src/other/light.h", "path with space.h"}, deps)

	deps, err = parseMakeDeps("lonely.metal", "lonely.air:\n")
	require.NoError(t, err)
	assert.Empty(t, deps)

	_, err = parseMakeDeps("bad.metal", "garbage")
	assert.Error(t, err)
}

func TestMetalFrontendReflectTypes(t *testing.T) {
	fake := &fakeCompiler{t: t, outputs: map[string]string{
		"-MM":    "common.air: shader_src/common.h shader_src/other/light.h\n",
		"ast":    readTestdata(t, "common_h.ast"),
		"layout": readTestdata(t, "common_h.layout"),
	}}
	m := MetalFrontend{Dir: t.TempDir(), Run: fake.run}

	acc := TypeAccumulator{}
	r, err := m.ReflectTypes("shader_src/common.h", &acc)
	require.NoError(t, err)

	assert.Len(t, r.Structs, 3)
	assert.Contains(t, fake.unit, "sizeof(Geometry)")
	assert.Contains(t, fake.unit, "sizeof(World)")
	assert.Contains(t, fake.unit, "sizeof(Light)")
	assert.True(t, strings.HasPrefix(fake.unit, "#include \""+m.Dir))
	assert.Equal(t, []string{"Geometry", "World", "Light", "VertexBufferIndex", "ShadingMode", "LightIndex"}, acc.Names())
}

func TestMetalFrontendCompile(t *testing.T) {
	fake := &fakeCompiler{t: t}
	m := MetalFrontend{SDK: "iphoneos", Run: fake.run}

	require.NoError(t, m.CompileAIR("a.metal", "a.air"))
	require.NoError(t, m.Link("lib.metallib", "a.air", "b.air"))
	require.NoError(t, m.StripDebugInfo("lib.metallib"))

	assert.Equal(t, [][]string{
		{"xcrun", "-sdk", "iphoneos", "metal", "-c", "-gline-tables-only", "-frecord-sources", "-ffast-math", "a.metal", "-o", "a.air"},
		{"xcrun", "-sdk", "iphoneos", "metal", "-frecord-sources", "-o", "lib.metallib", "a.air", "b.air"},
		{"xcrun", "-sdk", "iphoneos", "metal-dsymutil", "-flat", "-remove-source", "lib.metallib"},
	}, fake.calls)
}
