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
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/gogpu/naga/msl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/rhi/mtlbind/codegen"
	"goarrg.com/toolchain"
)

type fakeCompiler struct {
	t     *testing.T
	mtx   sync.Mutex
	calls map[string]int
}

func (f *fakeCompiler) run(dir, name string, args ...string) (string, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}

	switch {
	case slices.Contains(args, "-MM"):
		f.calls["deps"]++
		src := args[slices.Index(args, "-MM")-1]
		return "out.air: " + src + "\n", nil
	case slices.Contains(args, "-ast-dump"):
		f.calls["reflect"]++
		data, err := os.ReadFile(filepath.Join("..", "reflector", "testdata", "kernel.ast"))
		require.NoError(f.t, err)
		return string(data), nil
	case slices.Contains(args, "-c"):
		f.calls["compile"]++
	case slices.Contains(args, "metal-dsymutil"):
		f.calls["strip"]++
		return "", nil
	default:
		f.calls["link"]++
	}
	out := args[slices.Index(args, "-o")+1]
	require.NoError(f.t, os.WriteFile(out, []byte(name), 0o644))
	return "", nil
}

func (f *fakeCompiler) count(kind string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls[kind]
}

func writeManifestDir(t *testing.T, name, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(manifest), 0o644))
	return dir
}

func copyTestdata(t *testing.T, dir, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "reflector", "testdata", src))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, dst), data, 0o644))
}

func TestLoadManifestTOML(t *testing.T) {
	dir := writeManifestDir(t, "mtlbind.toml", `
sources = ["shaders.metal", "post.wgsl"]
headers = ["shader_src/common.h"]
library = "shaders.metallib"
std = "macos-metal2.4"
defines = ["DEBUG", "MAX_LIGHTS=4"]
flags = "-Wall '-I dir with space'"

[wgsl]
lang_version = "2.4"
pipeline_constants = { workgroup = 64.0 }

[wgsl.inline_samplers.color_sampler]
filter = "linear"
address = ["repeat"]
`)

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir)
	assert.Equal(t, []string{"shaders.metal", "post.wgsl"}, m.Sources)
	assert.Equal(t, "2.4", m.WGSL.LangVersion)
	assert.Equal(t, 64.0, m.WGSL.PipelineConstants["workgroup"])

	samplers, err := m.WGSL.inlineSamplers()
	require.NoError(t, err)
	require.Contains(t, samplers, "color_sampler")
	assert.Equal(t, msl.SamplerFilterLinear, samplers["color_sampler"].MinFilter)
	assert.Equal(t, msl.SamplerAddressRepeat, samplers["color_sampler"].Address[2])

	flags, err := m.flags()
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-I dir with space"}, flags)

	macros, err := m.macros()
	require.NoError(t, err)
	require.Len(t, macros, 2)
	assert.Equal(t, "DEBUG", macros[0].Name)
	assert.Equal(t, "4", macros[1].Value)

	assert.Equal(t, dir, m.outDir())
	assert.Equal(t, filepath.Join(dir, ".mtlbind"), m.cacheDir())
}

func TestLoadManifestYAML(t *testing.T) {
	dir := writeManifestDir(t, "mtlbind.yaml", `
sources:
  - shaders/main.metal
out_dir: gen
package: shaders
cache_dir: /tmp/cache
`)

	m, err := LoadManifest(filepath.Join(dir, "mtlbind.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen"), m.outDir())
	assert.Equal(t, "/tmp/cache", m.cacheDir())
	assert.Equal(t, "shaders", m.Package)
	assert.Equal(t, filepath.Join(dir, "shaders", "main.metal"), m.path(m.Sources[0]))
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	dir := writeManifestDir(t, "mtlbind.toml", "sources = [\"a.metal\"]\nsauces = [\"b.metal\"]\n")
	_, err := LoadManifest(dir)
	assert.Error(t, err)

	dir = writeManifestDir(t, "mtlbind.yml", "sources: [a.metal]\nsauces: [b.metal]\n")
	_, err = LoadManifest(dir)
	assert.Error(t, err)
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	assert.Error(t, err)
}

func TestManifestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		m    Manifest
	}{
		{"empty", Manifest{}},
		{"extension", Manifest{Sources: []string{"shader.hlsl"}}},
		{"library", Manifest{Sources: []string{"a.metal"}, Library: "a.lib"}},
		{"flags", Manifest{Sources: []string{"a.metal"}, Flags: "'unterminated"}},
		{"define", Manifest{Sources: []string{"a.metal"}, Defines: []string{"=1"}}},
		{"std", Manifest{Sources: []string{"a.metal"}, Std: "c++17"}},
		{"wgsl", Manifest{Sources: []string{"a.wgsl"}, WGSL: WGSLManifest{LangVersion: "two"}}},
		{"sampler", Manifest{Sources: []string{"a.wgsl"}, WGSL: WGSLManifest{InlineSamplers: map[string]SamplerManifest{"s": {Filter: "cubic"}}}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.m.Validate())
		})
	}

	assert.NoError(t, (&Manifest{Headers: []string{"common.h"}}).Validate())
}

func TestStdVersion(t *testing.T) {
	for std, want := range map[string]string{
		"metal3.0":       "3.0.0",
		"macos-metal2.4": "2.4.0",
		"ios-metal2.3":   "2.3.0",
	} {
		v, err := StdVersion(std)
		require.NoError(t, err, std)
		assert.Equal(t, want, v.String())
	}
	assert.True(t, accelerationStructures.Check(mustStd(t, "metal2.3")))
	assert.False(t, accelerationStructures.Check(mustStd(t, "metal2.2")))
}

func mustStd(t *testing.T, std string) *semver.Version {
	t.Helper()
	v, err := StdVersion(std)
	require.NoError(t, err)
	return v
}

func TestBuildTags(t *testing.T) {
	assert.Equal(t, "", buildTags(BuildOptions{}))
	assert.Equal(t, "goarrg_mtlbind_disable_checks", buildTags(BuildOptions{Disable: DisableFeatures{Checks: true}}))
}

func TestSDK(t *testing.T) {
	assert.Equal(t, "macosx", sdk(toolchain.Target{OS: "darwin", Arch: "arm64"}))
	assert.Equal(t, "iphoneos", sdk(toolchain.Target{OS: "ios", Arch: "arm64"}))
	assert.Equal(t, "iphonesimulator", sdk(toolchain.Target{OS: "ios", Arch: "amd64"}))
}

func TestInstall(t *testing.T) {
	dir := t.TempDir()
	copyTestdata(t, dir, "particles.wgsl", "particles.wgsl")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kernel.metal"), []byte("kernel void test() {}\n"), 0o644))

	fake := &fakeCompiler{t: t}
	c := Config{
		Target:       toolchain.Target{OS: "darwin", Arch: "arm64"},
		BuildOptions: BuildOptions{Build: toolchain.BuildDebug},
		Run:          fake.run,
	}
	m := &Manifest{
		Dir:     dir,
		Sources: []string{"kernel.metal", "particles.wgsl"},
		Library: "out/shaders.metallib",
		Package: "shaders",
	}

	assert.Equal(t, "", Install(c, m))
	for _, name := range []string{codegen.FileName("kernel.metal"), codegen.FileName("particles.wgsl"), "out/shaders.metallib"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Equal(t, 1, fake.count("reflect"))
	assert.Equal(t, 2, fake.count("compile"))
	assert.Equal(t, 1, fake.count("link"))
	assert.Equal(t, 0, fake.count("strip"))

	src, err := os.ReadFile(filepath.Join(dir, codegen.FileName("particles.wgsl")))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package shaders")
	assert.Contains(t, string(src), "// Source: particles.wgsl")

	Install(c, m)
	assert.Equal(t, 1, fake.count("reflect"))
	assert.Equal(t, 2, fake.count("compile"))
	assert.Equal(t, 1, fake.count("link"))

	require.NoError(t, os.Remove(filepath.Join(dir, "out/shaders.metallib")))
	Install(c, m)
	assert.Equal(t, 1, fake.count("reflect"))
	assert.Equal(t, 4, fake.count("compile"))
	assert.Equal(t, 2, fake.count("link"))

	c.BuildOptions.Build = toolchain.BuildRelease
	Install(c, m)
	assert.Equal(t, 3, fake.count("link"))
	assert.Equal(t, 1, fake.count("strip"))
}

func debugConfig(fake *fakeCompiler) Config {
	return Config{
		Target:       toolchain.Target{OS: "darwin", Arch: "arm64"},
		BuildOptions: BuildOptions{Build: toolchain.BuildDebug},
		Run:          fake.run,
	}
}

func TestInstallInlineSamplers(t *testing.T) {
	dir := t.TempDir()
	copyTestdata(t, dir, "textured_quad.wgsl", "textured_quad.wgsl")

	fake := &fakeCompiler{t: t}
	m := &Manifest{
		Dir:     dir,
		Sources: []string{"textured_quad.wgsl"},
		Library: "shaders.metallib",
		Package: "shaders",
	}
	assert.Panics(t, func() { Install(debugConfig(fake), m) })

	m.WGSL.InlineSamplers = map[string]SamplerManifest{
		"color_sampler": {Filter: "linear", Address: []string{"clamp_to_edge"}},
	}
	Install(debugConfig(fake), m)

	src, err := os.ReadFile(filepath.Join(dir, codegen.FileName("textured_quad.wgsl")))
	require.NoError(t, err)
	assert.Contains(t, string(src), "FsMain")
	assert.NotContains(t, string(src), "ColorSampler")

	translated, err := os.ReadFile(filepath.Join(m.cacheDir(), "msl", "textured_quad_wgsl.metal"))
	require.NoError(t, err)
	assert.Contains(t, string(translated), "constexpr metal::sampler ")
	assert.Equal(t, 1, fake.count("compile"))
}

func TestInstallRegeneratesOnSettingsChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kernel.metal"), []byte("kernel void test() {}\n"), 0o644))

	fake := &fakeCompiler{t: t}
	m := &Manifest{
		Dir:     dir,
		Sources: []string{"kernel.metal"},
		Library: "shaders.metallib",
		Package: "shaders",
	}
	Install(debugConfig(fake), m)
	Install(debugConfig(fake), m)
	assert.Equal(t, 1, fake.count("reflect"))
	assert.Equal(t, 1, fake.count("compile"))

	m.Defines = []string{"FOG=1"}
	Install(debugConfig(fake), m)
	assert.Equal(t, 2, fake.count("reflect"))
	assert.Equal(t, 2, fake.count("compile"))

	m.Package = "other"
	Install(debugConfig(fake), m)
	assert.Equal(t, 3, fake.count("reflect"))
	src, err := os.ReadFile(filepath.Join(dir, codegen.FileName("kernel.metal")))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package other")
}

func TestInstallPanicsOnInvalidManifest(t *testing.T) {
	assert.Panics(t, func() {
		Install(Config{}, &Manifest{Dir: t.TempDir(), Sources: []string{"shader.glsl"}})
	})
}
