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
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mattn/go-shellwords"
	"github.com/pelletier/go-toml/v2"
	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/buildcache"
	"goarrg.com/rhi/mtlbind/codegen"
	"goarrg.com/rhi/mtlbind/reflector"
	"goarrg.com/toolchain"
	"goarrg.com/toolchain/golang"
	"golang.org/x/sync/errgroup"
)

type EnableFeatures struct {
	DebugInfo bool // If true, release libraries keep their debug info and sources
}

type DisableFeatures struct {
	Checks bool // If true, runtime binding checks are compiled out
}

type BuildOptions struct {
	Build   toolchain.Build
	Enable  EnableFeatures
	Disable DisableFeatures
}

type Config struct {
	Target       toolchain.Target
	BuildOptions BuildOptions

	// Run replaces the subprocess runner, nil runs the real compiler.
	Run reflector.Runner
}

var accelerationStructures = func() *semver.Constraints {
	c, err := semver.NewConstraint(">= 2.3")
	if err != nil {
		panic(err)
	}
	return c
}()

func buildTags(b BuildOptions) string {
	var str string

	{
		if b.Disable.Checks {
			str += "goarrg_mtlbind_disable_checks,"
		}
	}

	return strings.TrimSuffix(str, ",")
}

func sdk(t toolchain.Target) string {
	switch t.OS {
	case "ios":
		if t.Arch == "amd64" {
			return "iphonesimulator"
		}
		return "iphoneos"
	default:
		return "macosx"
	}
}

func (c Config) frontend(m *Manifest) (*reflector.MetalFrontend, error) {
	macros, err := m.macros()
	if err != nil {
		return nil, err
	}
	flags, err := m.flags()
	if err != nil {
		return nil, err
	}
	if env := toolchain.EnvGet("MTLBIND_FLAGS"); env != "" {
		extra, err := shellwords.Parse(env)
		if err != nil {
			return nil, debug.ErrorWrapf(err, "Invalid MTLBIND_FLAGS")
		}
		flags = append(flags, extra...)
	}

	s := m.SDK
	if s == "" {
		s = sdk(c.Target)
	}
	return &reflector.MetalFrontend{
		SDK:         s,
		Std:         m.Std,
		Macros:      macros,
		IncludeDirs: m.IncludeDirs,
		ExtraFlags:  flags,
		Dir:         m.Dir,
		Run:         c.Run,
	}, nil
}

func (m *Manifest) wgslFrontend() (*reflector.WGSLFrontend, error) {
	samplers, err := m.WGSL.inlineSamplers()
	if err != nil {
		return nil, err
	}
	return &reflector.WGSLFrontend{
		LangVersion:       m.WGSL.LangVersion,
		PipelineConstants: m.WGSL.PipelineConstants,
		InlineSamplers:    samplers,
	}, nil
}

func (m *Manifest) translate(src string) (*reflector.Record, string, error) {
	data, err := os.ReadFile(m.path(src))
	if err != nil {
		return nil, "", err
	}
	f, err := m.wgslFrontend()
	if err != nil {
		return nil, "", err
	}
	return f.Translate(src, string(data))
}

func (m *Manifest) settingsPath() string {
	return filepath.Join(m.cacheDir(), "settings.toml")
}

/*
writeSettings records everything besides the sources that changes the
outputs. Every cache record fingerprints it, so editing the manifest or
MTLBIND_FLAGS regenerates. The build flavour only affects the library, whose
record is kept per flavour.
*/
func (c Config) writeSettings(m *Manifest) error {
	settings := struct {
		Manifest *Manifest `toml:"manifest"`
		SDK      string    `toml:"sdk"`
		Flags    string    `toml:"env_flags"`
	}{
		Manifest: m,
		SDK:      sdk(c.Target),
		Flags:    toolchain.EnvGet("MTLBIND_FLAGS"),
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return err
	}
	if have, err := os.ReadFile(m.settingsPath()); err == nil && bytes.Equal(have, data) {
		return nil
	}
	if err := os.MkdirAll(m.cacheDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.settingsPath(), data, 0o644)
}

/*
Install generates the Go types of every header, the binding contracts of every
source and compiles the metallib described by m, skipping each step whose
inputs did not change since the last run. It returns the build tags matching
c and panics on failure like the other goarrg make steps.

A relative m.Dir is resolved against the module of the caller.
*/
func Install(c Config, m *Manifest) string {
	if !filepath.IsAbs(m.Dir) {
		m.Dir = filepath.Join(golang.CallersModule().Dir, m.Dir)
	}
	if err := m.Validate(); err != nil {
		panic(debug.ErrorWrapf(err, "Invalid manifest"))
	}
	if err := c.writeSettings(m); err != nil {
		panic(debug.ErrorWrapf(err, "Failed to record build settings"))
	}
	if err := generateTypes(c, m); err != nil {
		panic(debug.ErrorWrapf(err, "Failed to generate shader types"))
	}
	if err := generateBindings(c, m); err != nil {
		panic(debug.ErrorWrapf(err, "Failed to generate shader bindings"))
	}
	if err := compileLibrary(c, m); err != nil {
		panic(debug.ErrorWrapf(err, "Failed to compile shader library"))
	}
	return buildTags(c.BuildOptions)
}

func (m *Manifest) packageName() (string, error) {
	if m.Package != "" {
		return m.Package, nil
	}
	if err := os.MkdirAll(m.outDir(), 0o755); err != nil {
		return "", err
	}
	return codegen.PackageName(m.outDir())
}

func (m *Manifest) options(command string) (codegen.Options, error) {
	pkg, err := m.packageName()
	if err != nil {
		return codegen.Options{}, err
	}
	return codegen.Options{Package: pkg, Command: command, TypesImport: m.TypesImport}, nil
}

func (m *Manifest) cachePath(name string) string {
	return filepath.Join(m.cacheDir(), strings.ReplaceAll(filepath.ToSlash(name), "/", "_")+".hash")
}

// inputs returns path and everything it includes, resolved against m.Dir.
func (m *Manifest) inputs(f *reflector.MetalFrontend, path string) ([]string, error) {
	deps, err := f.Dependencies(path)
	if err != nil {
		return nil, err
	}
	return append([]string{m.path(path)}, m.paths(deps)...), nil
}

// forget drops the cache record of a step when one of its outputs went missing.
func forget(record string, outputs ...string) {
	for _, o := range outputs {
		if _, err := os.Stat(o); err != nil {
			os.Remove(record)
			return
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	debug.IPrintf("Writing: %q", path)
	return os.WriteFile(path, data, 0o644)
}

func generateTypes(c Config, m *Manifest) error {
	if len(m.Headers) == 0 {
		return nil
	}
	f, err := c.frontend(m)
	if err != nil {
		return err
	}

	inputs := []string{m.settingsPath()}
	for _, h := range m.Headers {
		in, err := m.inputs(f, h)
		if err != nil {
			return err
		}
		inputs = append(inputs, in...)
	}

	forget(m.cachePath("types"), filepath.Join(m.outDir(), codegen.TypesFileName), filepath.Join(m.outDir(), codegen.TypesTestFileName))
	_, err = buildcache.Conditionally(func() error {
		acc := &reflector.TypeAccumulator{}
		records := make([]*reflector.TypeRecord, len(m.Headers))
		for i, h := range m.Headers {
			r, err := f.ReflectTypes(h, acc)
			if err != nil {
				return err
			}
			records[i] = r
		}

		opts, err := m.options("")
		if err != nil {
			return err
		}
		src, test, err := codegen.Types(records, acc, opts)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(m.outDir(), codegen.TypesFileName), src); err != nil {
			return err
		}
		return writeFile(filepath.Join(m.outDir(), codegen.TypesTestFileName), test)
	}, m.cachePath("types"), inputs...)
	return err
}

func generateBindings(c Config, m *Manifest) error {
	f, err := c.frontend(m)
	if err != nil {
		return err
	}
	opts, err := m.options("")
	if err != nil {
		return err
	}
	var std *semver.Version
	if m.Std != "" {
		if std, err = StdVersion(m.Std); err != nil {
			return err
		}
	}

	g := errgroup.Group{}
	g.SetLimit(runtime.NumCPU())
	for _, src := range m.Sources {
		g.Go(func() error {
			inputs := []string{m.settingsPath(), m.path(src)}
			if filepath.Ext(src) == ".metal" {
				in, err := m.inputs(f, src)
				if err != nil {
					return err
				}
				inputs = append([]string{m.settingsPath()}, in...)
			}

			forget(m.cachePath(src), filepath.Join(m.outDir(), codegen.FileName(src)))
			_, err := buildcache.Conditionally(func() error {
				var record *reflector.Record
				var err error
				if filepath.Ext(src) == ".wgsl" {
					record, _, err = m.translate(src)
					if err != nil {
						return err
					}
				} else {
					record, err = f.Reflect(src)
					if err != nil {
						return err
					}
					if std != nil && record.UsesAccelerationStructures() && !accelerationStructures.Check(std) {
						return debug.Errorf("%s: acceleration structures need -std metal2.3 or newer, have %q", src, m.Std)
					}
				}

				out, err := codegen.Bindings(record, opts)
				if err != nil {
					return err
				}
				return writeFile(filepath.Join(m.outDir(), codegen.FileName(src)), out)
			}, m.cachePath(src), inputs...)
			return err
		})
	}
	return g.Wait()
}

func (m *Manifest) translateWGSL(src string) (string, error) {
	_, translated, err := m.translate(src)
	if err != nil {
		return "", err
	}
	out := filepath.Join(m.cacheDir(), "msl", strings.TrimSuffix(filepath.Base(src), ".wgsl")+"_wgsl.metal")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, []byte(translated), 0o644)
}

func compileLibrary(c Config, m *Manifest) error {
	if m.Library == "" || len(m.Sources) == 0 {
		return nil
	}
	f, err := c.frontend(m)
	if err != nil {
		return err
	}

	inputs := []string{m.settingsPath()}
	for _, src := range m.Sources {
		if filepath.Ext(src) == ".metal" {
			in, err := m.inputs(f, src)
			if err != nil {
				return err
			}
			inputs = append(inputs, in...)
		} else {
			inputs = append(inputs, m.path(src))
		}
	}

	library := m.path(m.Library)
	release := c.BuildOptions.Build == toolchain.BuildRelease && !c.BuildOptions.Enable.DebugInfo
	name := "library"
	if release {
		name += "_release"
	}

	forget(m.cachePath(name), library)
	_, err = buildcache.Conditionally(func() error {
		airDir, err := os.MkdirTemp("", "mtlbind-air-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(airDir)

		airs := make([]string, len(m.Sources))
		g := errgroup.Group{}
		g.SetLimit(runtime.NumCPU())
		for i, src := range m.Sources {
			airs[i] = filepath.Join(airDir, strings.ReplaceAll(filepath.ToSlash(src), "/", "_")+".air")
			g.Go(func() error {
				if filepath.Ext(src) == ".wgsl" {
					translated, err := m.translateWGSL(src)
					if err != nil {
						return err
					}
					src = translated
				}
				debug.VPrintf("Compiling: %q", src)
				return f.CompileAIR(src, airs[i])
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(library), 0o755); err != nil {
			return err
		}
		debug.IPrintf("Linking: %q", library)
		if err := f.Link(library, airs...); err != nil {
			return err
		}
		if release {
			return f.StripDebugInfo(library)
		}
		return nil
	}, m.cachePath(name), inputs...)
	return err
}
