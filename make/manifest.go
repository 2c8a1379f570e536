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
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gogpu/naga/msl"
	"github.com/mattn/go-shellwords"
	"github.com/pelletier/go-toml/v2"
	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/reflector"
	"gopkg.in/yaml.v3"
)

var ManifestNames = []string{"mtlbind.toml", "mtlbind.yaml", "mtlbind.yml"}

/*
Manifest describes the shaders of one Go package. Relative paths are relative
to Dir, which is the directory the manifest was loaded from.

	sources = ["shaders.metal", "post.wgsl"]
	headers = ["shader_src/common.h"]
	library = "shaders.metallib"
	std = "metal3.0"
	defines = ["MAX_LIGHTS=4"]
*/
type Manifest struct {
	Dir string `toml:"-" yaml:"-"`

	// Sources are .metal and .wgsl files, each gets its own binding file.
	Sources []string `toml:"sources" yaml:"sources"`

	// Headers are reflected into Go types by the type bridge.
	Headers []string `toml:"headers" yaml:"headers"`

	// Library is the metallib all sources are compiled and linked into, no
	// library is built when empty.
	Library string `toml:"library" yaml:"library"`

	// OutDir receives the generated Go files, Dir when empty.
	OutDir string `toml:"out_dir" yaml:"out_dir"`

	// Package overrides the package clause of the generated files.
	Package string `toml:"package" yaml:"package"`

	// TypesImport is the import path of the package holding the header types
	// when it is not the package of OutDir.
	TypesImport string `toml:"types_import" yaml:"types_import"`

	// CacheDir holds fingerprints of previous runs, .mtlbind under Dir
	// when empty.
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`

	SDK         string   `toml:"sdk" yaml:"sdk"`
	Std         string   `toml:"std" yaml:"std"`
	Defines     []string `toml:"defines" yaml:"defines"`
	IncludeDirs []string `toml:"include_dirs" yaml:"include_dirs"`

	// Flags is a shell quoted string of extra compiler arguments.
	Flags string `toml:"flags" yaml:"flags"`

	WGSL WGSLManifest `toml:"wgsl" yaml:"wgsl"`
}

type WGSLManifest struct {
	// LangVersion is the Metal language version naga emits, "2.1" when empty.
	LangVersion       string             `toml:"lang_version" yaml:"lang_version"`
	PipelineConstants map[string]float64 `toml:"pipeline_constants" yaml:"pipeline_constants"`

	// InlineSamplers gives every WGSL sampler, by variable name, the
	// constexpr state it is compiled with.
	//
	//	[wgsl.inline_samplers.color_sampler]
	//	filter = "linear"
	//	address = ["clamp_to_edge"]
	InlineSamplers map[string]SamplerManifest `toml:"inline_samplers" yaml:"inline_samplers"`
}

type SamplerManifest struct {
	Coord       string   `toml:"coord" yaml:"coord"`
	Address     []string `toml:"address" yaml:"address"`
	BorderColor string   `toml:"border_color" yaml:"border_color"`
	Filter      string   `toml:"filter" yaml:"filter"`
	MagFilter   string   `toml:"mag_filter" yaml:"mag_filter"`
	MinFilter   string   `toml:"min_filter" yaml:"min_filter"`
	MipFilter   string   `toml:"mip_filter" yaml:"mip_filter"`
	Compare     string   `toml:"compare" yaml:"compare"`
}

func (s SamplerManifest) inline() (msl.InlineSampler, error) {
	return reflector.SamplerState(s).Inline()
}

func (w WGSLManifest) inlineSamplers() (map[string]msl.InlineSampler, error) {
	samplers := make(map[string]msl.InlineSampler, len(w.InlineSamplers))
	for name, s := range w.InlineSamplers {
		inline, err := s.inline()
		if err != nil {
			return nil, debug.ErrorWrapf(err, "Invalid inline sampler %q", name)
		}
		samplers[name] = inline
	}
	return samplers, nil
}

/*
LoadManifest decodes the manifest at path, TOML or YAML depending on the
extension. When path is a directory the first of ManifestNames found in it is
loaded.
*/
func LoadManifest(path string) (*Manifest, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		for _, name := range ManifestNames {
			p := filepath.Join(path, name)
			if _, err := os.Stat(p); err == nil {
				return LoadManifest(p)
			}
		}
		return nil, debug.Errorf("No manifest in %q, expected one of %v", path, ManifestNames)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read manifest")
	}

	m := &Manifest{}
	switch filepath.Ext(path) {
	case ".toml":
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		err = d.Decode(m)
	case ".yaml", ".yml":
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		err = d.Decode(m)
	default:
		return nil, debug.Errorf("Unknown manifest format %q", path)
	}
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to decode %q", path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	m.Dir = dir
	return m, m.Validate()
}

func (m *Manifest) Validate() error {
	if len(m.Sources) == 0 && len(m.Headers) == 0 {
		return debug.Errorf("Manifest in %q has no sources and no headers", m.Dir)
	}
	for _, s := range m.Sources {
		switch filepath.Ext(s) {
		case ".metal", ".wgsl":
		default:
			return debug.Errorf("Unsupported shader source %q", s)
		}
	}
	if m.Library != "" && !strings.HasSuffix(m.Library, ".metallib") {
		return debug.Errorf("Library %q must end in .metallib", m.Library)
	}
	if _, err := m.flags(); err != nil {
		return err
	}
	if _, err := m.macros(); err != nil {
		return err
	}
	if m.Std != "" {
		if _, err := StdVersion(m.Std); err != nil {
			return err
		}
	}
	if m.WGSL.LangVersion != "" {
		if _, err := semver.NewVersion(m.WGSL.LangVersion); err != nil {
			return debug.ErrorWrapf(err, "Invalid wgsl lang_version %q", m.WGSL.LangVersion)
		}
	}
	if _, err := m.WGSL.inlineSamplers(); err != nil {
		return err
	}
	return nil
}

func (m *Manifest) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

func (m *Manifest) paths(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = m.path(p)
	}
	return out
}

func (m *Manifest) outDir() string {
	if m.OutDir == "" {
		return m.Dir
	}
	return m.path(m.OutDir)
}

func (m *Manifest) cacheDir() string {
	if m.CacheDir == "" {
		return filepath.Join(m.Dir, ".mtlbind")
	}
	return m.path(m.CacheDir)
}

func (m *Manifest) flags() ([]string, error) {
	if m.Flags == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(m.Flags)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Invalid flags %q", m.Flags)
	}
	return args, nil
}

func (m *Manifest) macros() ([]reflector.Macro, error) {
	macros := []reflector.Macro{}
	for _, d := range m.Defines {
		name, value, _ := strings.Cut(d, "=")
		if name == "" {
			return nil, debug.Errorf("Define %q not in the format \"macro=value\"", d)
		}
		macros = append(macros, reflector.Macro{Name: name, Value: value})
	}
	return macros, nil
}

/*
StdVersion extracts the language version from a -std value such as
"metal3.0", "macos-metal2.4" or "ios-metal2.3".
*/
func StdVersion(std string) (*semver.Version, error) {
	i := strings.LastIndex(std, "metal")
	if i < 0 {
		return nil, debug.Errorf("Invalid Metal standard %q", std)
	}
	v, err := semver.NewVersion(std[i+len("metal"):])
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Invalid Metal standard %q", std)
	}
	return v, nil
}
