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

package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gogpu/naga/msl"
	"github.com/mattn/go-shellwords"
	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/codegen"
	mtlbindmake "goarrg.com/rhi/mtlbind/make"
	"goarrg.com/rhi/mtlbind/reflector"
	"goarrg.com/toolchain"
)

const command = "goarrg.com/rhi/mtlbind/cmd/mtlbindgen"

var flags flag.FlagSet

type macros []reflector.Macro

func (m *macros) UnmarshalText(data []byte) error {
	str := string(data)
	i := strings.Index(str, "=")
	switch {
	case i == 0:
		return debug.Errorf("Macro not in the format \"macro=value\"")
	case i < 0:
		*m = append(*m, reflector.Macro{
			Name: str,
		})
	default:
		*m = append(*m, reflector.Macro{
			Name:  str[:i],
			Value: str[i+1:],
		})
	}
	return nil
}

func (m macros) MarshalText() (text []byte, err error) {
	str := ""
	for _, i := range m {
		str += fmt.Sprintf("%s=%s\n", i.Name, i.Value)
	}
	return ([]byte)(strings.TrimSuffix(str, "\n")), nil
}

type includeDirs []string

func (d *includeDirs) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		return debug.Errorf("Empty include dir")
	}
	*d = append(*d, string(data))
	return nil
}

func (d includeDirs) MarshalText() (text []byte, err error) {
	return ([]byte)(strings.Join(d, "\n")), nil
}

type samplers map[string]msl.InlineSampler

// UnmarshalText parses "name:key=value,key=value", see reflector.ParseSamplerState.
func (s *samplers) UnmarshalText(data []byte) error {
	name, state, ok := strings.Cut(string(data), ":")
	if !ok || name == "" {
		return debug.Errorf("Sampler not in the format \"name:key=value,...\"")
	}
	parsed, err := reflector.ParseSamplerState(state)
	if err != nil {
		return err
	}
	inline, err := parsed.Inline()
	if err != nil {
		return err
	}
	if *s == nil {
		*s = samplers{}
	}
	(*s)[name] = inline
	return nil
}

func (s samplers) MarshalText() (text []byte, err error) {
	names := slices.Sorted(maps.Keys(s))
	return ([]byte)(strings.Join(names, "\n")), nil
}

type generator uint32

const (
	generatorGO generator = iota
	generatorJSON
)

func (g *generator) UnmarshalText(data []byte) error {
	switch string(data) {
	case "go":
		*g = generatorGO
	case "json":
		*g = generatorJSON
	default:
		return debug.Errorf("Invalid value: %q", data)
	}
	return nil
}

func (g generator) MarshalText() (text []byte, err error) {
	switch g {
	case generatorGO:
		return ([]byte)("go"), nil
	case generatorJSON:
		return ([]byte)("json"), nil
	default:
		return nil, debug.Errorf("Invalid value: %d", g)
	}
}

func setLevel(l uint32) {
	debug.SetLevel(l)
	reflector.SetLogLevel(l)
	codegen.SetLogLevel(l)
}

func main() {
	setLevel(debug.LogLevelWarn)

	flags.Usage = help
	flags.Init("", flag.ExitOnError)

	v := flags.Bool("v", false, "Verbose - Print high level tasks")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything, including every compiler invocation")

	config := flags.String("config", "", "Runs every step of the manifest at the given path or directory and ignores all other arguments.")

	dir := flags.String("dir", ".", "Sets the directory for the purposes of <file> and #include \"...\" resolution.")
	outDir := flags.String("out-dir", ".", "Sets the output directory.")
	pkg := flags.String("package", "", "Sets the package clause of the generated files.\n"+
		"Defaults to the name of the package in -out-dir.")

	sdk := flags.String("sdk", "macosx", "Sets the xcrun sdk.")
	std := flags.String("std", "", "Sets the Metal language standard, for example \"metal3.0\".")
	extra := flags.String("flags", "", "Shell quoted extra arguments for the Metal compiler.")

	defines := macros{}
	flags.TextVar(&defines, "D", macros{}, "Define macro in the format \"macro=value\".")
	includes := includeDirs{}
	flags.TextVar(&includes, "I", includeDirs{}, "Adds an include search path.")

	g := generator(0)
	flags.TextVar(&g, "generator", generatorGO, "Sets the generator to use when outputting bindings.\n"+
		"Valid values are \"go\" and \"json\".")

	types := flags.Bool("types", false, "Treats the inputs as headers and generates Go types for their declarations.")
	typesImport := flags.String("types-import", "", "Sets the import path of the package holding the header types.")

	inlineSamplers := samplers{}
	flags.TextVar(&inlineSamplers, "sampler", samplers{}, "Gives a WGSL sampler constexpr state in the format \"name:key=value,...\".\n"+
		"Keys are coord, address, border_color, filter, mag_filter, min_filter, mip_filter and compare,\n"+
		"for example \"color_sampler:filter=linear,address=clamp_to_edge\".")

	wgslVersion := flags.String("wgsl-version", "", "Sets the Metal language version emitted for .wgsl inputs.")
	emitMSL := flags.Bool("emit-msl", false, "Writes the Metal source translated from .wgsl inputs next to the bindings.")

	check := flags.Bool("check", false, "Reports a diff and exits with status 1 when the generated files are out of date.")
	watch := flags.Bool("watch", false, "Regenerates whenever an input or one of its includes changes.")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}

	if *v {
		setLevel(debug.LogLevelInfo)
	} else if *vv {
		setLevel(debug.LogLevelVerbose)
	}

	if *config != "" {
		m, err := mtlbindmake.LoadManifest(*config)
		if err != nil {
			debug.EPrintf("%v", err)
			os.Exit(1)
		}
		mtlbindmake.Install(mtlbindmake.Config{
			Target: toolchain.Target{OS: toolchain.EnvGet("GOOS"), Arch: toolchain.EnvGet("GOARCH")},
		}, m)
		return
	}

	args := flags.Args()
	if len(args) == 0 {
		debug.EPrintf("No input file provided.")
		help()
		os.Exit(2)
	}
	if *check && *watch {
		debug.EPrintf("-check and -watch are mutually exclusive.")
		help()
		os.Exit(2)
	}
	if *wgslVersion != "" {
		if _, err := semver.NewVersion(*wgslVersion); err != nil {
			debug.EPrintf("Invalid -wgsl-version %q: %v", *wgslVersion, err)
			os.Exit(2)
		}
	}

	extraFlags, err := shellwords.Parse(*extra)
	if err != nil {
		debug.EPrintf("Invalid -flags %q: %v", *extra, err)
		os.Exit(2)
	}

	absDir, err := filepath.Abs(*dir)
	if err != nil {
		panic(err)
	}

	j := &job{
		metal: reflector.MetalFrontend{
			SDK:         *sdk,
			Std:         *std,
			Macros:      defines,
			IncludeDirs: includes,
			ExtraFlags:  extraFlags,
			Dir:         absDir,
		},
		wgsl:    reflector.WGSLFrontend{LangVersion: *wgslVersion, InlineSamplers: inlineSamplers},
		inputs:  args,
		outDir:  *outDir,
		types:   *types,
		json:    g == generatorJSON,
		emitMSL: *emitMSL,
		opts: codegen.Options{
			Package:     *pkg,
			Command:     command + " " + strings.Join(os.Args[1:], " "),
			TypesImport: *typesImport,
		},
	}

	switch {
	case *check:
		stale, err := j.check(os.Stdout)
		if err != nil {
			debug.EPrintf("%v", err)
			os.Exit(1)
		}
		if stale {
			os.Exit(1)
		}
	case *watch:
		if err := j.watch(); err != nil {
			debug.EPrintf("%v", err)
			os.Exit(1)
		}
	default:
		if err := j.run(); err != nil {
			debug.EPrintf("%v", err)
			os.Exit(1)
		}
	}
}

func help() {
	fmt.Fprintf(os.Stderr, "mtlbindgen reflects Metal and WGSL shaders and generates typed Go binding contracts for them.\n"+
		"\nEvery .metal or .wgsl input gets a zmtlbind_<name>.go file declaring one type per entry point,\n"+
		"a struct of its bindings and an Encode method that binds them to the matching stage.\n"+
		"With -types the inputs are headers instead and their structs, enums, aliases and constants\n"+
		"are mirrored as Go types together with a test asserting their layout.\n"+
		"\nMetal inputs need xcrun and the Metal toolchain, WGSL inputs are translated in process.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(os.Stderr, "Usage:\n\t%s [arguments] <file>...\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}
