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
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
	"goarrg.com/debug"
)

// Macro is a preprocessor define passed as -DName=Value.
type Macro struct {
	Name  string
	Value string
}

func (m Macro) flag() string {
	if m.Value == "" {
		return "-D" + m.Name
	}
	return fmt.Sprintf("-D%s=%s", m.Name, m.Value)
}

/*
MetalFrontend drives the Metal compiler through xcrun. The zero value targets
the macosx SDK with the compiler's default language version.
*/
type MetalFrontend struct {
	SDK         string
	Std         string
	Macros      []Macro
	IncludeDirs []string
	// ExtraFlags are appended to every compiler invocation.
	ExtraFlags []string
	// Dir is the working directory of the compiler, relative include paths
	// resolve against it.
	Dir string
	Run Runner
}

func (m *MetalFrontend) metal(args ...string) []string {
	sdk := m.SDK
	if sdk == "" {
		sdk = "macosx"
	}
	cmd := []string{"-sdk", sdk, "metal"}
	if m.Std != "" {
		cmd = append(cmd, "-std="+m.Std)
	}
	for _, macro := range m.Macros {
		cmd = append(cmd, macro.flag())
	}
	for _, dir := range m.IncludeDirs {
		cmd = append(cmd, "-I", dir)
	}
	cmd = append(cmd, m.ExtraFlags...)
	return append(cmd, args...)
}

func (m *MetalFrontend) xcrun(args ...string) (string, error) {
	return run(m.Run, m.Dir, "xcrun", args...)
}

// Reflect dumps the AST of the shader at path and parses its entry points.
func (m *MetalFrontend) Reflect(path string) (*Record, error) {
	out, err := m.xcrun(m.metal("-x", "metal", path, "-Xclang", "-ast-dump", "-fsyntax-only", "-fno-color-diagnostics", "-w")...)
	if err != nil {
		return nil, err
	}
	return ParseAST(path, strings.NewReader(out))
}

/*
ReflectTypes reflects the structs, enums, aliases and constants declared by
header and the user headers it includes, and adds their names to acc. Struct
layouts come from a second compile of a unit that takes the sizeof of every
struct, which forces clang to lay them out.
*/
func (m *MetalFrontend) ReflectTypes(header string, acc *TypeAccumulator) (*TypeRecord, error) {
	deps, err := m.Dependencies(header)
	if err != nil {
		return nil, err
	}
	out, err := m.xcrun(m.metal("-x", "metal", header, "-Xclang", "-ast-dump", "-fsyntax-only", "-fno-color-diagnostics", "-w")...)
	if err != nil {
		return nil, err
	}
	record, err := ParseDecls(header, append([]string{header}, deps...), strings.NewReader(out))
	if err != nil {
		return nil, err
	}

	if len(record.Structs) > 0 {
		abs := header
		if !filepath.IsAbs(abs) {
			abs, err = filepath.Abs(filepath.Join(m.Dir, header))
			if err != nil {
				return nil, debug.ErrorWrapf(err, "Failed to resolve %q", header)
			}
		}

		dir, err := os.MkdirTemp("", "mtlbind")
		if err != nil {
			return nil, debug.ErrorWrapf(err, "Failed to create layout unit for %q", header)
		}
		defer os.RemoveAll(dir)

		sb := strings.Builder{}
		fmt.Fprintf(&sb, "#include %q\n\n", abs)
		for i, s := range record.Structs {
			fmt.Fprintf(&sb, "constant constexpr ulong mtlbind_layout_%d = sizeof(%s);\n", i, s.Name)
		}
		unit := filepath.Join(dir, "layout.metal")
		if err := os.WriteFile(unit, []byte(sb.String()), 0o644); err != nil {
			return nil, debug.ErrorWrapf(err, "Failed to create layout unit for %q", header)
		}

		out, err := m.xcrun(m.metal("-x", "metal", unit, "-Xclang", "-fdump-record-layouts", "-fsyntax-only", "-fno-color-diagnostics", "-w")...)
		if err != nil {
			return nil, err
		}
		if err := ParseLayouts(record, strings.NewReader(out)); err != nil {
			return nil, err
		}
	}

	if acc != nil {
		acc.AddRecord(record)
	}
	instance.logger.VPrintf("%s: reflected %d structs, %d enums, %d aliases and %d constants",
		header, len(record.Structs), len(record.Enums), len(record.Aliases), len(record.Constants))
	return record, nil
}

/*
Dependencies returns the files path includes, as reported by the compiler's
-MM output, excluding path itself and module maps.
*/
func (m *MetalFrontend) Dependencies(path string) ([]string, error) {
	out, err := m.xcrun(m.metal("-x", "metal", path, "-MM", "-fno-color-diagnostics")...)
	if err != nil {
		return nil, err
	}
	return parseMakeDeps(path, out)
}

func parseMakeDeps(path, out string) ([]string, error) {
	joined := strings.ReplaceAll(strings.ReplaceAll(out, "\\\r\n", " "), "\\\n", " ")
	i := strings.Index(joined, ": ")
	if i < 0 {
		if strings.HasSuffix(strings.TrimSpace(joined), ":") {
			return nil, nil
		}
		return nil, debug.Errorf("Unexpected dependency output for %q: %q", path, out)
	}

	words, err := shellwords.Parse(joined[i+2:])
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to parse dependencies of %q", path)
	}

	deps := []string{}
	for _, w := range words {
		if w == path || filepath.Base(w) == "module.modulemap" || slices.Contains(deps, w) {
			continue
		}
		deps = append(deps, w)
	}
	return deps, nil
}

/*
CompileAIR compiles src to an AIR object at out. Debug info and sources are
always recorded, release builds strip them from the linked library.
*/
func (m *MetalFrontend) CompileAIR(src, out string) error {
	_, err := m.xcrun(m.metal("-c", "-gline-tables-only", "-frecord-sources", "-ffast-math", src, "-o", out)...)
	return err
}

// Link links AIR objects into a metallib at out.
func (m *MetalFrontend) Link(out string, airs ...string) error {
	sdk := m.SDK
	if sdk == "" {
		sdk = "macosx"
	}
	args := append([]string{"-sdk", sdk, "metal", "-frecord-sources", "-o", out}, airs...)
	_, err := m.xcrun(args...)
	return err
}

// StripDebugInfo moves the debug info of lib into a flat dSYM next to it.
func (m *MetalFrontend) StripDebugInfo(lib string) error {
	sdk := m.SDK
	if sdk == "" {
		sdk = "macosx"
	}
	_, err := m.xcrun("-sdk", sdk, "metal-dsymutil", "-flat", "-remove-source", lib)
	return err
}
