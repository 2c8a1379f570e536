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

/*
Package codegen turns reflection records into Go source: binding contracts
for shader functions and plain data types for shared headers.
*/
package codegen

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"goarrg.com/debug"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/imports"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("mtlbind", "codegen"),
}

func SetLogLevel(l uint32) {
	instance.logger.SetLevel(l)
}

const (
	bindPkg  = "goarrg.com/rhi/mtlbind"
	typesPkg = "goarrg.com/rhi/mtlbind/mtltypes"
)

type Options struct {
	// Package is the package clause of the generated file.
	Package string

	// Command is the go run argument list recorded in the header, the
	// header only claims generation when empty.
	Command string

	// TypesImport is the import path of the package holding the Go types of
	// the shared headers, empty when they are generated into Package.
	TypesImport string
}

func (o Options) typesQualifier() string {
	if o.TypesImport == "" {
		return ""
	}
	return path.Base(o.TypesImport) + "."
}

type generator struct {
	buf     bytes.Buffer
	body    bytes.Buffer
	imports []string
}

func (g *generator) Printf(format string, args ...any) {
	fmt.Fprintf(&g.body, format, args...)
}

func (g *generator) use(pkg string) {
	if !slices.Contains(g.imports, pkg) {
		g.imports = append(g.imports, pkg)
	}
}

// format assembles header, package clause, imports and body and formats the
// result like goimports would.
func (g *generator) format(filename string, opts Options, sources ...string) ([]byte, error) {
	if opts.Package == "" {
		return nil, debug.Errorf("No package name for %q", filename)
	}

	if opts.Command != "" {
		fmt.Fprintf(&g.buf, "// go run %s\n", opts.Command)
		fmt.Fprintf(&g.buf, "// Code generated by the command above; DO NOT EDIT.\n")
	} else {
		fmt.Fprintf(&g.buf, "// Code generated by mtlbindgen; DO NOT EDIT.\n")
	}
	for _, s := range sources {
		fmt.Fprintf(&g.buf, "// Source: %s\n", s)
	}
	fmt.Fprintf(&g.buf, "\npackage %s\n\n", opts.Package)

	if len(g.imports) > 0 {
		std, other := []string{}, []string{}
		for _, i := range g.imports {
			if strings.Contains(strings.Split(i, "/")[0], ".") {
				other = append(other, i)
			} else {
				std = append(std, i)
			}
		}
		slices.Sort(std)
		slices.Sort(other)

		fmt.Fprintf(&g.buf, "import (\n")
		for _, i := range std {
			fmt.Fprintf(&g.buf, "\t%q\n", i)
		}
		if len(std) > 0 && len(other) > 0 {
			fmt.Fprintf(&g.buf, "\n")
		}
		for _, i := range other {
			fmt.Fprintf(&g.buf, "\t%q\n", i)
		}
		fmt.Fprintf(&g.buf, ")\n\n")
	}
	g.buf.Write(g.body.Bytes())

	src, err := imports.Process(filename, g.buf.Bytes(), nil)
	if err != nil {
		instance.logger.VPrintf("Unformatted source of %q:\n%s", filename, g.buf.String())
		return nil, debug.ErrorWrapf(err, "Failed to format %q", filename)
	}
	return src, nil
}

/*
GoName converts a shader identifier to an exported Go identifier: parts
separated by anything but letters and digits are joined, each starting upper
case, and parts spelled entirely in upper case are title cased.
*/
func GoName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	sb := strings.Builder{}
	for _, p := range parts {
		runes := []rune(p)
		if isUpperPart(p) {
			for i := 1; i < len(runes); i++ {
				runes[i] = unicode.ToLower(runes[i])
			}
		}
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	s := sb.String()
	if s != "" && unicode.IsDigit([]rune(s)[0]) {
		s = "X" + s
	}
	return s
}

func isUpperPart(p string) bool {
	letters := 0
	for _, r := range p {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 1
}

// ErrorNameCollision is returned when two shader identifiers map to the same
// Go identifier in one scope.
type ErrorNameCollision struct {
	Scope  string
	GoName string
	Names  [2]string
}

func (ErrorNameCollision) Is(target error) bool {
	_, ok := target.(ErrorNameCollision)
	return ok
}

func (e ErrorNameCollision) Error() string {
	return fmt.Sprintf("%s: %q and %q both map to %s", e.Scope, e.Names[0], e.Names[1], e.GoName)
}

type namespace struct {
	scope string
	names map[string]string
}

func newNamespace(scope string, reserved ...string) *namespace {
	n := &namespace{scope: scope, names: map[string]string{}}
	for _, r := range reserved {
		n.names[r] = r
	}
	return n
}

func (n *namespace) add(name string) (string, error) {
	goName := GoName(name)
	if goName == "" {
		return "", debug.Errorf("%s: %q has no usable Go name", n.scope, name)
	}
	if other, ok := n.names[goName]; ok {
		return "", ErrorNameCollision{Scope: n.scope, GoName: goName, Names: [2]string{other, name}}
	}
	n.names[goName] = name
	return goName, nil
}

// goType spells t from inside the generated package.
func (g *generator) goType(t reflect.Type) string {
	if t.Name() == "" && t.Kind() == reflect.Array {
		return fmt.Sprintf("[%d]%s", t.Len(), g.goType(t.Elem()))
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	g.use(t.PkgPath())
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// splitDims splits "T[2][3]" into "T" and [2, 3].
func splitDims(spelling string) (string, []uint64, error) {
	s := strings.TrimSpace(spelling)
	dims := []uint64{}
	for strings.HasSuffix(s, "]") {
		i := strings.LastIndex(s, "[")
		if i < 0 {
			return "", nil, debug.Errorf("Invalid type %q", spelling)
		}
		var n uint64
		if _, err := fmt.Sscanf(s[i+1:len(s)-1], "%d", &n); err != nil || n == 0 {
			return "", nil, debug.Errorf("Invalid array extent in %q", spelling)
		}
		dims = append([]uint64{n}, dims...)
		s = strings.TrimSpace(s[:i])
	}
	return s, dims, nil
}

func arrayPrefix(dims []uint64) string {
	sb := strings.Builder{}
	for _, d := range dims {
		fmt.Fprintf(&sb, "[%d]", d)
	}
	return sb.String()
}

func trimQualifiers(spelling string) string {
	s := strings.TrimSpace(spelling)
	for _, p := range []string{"const ", "constant ", "device ", "struct ", "enum ", "metal::"} {
		s = strings.TrimPrefix(s, p)
	}
	return s
}

/*
PackageName returns the name of the Go package in dir, falling back to the
base name of dir when it holds no Go files yet.
*/
func PackageName(dir string) (string, error) {
	p, err := packages.Load(&packages.Config{Mode: packages.NeedName, Dir: dir}, ".")
	if err != nil {
		return "", debug.ErrorWrapf(err, "Failed to load package at %q", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	switch {
	case len(p) == 0:
		return GoPackageName(filepath.Base(abs)), nil
	case p[0].Name != "":
		return p[0].Name, nil
	case p[0].PkgPath != "":
		return GoPackageName(path.Base(p[0].PkgPath)), nil
	default:
		return GoPackageName(filepath.Base(abs)), nil
	}
}

// GoPackageName lower cases s and drops everything but letters and digits.
func GoPackageName(s string) string {
	sb := strings.Builder{}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	if sb.Len() == 0 || unicode.IsDigit([]rune(sb.String())[0]) {
		return "p" + sb.String()
	}
	return sb.String()
}
