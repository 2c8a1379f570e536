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
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"goarrg.com/debug"
)

var (
	rxDeclLocation = regexp.MustCompile(`^\w+ 0x[0-9a-f]+ (?:(?:prev|parent) 0x[0-9a-f]+ )*<(?P<loc>.*?)(?:, |>)`)
	rxFileLocation = regexp.MustCompile(`^(?P<file>.+?):\d+:\d+$`)

	rxRecordDecl  = regexp.MustCompile(`^(?:CXX)?RecordDecl 0x[0-9a-f]+ .*? (?P<kind>struct|class|union) (?P<name>\w+) definition$`)
	rxEnumDecl    = regexp.MustCompile(`^EnumDecl 0x[0-9a-f]+ <.+?> (?:line|col)(?::\d+)+(?: referenced)?(?: class| struct)? (?P<name>\w+)(?: '(?P<type>[^']+)'(?::'[^']*')?)?$`)
	rxEnumConst   = regexp.MustCompile(`^EnumConstantDecl 0x[0-9a-f]+ <.+?> (?:line|col)(?::\d+)+(?: referenced)? (?P<name>\w+) '`)
	rxAliasDecl   = regexp.MustCompile(`^(?:TypedefDecl|TypeAliasDecl) 0x[0-9a-f]+ <.+?> (?:line|col)(?::\d+)+(?: referenced)? (?P<name>\w+) '(?:metal::)?(?P<type>[^']+)'`)
	rxConstDecl   = regexp.MustCompile(`^VarDecl 0x[0-9a-f]+ <.+?> (?:line|col)(?::\d+)+(?: used| referenced)? (?P<name>\w+) '(?:const )?(?:constant )?(?:const )?(?:metal::)?(?P<type>[\w ]+?)'(?::'[^']*')? constexpr cinit$`)
	rxLiteral     = regexp.MustCompile(`^(?:IntegerLiteral|FloatingLiteral|CXXBoolLiteralExpr) 0x[0-9a-f]+ <.+?> '[^']+' (?P<value>\S+)$`)
	rxNegate      = regexp.MustCompile(`^UnaryOperator 0x[0-9a-f]+ <.+?> '[^']+' prefix '-'`)
)

type declParser struct {
	files []string
	file  string

	record TypeRecord
	// Names of the structs with a definition, layouts are filled in later.
	unions []string

	enum     *Enum
	enumNext int64
	value    *EnumValue
	hasValue bool
	constant *Constant
	negate   bool
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	if filepath.IsAbs(a) == filepath.IsAbs(b) {
		return false
	}
	return filepath.Base(a) == filepath.Base(b) && (strings.HasSuffix(filepath.Clean(a), filepath.Clean(b)) ||
		strings.HasSuffix(filepath.Clean(b), filepath.Clean(a)))
}

func (p *declParser) inFiles() bool {
	return slices.ContainsFunc(p.files, func(f string) bool { return sameFile(f, p.file) })
}

func (p *declParser) trackFile(text string) {
	m := rxDeclLocation.FindStringSubmatch(text)
	if m == nil {
		return
	}
	loc := m[1]
	switch {
	case strings.HasPrefix(loc, "line:"), strings.HasPrefix(loc, "col:"), strings.HasPrefix(loc, "<invalid sloc"):
	case strings.HasPrefix(loc, "<"):
		p.file = ""
	default:
		if f := rxFileLocation.FindStringSubmatch(loc); f != nil {
			p.file = f[1]
		}
	}
}

/*
ParseDecls reads the AST dump of a shared header and returns the structs,
enums, aliases and constants declared at the top level of any of files. The
returned structs only carry their names, ParseLayouts fills in the rest.
*/
func ParseDecls(source string, files []string, r io.Reader) (*TypeRecord, error) {
	p := declParser{
		files:  files,
		record: TypeRecord{Source: source},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := p.line(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read AST of %q", source)
	}
	p.finish()

	if len(p.unions) > 0 {
		return nil, ErrorUnsupported{Function: p.unions[0], Reason: "unions can not be reflected"}
	}
	return &p.record, nil
}

func (p *declParser) finish() {
	p.finishValue()
	if p.enum != nil {
		p.record.Enums = append(p.record.Enums, *p.enum)
		p.enum = nil
	}
	if p.constant != nil {
		if p.constant.Value != "" {
			p.record.Constants = append(p.record.Constants, *p.constant)
		}
		p.constant = nil
	}
}

func (p *declParser) finishValue() {
	if p.value == nil {
		return
	}
	if !p.hasValue {
		p.value.Value = p.enumNext
	}
	p.enumNext = p.value.Value + 1
	p.enum.Values = append(p.enum.Values, *p.value)
	p.value = nil
	p.hasValue = false
}

func (p *declParser) line(line string) error {
	depth, text := astLine(line)
	if depth > 0 {
		p.trackFile(text)
	}

	if depth == 1 {
		p.finish()
		if !p.inFiles() {
			return nil
		}

		if m := rxRecordDecl.FindStringSubmatch(text); m != nil {
			if m[1] == "union" {
				p.unions = append(p.unions, m[2])
				return nil
			}
			if _, ok := p.record.Struct(m[2]); !ok {
				p.record.Structs = append(p.record.Structs, Struct{Name: m[2]})
			}
			return nil
		}
		if m := rxEnumDecl.FindStringSubmatch(text); m != nil {
			underlying := strings.TrimPrefix(m[2], "metal::")
			if underlying == "" {
				underlying = "int"
			}
			p.enum = &Enum{Name: m[1], Underlying: underlying}
			p.enumNext = 0
			return nil
		}
		if m := rxAliasDecl.FindStringSubmatch(text); m != nil {
			p.record.Aliases = append(p.record.Aliases, Alias{Name: m[1], Type: m[2]})
			return nil
		}
		if m := rxConstDecl.FindStringSubmatch(text); m != nil {
			p.constant = &Constant{Name: m[1], Type: strings.TrimSpace(m[2])}
			p.negate = false
		}
		return nil
	}

	switch {
	case p.enum != nil:
		if depth == 2 {
			p.finishValue()
			if m := rxEnumConst.FindStringSubmatch(text); m != nil {
				p.value = &EnumValue{Name: m[1]}
			}
			return nil
		}
		if p.value == nil || p.hasValue {
			return nil
		}
		if m := rxConstValue.FindStringSubmatch(text); m != nil {
			v, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return debug.ErrorWrapf(err, "Invalid value for %s::%s", p.enum.Name, p.value.Name)
			}
			p.value.Value = v
			p.hasValue = true
		}

	case p.constant != nil && p.constant.Value == "":
		if rxNegate.MatchString(text) {
			p.negate = !p.negate
			return nil
		}
		if m := rxConstValue.FindStringSubmatch(text); m != nil {
			p.constant.Value = m[1]
			return nil
		}
		if m := rxLiteral.FindStringSubmatch(text); m != nil {
			p.constant.Value = m[1]
			if p.negate {
				p.constant.Value = "-" + p.constant.Value
			}
		}
	}
	return nil
}
