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
	"regexp"
	"strconv"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/internal/container"
)

var (
	rxLayoutMember = regexp.MustCompile(`^\s*(?P<offset>\d+)(?P<bits>:\d+-\d+)? \| (?P<indent> *)(?P<decl>\S.*)$`)
	rxLayoutSize   = regexp.MustCompile(`^\s*\| \[sizeof=(?P<size>\d+),.*?\balign=(?P<align>\d+)`)
	rxLayoutRecord = regexp.MustCompile(`^(?P<kind>struct|class|union) (?P<name>\w+)$`)
	rxArrayType    = regexp.MustCompile(`^(?P<elem>.*?)\s*(?P<dims>(?:\[\d+\])+)$`)
)

const layoutStart = "*** Dumping AST Record Layout"

// splitDecl splits "float[4] values" into the type and the member name.
func splitDecl(decl string) (string, string, []uint64) {
	i := strings.LastIndexByte(decl, ' ')
	if i < 0 {
		return decl, "", nil
	}
	name := decl[i+1:]
	t := strings.TrimSpace(decl[:i])
	for _, prefix := range []string{"struct ", "class ", "enum ", "union "} {
		t = strings.TrimPrefix(t, prefix)
	}
	t = strings.ReplaceAll(t, "metal::", "")

	var dims []uint64
	if m := rxArrayType.FindStringSubmatch(t); m != nil {
		t = m[1]
		for _, d := range strings.Split(strings.Trim(m[2], "[]"), "][") {
			n, _ := strconv.ParseUint(d, 10, 64)
			dims = append(dims, n)
		}
	}
	return t, name, dims
}

type layoutFrame struct {
	name string
}

type layoutParser struct {
	record *TypeRecord

	current *Struct
	path    container.Stack[layoutFrame]
}

/*
ParseLayouts reads the output of -fdump-record-layouts and fills in size,
alignment and fields of every struct already named in record. Records not
named in record are ignored. Bitfields, unions and base classes can not be
expressed as plain Go structs and fail with ErrorUnsupported.
*/
func ParseLayouts(record *TypeRecord, r io.Reader) error {
	p := layoutParser{record: record}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := p.line(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return debug.ErrorWrapf(err, "Failed to read record layouts of %q", record.Source)
	}

	for _, s := range record.Structs {
		if s.Size == 0 {
			return debug.Errorf("%s: no layout for struct %q", record.Source, s.Name)
		}
	}
	return nil
}

func (p *layoutParser) pathString(name string) string {
	parts := []string{}
	for _, f := range p.path.Data() {
		parts = append(parts, f.name)
	}
	return strings.Join(append(parts, name), ".")
}

func (p *layoutParser) line(line string) error {
	if strings.TrimSpace(line) == layoutStart {
		p.current = nil
		p.path.Truncate(0, nil)
		return nil
	}

	if m := rxLayoutSize.FindStringSubmatch(line); m != nil {
		if p.current != nil && p.current.Size == 0 {
			p.current.Size, _ = strconv.ParseUint(m[1], 10, 64)
			p.current.Align, _ = strconv.ParseUint(m[2], 10, 64)
		}
		p.current = nil
		p.path.Truncate(0, nil)
		return nil
	}

	m := rxLayoutMember.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	depth := len(m[3]) / 2
	decl := m[4]

	if depth == 0 {
		p.current = nil
		p.path.Truncate(0, nil)
		r := rxLayoutRecord.FindStringSubmatch(decl)
		if r == nil {
			return nil
		}
		s, ok := p.record.Struct(r[2])
		if !ok || s.Size != 0 {
			return nil
		}
		if r[1] == "union" {
			return ErrorUnsupported{Function: r[2], Reason: "unions can not be reflected"}
		}
		p.current = s
		p.path.Push(layoutFrame{name: s.Name})
		return nil
	}

	if p.current == nil {
		return nil
	}
	p.path.Truncate(depth, nil)

	if strings.HasSuffix(decl, "(base)") || strings.HasSuffix(decl, "(primary base)") || strings.HasSuffix(decl, "(virtual base)") {
		return ErrorUnsupported{Function: p.current.Name, Reason: "base classes can not be reflected"}
	}

	t, name, dims := splitDecl(decl)
	if m[2] != "" {
		return ErrorUnsupported{Function: p.current.Name, Param: p.pathString(name), Reason: "bitfields can not be reflected"}
	}
	if strings.HasPrefix(decl, "union ") {
		return ErrorUnsupported{Function: p.current.Name, Param: p.pathString(name), Reason: "unions can not be reflected"}
	}

	if depth == 1 {
		offset, _ := strconv.ParseUint(m[1], 10, 64)
		p.current.Fields = append(p.current.Fields, Field{Name: name, Type: t, Offset: offset, ArrayLen: dims})
	}
	p.path.Push(layoutFrame{name: name})
	return nil
}
