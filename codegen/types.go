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
	"reflect"
	"slices"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/mtltypes"
	"goarrg.com/rhi/mtlbind/reflector"
)

const (
	TypesFileName     = "zmtlbind_types.go"
	TypesTestFileName = "zmtlbind_types_test.go"
)

type ErrorUnknownType struct {
	Scope string
	Type  string
}

func (ErrorUnknownType) Is(target error) bool {
	_, ok := target.(ErrorUnknownType)
	return ok
}

func (e ErrorUnknownType) Error() string {
	return "unknown type " + e.Type + " in " + e.Scope
}

// typeSet indexes the reflected declarations of every header by Metal name,
// the first header declaring a name wins.
type typeSet struct {
	structs map[string]*reflector.Struct
	enums   map[string]*reflector.Enum
	aliases map[string]*reflector.Alias
	goNames map[string]string
}

func newTypeSet(records []*reflector.TypeRecord) (*typeSet, []any, error) {
	s := &typeSet{
		structs: map[string]*reflector.Struct{},
		enums:   map[string]*reflector.Enum{},
		aliases: map[string]*reflector.Alias{},
		goNames: map[string]string{},
	}
	top := newNamespace("types")
	order := []any{}

	claim := func(source, name string) (bool, error) {
		if _, ok := s.goNames[name]; ok {
			instance.logger.VPrintf("%s: %q already declared", source, name)
			return false, nil
		}
		goName, err := top.add(name)
		if err != nil {
			return false, err
		}
		s.goNames[name] = goName
		return true, nil
	}

	for _, r := range records {
		for i := range r.Aliases {
			a := &r.Aliases[i]
			if _, ok := mtltypes.Lookup(a.Name); ok {
				continue
			}
			if ok, err := claim(r.Source, a.Name); err != nil {
				return nil, nil, err
			} else if ok {
				s.aliases[a.Name] = a
				order = append(order, a)
			}
		}
		for i := range r.Enums {
			e := &r.Enums[i]
			if ok, err := claim(r.Source, e.Name); err != nil {
				return nil, nil, err
			} else if ok {
				s.enums[e.Name] = e
				order = append(order, e)
			}
		}
		for i := range r.Structs {
			st := &r.Structs[i]
			if ok, err := claim(r.Source, st.Name); err != nil {
				return nil, nil, err
			} else if ok {
				s.structs[st.Name] = st
				order = append(order, st)
			}
		}
	}

	for _, r := range records {
		for _, c := range r.Constants {
			if ok, err := claim(r.Source, c.Name); err != nil {
				return nil, nil, err
			} else if ok {
				order = append(order, c)
			}
		}
	}
	return s, order, nil
}

// resolve returns the Go spelling and byte size of a Metal type spelling.
func (s *typeSet) resolve(g *generator, scope, spelling string) (string, uint64, error) {
	base, dims, err := splitDims(spelling)
	if err != nil {
		return "", 0, err
	}
	count := uint64(1)
	for _, d := range dims {
		count *= d
	}

	if strings.HasSuffix(base, "*") {
		t := reflect.TypeFor[mtltypes.GPUAddress]()
		return arrayPrefix(dims) + g.goType(t), count * uint64(t.Size()), nil
	}
	base = trimQualifiers(base)

	if t, ok := mtltypes.Lookup(base); ok {
		return arrayPrefix(dims) + g.goType(t), count * uint64(t.Size()), nil
	}
	if st, ok := s.structs[base]; ok {
		return arrayPrefix(dims) + s.goNames[base], count * st.Size, nil
	}
	if e, ok := s.enums[base]; ok {
		_, size, err := s.resolve(g, scope, e.Underlying)
		return arrayPrefix(dims) + s.goNames[base], count * size, err
	}
	if a, ok := s.aliases[base]; ok {
		_, size, err := s.resolve(g, scope, a.Type)
		return arrayPrefix(dims) + s.goNames[base], count * size, err
	}
	return "", 0, ErrorUnknownType{Scope: scope, Type: spelling}
}

func padding(g *generator, n uint64) {
	if n > 0 {
		g.Printf("\t_ [%d]byte\n", n)
	}
}

func (s *typeSet) genStruct(g *generator, st *reflector.Struct) ([]typeCheck, error) {
	name := s.goNames[st.Name]
	fields := newNamespace(st.Name)
	checks := []typeCheck{}

	sorted := slices.Clone(st.Fields)
	slices.SortStableFunc(sorted, func(a, b reflector.Field) int {
		if a.Offset < b.Offset {
			return -1
		} else if a.Offset > b.Offset {
			return 1
		}
		return 0
	})

	g.Printf("type %s struct {\n", name)
	cursor := uint64(0)
	for _, f := range sorted {
		scope := st.Name + "." + f.Name
		typ, size, err := s.resolve(g, scope, f.Type)
		if err != nil {
			return nil, err
		}
		if len(f.ArrayLen) > 0 {
			for _, d := range f.ArrayLen {
				size *= d
			}
			typ = arrayPrefix(f.ArrayLen) + typ
		}
		if f.Offset < cursor {
			return nil, debug.Errorf("%s at offset %d overlaps the previous field ending at %d", scope, f.Offset, cursor)
		}
		field, err := fields.add(f.Name)
		if err != nil {
			return nil, err
		}

		padding(g, f.Offset-cursor)
		g.Printf("\t%s %s\n", field, typ)
		cursor = f.Offset + size
		checks = append(checks, typeCheck{expr: "unsafe.Offsetof(" + name + "{}." + field + ")", name: name + "." + field, want: f.Offset})
	}
	if cursor > st.Size {
		return nil, debug.Errorf("%s: fields end at %d past the struct size %d", st.Name, cursor, st.Size)
	}
	padding(g, st.Size-cursor)
	g.Printf("}\n\n")

	return append([]typeCheck{{expr: "unsafe.Sizeof(" + name + "{})", name: name, want: st.Size, plain: name}}, checks...), nil
}

type typeCheck struct {
	expr  string
	name  string
	want  uint64
	plain string
}

/*
Types generates Go declarations for every struct, enum, alias and constant of
records and a test asserting that each generated type is plain data with the
size and field offsets of its shader counterpart. The types listed in the
test are the ones collected in acc.
*/
func Types(records []*reflector.TypeRecord, acc *reflector.TypeAccumulator, opts Options) ([]byte, []byte, error) {
	set, order, err := newTypeSet(records)
	if err != nil {
		return nil, nil, err
	}

	g := &generator{}
	sizes := map[string][]typeCheck{}
	sources := []string{}
	for _, r := range records {
		sources = append(sources, r.Source)
	}

	for _, decl := range order {
		switch d := decl.(type) {
		case *reflector.Alias:
			typ, size, err := set.resolve(g, d.Name, d.Type)
			if err != nil {
				return nil, nil, err
			}
			name := set.goNames[d.Name]
			g.Printf("type %s = %s\n\n", name, typ)
			sizes[d.Name] = []typeCheck{{expr: "unsafe.Sizeof(*new(" + name + "))", name: name, want: size, plain: name}}

		case *reflector.Enum:
			typ, size, err := set.resolve(g, d.Name, d.Underlying)
			if err != nil {
				return nil, nil, err
			}
			name := set.goNames[d.Name]
			values := newNamespace(d.Name)
			g.Printf("type %s %s\n\n", name, typ)
			if len(d.Values) > 0 {
				g.Printf("const (\n")
				for _, v := range d.Values {
					vn, err := values.add(v.Name)
					if err != nil {
						return nil, nil, err
					}
					if !strings.HasPrefix(vn, name) {
						vn = name + vn
					}
					g.Printf("\t%s %s = %d\n", vn, name, v.Value)
				}
				g.Printf(")\n\n")
			}
			sizes[d.Name] = []typeCheck{{expr: "unsafe.Sizeof(" + name + "(0))", name: name, want: size, plain: name}}

		case *reflector.Struct:
			checks, err := set.genStruct(g, d)
			if err != nil {
				return nil, nil, err
			}
			sizes[d.Name] = checks

		case reflector.Constant:
			typ, _, err := set.resolve(g, d.Name, d.Type)
			if err != nil {
				return nil, nil, err
			}
			g.Printf("const %s %s = %s\n\n", set.goNames[d.Name], typ, d.Value)
		}
	}

	src, err := g.format(TypesFileName, opts, sources...)
	if err != nil {
		return nil, nil, err
	}

	t := &generator{}
	t.use("reflect")
	t.use("testing")
	t.use("unsafe")
	t.use(typesPkg)

	checks := []typeCheck{}
	for _, n := range acc.Names() {
		c, ok := sizes[n]
		if _, builtin := mtltypes.Lookup(n); !ok && builtin {
			continue
		}
		if !ok {
			return nil, nil, debug.Errorf("Type %q was collected but never generated", n)
		}
		checks = append(checks, c...)
	}

	t.Printf("func TestMtlbindTypesArePlainData(t *testing.T) {\n")
	t.Printf("\tfor _, typ := range []reflect.Type{\n")
	for _, c := range checks {
		if c.plain != "" {
			t.Printf("\t\treflect.TypeFor[%s](),\n", c.plain)
		}
	}
	t.Printf("\t} {\n")
	t.Printf("\t\tif err := mtltypes.CheckPlainData(typ); err != nil {\n\t\t\tt.Error(err)\n\t\t}\n")
	t.Printf("\t}\n}\n\n")

	t.Printf("func TestMtlbindTypesMatchShaderLayout(t *testing.T) {\n")
	t.Printf("\tfor _, tc := range []struct {\n\t\tname string\n\t\tgot  uintptr\n\t\twant uintptr\n\t}{\n")
	for _, c := range checks {
		t.Printf("\t\t{%q, %s, %d},\n", c.name, c.expr, c.want)
	}
	t.Printf("\t} {\n")
	t.Printf("\t\tif tc.got != tc.want {\n\t\t\tt.Errorf(\"%%s: got %%d want %%d\", tc.name, tc.got, tc.want)\n\t\t}\n")
	t.Printf("\t}\n}\n")

	test, err := t.format(TypesTestFileName, opts, sources...)
	if err != nil {
		return nil, nil, err
	}

	instance.logger.VPrintf("Generated %d types from %d headers", acc.Len(), len(records))
	return src, test, nil
}
