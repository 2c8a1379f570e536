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
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind"
	"goarrg.com/rhi/mtlbind/mtltypes"
	"goarrg.com/rhi/mtlbind/reflector"
)

// functionConstantTypes maps the Metal spelling of a function constant type
// to its MTLDataType.
var functionConstantTypes = map[string]string{
	"bool":   "DataTypeBool",
	"bool2":  "DataTypeBool2",
	"bool3":  "DataTypeBool3",
	"bool4":  "DataTypeBool4",
	"float":  "DataTypeFloat",
	"float2": "DataTypeFloat2",
	"float3": "DataTypeFloat3",
	"float4": "DataTypeFloat4",
	"half":   "DataTypeHalf",
	"half2":  "DataTypeHalf2",
	"half3":  "DataTypeHalf3",
	"half4":  "DataTypeHalf4",
	"int":    "DataTypeInt",
	"int2":   "DataTypeInt2",
	"int3":   "DataTypeInt3",
	"int4":   "DataTypeInt4",
	"uint":   "DataTypeUInt",
	"uint2":  "DataTypeUInt2",
	"uint3":  "DataTypeUInt3",
	"uint4":  "DataTypeUInt4",
	"short":  "DataTypeShort",
	"ushort": "DataTypeUShort",
	"char":   "DataTypeChar",
	"uchar":  "DataTypeUChar",
	"long":   "DataTypeLong",
	"ulong":  "DataTypeULong",
}

// FileName is the name of the file Bindings output for source is written to.
func FileName(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "zmtlbind_" + strings.ReplaceAll(base, ".", "_") + ".go"
}

func sourceName(source string) string {
	base := filepath.Base(source)
	return GoName(strings.TrimSuffix(base, filepath.Ext(base)))
}

type boundParam struct {
	reflector.Param
	field string
	typ   string
}

func (g *generator) elementType(p reflector.Param, opts Options) (string, error) {
	base, dims, err := splitDims(trimQualifiers(p.ElementType))
	if err != nil {
		return "", err
	}
	if t, ok := mtltypes.Lookup(base); ok {
		return arrayPrefix(dims) + g.goType(t), nil
	}
	name := GoName(base)
	if name == "" || strings.ContainsAny(base, "<>*&") {
		return "", debug.Errorf("%q has no Go type for element %q", p.Name, p.ElementType)
	}
	if opts.TypesImport != "" {
		g.use(opts.TypesImport)
	}
	return arrayPrefix(dims) + opts.typesQualifier() + name, nil
}

func (g *generator) fieldType(p reflector.Param, opts Options) (string, error) {
	switch p.Class {
	case mtlbind.ResourceClassTexture:
		return "mtlbind.BindTexture", nil
	case mtlbind.ResourceClassAccelerationStructure:
		return "mtlbind.BindAccelerationStructure", nil
	}
	elem, err := g.elementType(p, opts)
	if err != nil {
		return "", err
	}
	if p.Multiplicity == reflector.MultiplicityMany {
		return "mtlbind.BindMany[" + elem + "]", nil
	}
	return "mtlbind.Bind[" + elem + "]", nil
}

func stageAdapter(s mtlbind.Stage) (string, string) {
	switch s {
	case mtlbind.StageVertex:
		return "mtlbind.Vertex", "mtlbind.StageVertex"
	case mtlbind.StageFragment:
		return "mtlbind.Fragment", "mtlbind.StageFragment"
	default:
		return "mtlbind.Compute", "mtlbind.StageCompute"
	}
}

func classConst(c mtlbind.ResourceClass) string {
	switch c {
	case mtlbind.ResourceClassTexture:
		return "mtlbind.ResourceClassTexture"
	case mtlbind.ResourceClassAccelerationStructure:
		return "mtlbind.ResourceClassAccelerationStructure"
	default:
		return "mtlbind.ResourceClassBuffer"
	}
}

/*
Bindings generates the binding contract of every function in record: a marker
type implementing mtlbind.Function, a Binds struct with one field per bound
parameter in declaration order and its Encode method, and when the source
declares function constants a struct holding their values.

The output depends only on record and opts.
*/
func Bindings(record *reflector.Record, opts Options) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	g := &generator{}
	g.use(bindPkg)

	top := newNamespace(record.Source)
	prefix := sourceName(record.Source)

	constants := ""
	if len(record.FunctionConstants) > 0 {
		constants = prefix + "FunctionConstants"
		if _, err := top.add(constants); err != nil {
			return nil, err
		}
		if err := g.functionConstants(constants, record); err != nil {
			return nil, debug.ErrorWrapf(err, "%s", record.Source)
		}
	}

	markers := []string{}
	for i := range record.Functions {
		f := &record.Functions[i]
		marker, err := top.add(f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := top.add(marker + "Binds"); err != nil {
			return nil, err
		}
		if err := g.function(marker, f, record, opts); err != nil {
			return nil, debug.ErrorWrapf(err, "%s: %q", record.Source, f.Name)
		}
		markers = append(markers, marker)
	}

	if _, err := top.add(prefix + "Functions"); err != nil {
		return nil, err
	}
	g.Printf("// %sFunctions lists every function reflected from %s.\n", prefix, filepath.Base(record.Source))
	g.Printf("var %sFunctions = []mtlbind.Function{\n", prefix)
	for _, m := range markers {
		g.Printf("\t%s{},\n", m)
	}
	g.Printf("}\n")

	instance.logger.VPrintf("Generated %d functions for %q", len(markers), record.Source)
	return g.format(FileName(record.Source), opts, filepath.ToSlash(record.Source))
}

func (g *generator) function(marker string, f *reflector.Function, record *reflector.Record, opts Options) error {
	fields := newNamespace(marker+"Binds", "Encode")
	params := make([]boundParam, len(f.Params))
	for i, p := range f.Params {
		name, err := fields.add(p.Name)
		if err != nil {
			return err
		}
		typ, err := g.fieldType(p, opts)
		if err != nil {
			return err
		}
		params[i] = boundParam{Param: p, field: name, typ: typ}
	}

	adapter, stage := stageAdapter(f.Stage)

	g.Printf("// %s is the %s function %q.\n", marker, f.Stage, f.Name)
	g.Printf("type %s struct{}\n\n", marker)
	g.Printf("var _ mtlbind.Function = %s{}\n\n", marker)
	g.Printf("func (%s) FunctionName() string {\n\treturn %q\n}\n\n", marker, f.Name)
	g.Printf("func (%s) Stage() mtlbind.Stage {\n\treturn %s\n}\n\n", marker, stage)

	g.Printf("func (%s) Slots() []mtlbind.Slot {\n", marker)
	if len(params) == 0 {
		g.Printf("\treturn nil\n}\n\n")
	} else {
		g.Printf("\treturn []mtlbind.Slot{\n")
		for _, p := range params {
			g.Printf("\t\t{Name: %q, Class: %s, Index: %d},\n", p.Name, classConst(p.Class), p.Slot)
		}
		g.Printf("\t}\n}\n\n")
	}

	if len(f.FunctionConstants) > 0 {
		g.Printf("func (%s) FunctionConstantIndices() []uint16 {\n", marker)
		g.Printf("\treturn []uint16{")
		for i, c := range f.FunctionConstants {
			if i > 0 {
				g.Printf(", ")
			}
			g.Printf("%d", record.FunctionConstants[c].Index)
		}
		g.Printf("}\n}\n\n")
	}

	g.Printf("// %sBinds holds the arguments of %s, the zero value binds nothing.\n", marker, marker)
	g.Printf("type %sBinds struct {\n", marker)
	for _, p := range params {
		comment := fmt.Sprintf("%s %d", p.Class.Table(), p.Slot)
		if p.Mutable {
			comment += ", written by the shader"
		}
		g.Printf("\t%s %s // %s\n", p.field, p.typ, comment)
	}
	g.Printf("}\n\n")

	slices.SortStableFunc(params, func(a, b boundParam) int {
		if c := cmp.Compare(a.Class.Table(), b.Class.Table()); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})

	receiver := "b"
	if len(params) == 0 {
		receiver = "_"
	}
	g.Printf("func (%s *%sBinds) Encode(e %s) {\n", receiver, marker, adapter)
	for _, p := range params {
		g.Printf("\tb.%s.Encode(e, %d)\n", p.field, p.Slot)
	}
	g.Printf("}\n\n")
	return nil
}

func (g *generator) functionConstants(name string, record *reflector.Record) error {
	fields := newNamespace(name, "Values")
	type constant struct {
		field    string
		typ      string
		dataType string
		index    uint16
	}
	constants := []constant{}
	for _, c := range record.FunctionConstants {
		spelling := trimQualifiers(c.DataType)
		dataType, ok := functionConstantTypes[spelling]
		if !ok {
			return debug.Errorf("function constant %q has unsupported type %q", c.Name, c.DataType)
		}
		t, ok := mtltypes.Lookup(spelling)
		if !ok {
			return debug.Errorf("function constant %q has unsupported type %q", c.Name, c.DataType)
		}
		field, err := fields.add(c.Name)
		if err != nil {
			return err
		}
		constants = append(constants, constant{field: field, typ: g.goType(t), dataType: dataType, index: c.Index})
	}

	g.Printf("// %s holds the specialization values of the function constants.\n", name)
	g.Printf("type %s struct {\n", name)
	for _, c := range constants {
		g.Printf("\t%s %s // function_constant(%d)\n", c.field, c.typ, c.index)
	}
	g.Printf("}\n\n")

	g.Printf("func (c *%s) Values() []mtlbind.FunctionConstantValue {\n", name)
	g.Printf("\treturn []mtlbind.FunctionConstantValue{\n")
	for _, c := range constants {
		g.Printf("\t\tmtlbind.NewFunctionConstantValue(%d, mtlbind.%s, &c.%s),\n", c.index, c.dataType, c.field)
	}
	g.Printf("\t}\n}\n\n")
	return nil
}
