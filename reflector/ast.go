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
	"slices"
	"strconv"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind"
)

var (
	rxFunctionDecl = regexp.MustCompile(`^FunctionDecl 0x[0-9a-f]+(?: prev 0x[0-9a-f]+)? <.+?> (?:line|col)(?::\d+)+(?: implicit| used| referenced)* (?P<name>\w+) '`)
	rxParmVarDecl  = regexp.MustCompile(`^ParmVarDecl 0x[0-9a-f]+ <.+?> (?:line|col)(?::\d+)+(?: used| referenced)* (?P<name>\w+) '(?P<space>const constant |constant |const device |device |)(?:metal::)?(?P<type>\w[\w:<>, ]*?)(?P<multiplicity> [*&]|)'`)
	rxStageAttr    = regexp.MustCompile(`^Metal(?P<stage>Vertex|Fragment|Kernel|Object|Mesh)Attr `)
	rxIndexAttr    = regexp.MustCompile(`^Metal(?P<table>Buffer|Texture)IndexAttr `)
	rxOtherAttr    = regexp.MustCompile(`^Metal\w+Attr `)
	rxIntLiteral   = regexp.MustCompile(`^IntegerLiteral 0x[0-9a-f]+ <.+?> 'int' (?P<value>\d+)`)
	rxConstValue   = regexp.MustCompile(`value: Int (?P<value>-?\d+)`)
	rxDeclRef      = regexp.MustCompile(`^DeclRefExpr 0x[0-9a-f]+ <.+?> '.*' lvalue Var 0x(?P<address>[0-9a-f]+) `)
	rxConstVarDecl = regexp.MustCompile(`^VarDecl 0x(?P<address>[0-9a-f]+) <.+?> (?:line|col)(?::\d+)+ used (?P<name>\w+) 'const constant (?:metal::)?(?P<type>[\w:<>, ]+)'(?::'[^']*')? constexpr$`)
	rxConstAttr    = regexp.MustCompile(`^MetalFunctionConstantAttr `)
)

/*
astLine splits one line of a clang tree dump into its depth and node text.
The translation unit is depth 0, top level declarations depth 1. Lines that
are not nodes return a depth of -1 and the trimmed text.
*/
func astLine(line string) (int, string) {
	i := 0
	for i+2 <= len(line) && (line[i:i+2] == "| " || line[i:i+2] == "  ") {
		i += 2
	}
	if i+2 <= len(line) && (line[i:i+2] == "|-" || line[i:i+2] == "`-") {
		return i/2 + 1, line[i+2:]
	}
	if i == 0 {
		return 0, line
	}
	return -1, strings.TrimLeft(line, "|` ")
}

type astParam struct {
	name         string
	space        string
	dataType     string
	multiplicity string
	builtin      bool
	indexAttr    string
	index        int
	hasIndex     bool
}

type astFunction struct {
	name      string
	stage     mtlbind.Stage
	hasStage  bool
	skipStage string
	params    []*astParam
	constants []int
}

type astConstant struct {
	constant FunctionConstant
	address  uint64
}

type astParser struct {
	source    string
	constants []astConstant
	record    Record

	function *astFunction
	param    *astParam
	constant *astConstant

	// Set while the index of the current param's index attr is pending.
	awaitingIndex bool
	// Set between a function constant attr and its index.
	awaitingConstant bool
}

/*
ParseAST reads the output of

	metal -Xclang -ast-dump -fsyntax-only -fno-color-diagnostics <file>

and returns the shader functions declared at the top level of the translation
unit together with the function constants they reference. Function constants
that no function uses are dropped. Parameters without a buffer or texture
index attribute that are still resources are assigned the lowest free slot of
their argument table in declaration order.
*/
func ParseAST(source string, r io.Reader) (*Record, error) {
	p := astParser{
		source: source,
		record: Record{Source: source},
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
	if err := p.finishFunction(); err != nil {
		return nil, err
	}
	if p.constant != nil && p.awaitingConstant {
		return nil, debug.Errorf("%s: function constant %q has no index", source, p.constant.constant.Name)
	}

	for _, c := range p.constants {
		p.record.FunctionConstants = append(p.record.FunctionConstants, c.constant)
	}
	if err := p.record.Validate(); err != nil {
		return nil, err
	}
	return &p.record, nil
}

func (p *astParser) line(line string) error {
	depth, text := astLine(line)

	if p.awaitingIndex {
		switch {
		case depth >= 4 && rxIntLiteral.MatchString(text):
			return p.setIndex(rxIntLiteral.FindStringSubmatch(text)[1])
		case (depth == -1 || depth >= 4) && rxConstValue.MatchString(text):
			return p.setIndex(rxConstValue.FindStringSubmatch(text)[1])
		case depth >= 4:
			return nil
		default:
			return debug.Errorf("%s: %q: %s index of %q is not an integer constant",
				p.source, p.function.name, p.param.indexAttr, p.param.name)
		}
	}

	if p.awaitingConstant {
		if depth == 3 && rxIntLiteral.MatchString(text) {
			v, err := strconv.ParseUint(rxIntLiteral.FindStringSubmatch(text)[1], 10, 16)
			if err != nil {
				return debug.ErrorWrapf(err, "%s: invalid function constant index for %q", p.source, p.constant.constant.Name)
			}
			p.constant.constant.Index = uint16(v)
			p.constants = append(p.constants, *p.constant)
			p.constant = nil
			p.awaitingConstant = false
			return nil
		}
		if depth == -1 || depth > 3 {
			return nil
		}
		return debug.Errorf("%s: function constant %q has no index", p.source, p.constant.constant.Name)
	}

	if depth == 1 {
		if err := p.finishFunction(); err != nil {
			return err
		}
		p.constant = nil

		if m := rxFunctionDecl.FindStringSubmatch(text); m != nil {
			p.function = &astFunction{name: m[1]}
			return nil
		}
		if m := rxConstVarDecl.FindStringSubmatch(text); m != nil {
			addr, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				return debug.ErrorWrapf(err, "%s: invalid address for %q", p.source, m[2])
			}
			p.constant = &astConstant{
				constant: FunctionConstant{Name: m[2], DataType: m[3]},
				address:  addr,
			}
		}
		return nil
	}

	if p.constant != nil {
		if depth == 2 && rxConstAttr.MatchString(text) {
			p.awaitingConstant = true
		}
		return nil
	}

	if p.function == nil {
		return nil
	}
	return p.functionLine(depth, text)
}

func (p *astParser) functionLine(depth int, text string) error {
	f := p.function

	if m := rxDeclRef.FindStringSubmatch(text); m != nil {
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return debug.ErrorWrapf(err, "%s: invalid address in %q", p.source, f.name)
		}
		for i, c := range p.constants {
			if c.address == addr && !slices.Contains(f.constants, i) {
				f.constants = append(f.constants, i)
			}
		}
		return nil
	}

	switch depth {
	case 2:
		p.param = nil
		if strings.HasPrefix(text, "ParmVarDecl ") {
			param := &astParam{}
			if m := rxParmVarDecl.FindStringSubmatch(text); m != nil {
				param.name = m[1]
				param.space = m[2]
				param.dataType = strings.TrimSpace(m[3])
				param.multiplicity = strings.TrimSpace(m[4])
			}
			f.params = append(f.params, param)
			p.param = param
			return nil
		}
		if m := rxStageAttr.FindStringSubmatch(text); m != nil {
			switch m[1] {
			case "Vertex":
				f.stage = mtlbind.StageVertex
			case "Fragment":
				f.stage = mtlbind.StageFragment
			case "Kernel":
				f.stage = mtlbind.StageCompute
			default:
				f.skipStage = strings.ToLower(m[1])
				return nil
			}
			f.hasStage = true
		}

	case 3:
		if p.param == nil {
			return nil
		}
		if m := rxIndexAttr.FindStringSubmatch(text); m != nil {
			if p.param.indexAttr != "" {
				return ErrorUnsupported{Function: f.name, Param: p.param.name, Reason: "multiple index attributes"}
			}
			p.param.indexAttr = m[1]
			p.awaitingIndex = true
			return nil
		}
		if rxOtherAttr.MatchString(text) {
			p.param.builtin = true
		}
	}
	return nil
}

func (p *astParser) setIndex(value string) error {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return debug.ErrorWrapf(err, "%s: %q: invalid index for %q", p.source, p.function.name, p.param.name)
	}
	p.param.index = int(v)
	p.param.hasIndex = true
	p.awaitingIndex = false
	return nil
}

func (p *astParser) finishFunction() error {
	f := p.function
	p.function = nil
	p.param = nil
	if f == nil {
		return nil
	}
	if f.skipStage != "" {
		instance.logger.WPrintf("%s: skipping %s function %q", p.source, f.skipStage, f.name)
		return nil
	}
	if !f.hasStage {
		instance.logger.VPrintf("%s: %q is not a shader function", p.source, f.name)
		return nil
	}

	out := Function{Name: f.name, Stage: f.stage}
	implicit := []int{}
	for _, ap := range f.params {
		param, ok, err := classifyParam(f.name, ap)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !ap.hasIndex {
			implicit = append(implicit, len(out.Params))
		}
		out.Params = append(out.Params, param)
	}
	assignImplicitSlots(out.Params, implicit)

	slices.Sort(f.constants)
	out.FunctionConstants = f.constants
	p.record.Functions = append(p.record.Functions, out)
	instance.logger.VPrintf("%s: reflected %s function %q with %d bindings", p.source, out.Stage, out.Name, len(out.Params))
	return nil
}

func isAccelerationStructure(dataType string) bool {
	return strings.HasPrefix(dataType, "raytracing::") && strings.Contains(dataType, "acceleration_structure")
}

func isTexture(dataType string) bool {
	return strings.HasPrefix(dataType, "texture") || strings.HasPrefix(dataType, "depth")
}

/*
classifyParam turns a parsed parameter into a binding. ok is false for
parameters that bind nothing, like builtins and the plain values of non
shader functions.
*/
func classifyParam(function string, ap *astParam) (Param, bool, error) {
	if ap.builtin {
		return Param{}, false, nil
	}
	if ap.name == "" {
		if ap.indexAttr != "" {
			return Param{}, false, ErrorUnsupported{Function: function, Reason: "unnamed bound parameter"}
		}
		return Param{}, false, nil
	}

	param := Param{Name: ap.name, ElementType: ap.dataType, Slot: uint32(ap.index)}

	switch {
	case isAccelerationStructure(ap.dataType):
		if ap.indexAttr == "Texture" {
			return Param{}, false, ErrorUnsupported{Function: function, Param: ap.name, Reason: "acceleration structure bound to a texture index"}
		}
		param.Class = mtlbind.ResourceClassAccelerationStructure
		return param, true, nil

	case ap.indexAttr == "Texture" || (ap.indexAttr == "" && ap.space == "" && isTexture(ap.dataType)):
		param.Class = mtlbind.ResourceClassTexture
		return param, true, nil

	case ap.indexAttr == "Buffer" || (ap.indexAttr == "" && ap.space != "" && ap.multiplicity != ""):
		if ap.space == "" || ap.multiplicity == "" {
			return Param{}, false, ErrorUnsupported{
				Function: function, Param: ap.name,
				Reason: "buffers must be passed as a device or constant pointer or reference, got '" + ap.space + ap.dataType + "'",
			}
		}
		param.Class = mtlbind.ResourceClassBuffer
		param.Mutable = ap.space == "device "
		if ap.multiplicity == "*" {
			param.Multiplicity = MultiplicityMany
		}
		return param, true, nil
	}
	return Param{}, false, nil
}

func assignImplicitSlots(params []Param, implicit []int) {
	used := map[mtlbind.Table]map[uint32]struct{}{
		mtlbind.TableBuffer:  {},
		mtlbind.TableTexture: {},
	}
	for i, p := range params {
		if !slices.Contains(implicit, i) {
			used[p.Class.Table()][p.Slot] = struct{}{}
		}
	}
	for _, i := range implicit {
		table := used[params[i].Class.Table()]
		slot := uint32(0)
		for {
			if _, ok := table[slot]; !ok {
				break
			}
			slot++
		}
		table[slot] = struct{}{}
		params[i].Slot = slot
	}
}
