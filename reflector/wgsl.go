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
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind"
	"goarrg.com/rhi/mtlbind/internal/container"
)

// SizesBufferParam names the implicit buffer holding runtime array lengths.
const SizesBufferParam = "buffer_sizes"

/*
WGSLFrontend reflects and translates WGSL sources with naga. Bindings are
assigned per argument table in (group, binding) order so the generated Metal
code and the reflected Record always agree.
*/
type WGSLFrontend struct {
	// LangVersion is the Metal language version to emit, "2.1" when empty.
	LangVersion string

	// InlineSamplers gives every sampler global, by name, its constexpr state.
	// Samplers without an entry can not be bound and fail the reflection.
	InlineSamplers map[string]msl.InlineSampler

	// PipelineConstants are baked into the emitted source for WGSL overrides.
	PipelineConstants map[string]float64
}

type wgslGlobal struct {
	handle ir.GlobalVariableHandle
	param  Param
}

type wgslEntry struct {
	entry   *ir.EntryPoint
	stage   mtlbind.Stage
	globals []wgslGlobal
	sizes   bool
	sampler []ir.GlobalVariableHandle
}

func (f *WGSLFrontend) version() (msl.Version, error) {
	if f.LangVersion == "" {
		return msl.Version2_1, nil
	}
	v, err := semver.NewVersion(f.LangVersion)
	if err != nil {
		return msl.Version{}, debug.ErrorWrapf(err, "Invalid Metal language version %q", f.LangVersion)
	}
	if v.Major() > 255 || v.Minor() > 255 {
		return msl.Version{}, debug.Errorf("Invalid Metal language version %q", f.LangVersion)
	}
	return msl.Version{Major: uint8(v.Major()), Minor: uint8(v.Minor())}, nil
}

/*
Translate parses and lowers the WGSL in src, reflects every vertex, fragment
and compute entry point and emits the Metal source those bindings describe.
*/
func (f *WGSLFrontend) Translate(source, src string) (*Record, string, error) {
	version, err := f.version()
	if err != nil {
		return nil, "", err
	}

	ast, err := naga.Parse(src)
	if err != nil {
		return nil, "", debug.ErrorWrapf(err, "%s: Failed to parse WGSL", source)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, "", debug.ErrorWrapf(err, "%s: Failed to lower WGSL", source)
	}

	options := msl.DefaultOptions()
	options.LangVersion = version
	options.PipelineConstants = f.PipelineConstants
	options.PerEntryPointMap = map[string]msl.EntryPointResources{}

	inline := map[string]uint8{}
	err = mapRunFuncSorted(f.InlineSamplers, func(name string, s msl.InlineSampler) error {
		if len(options.InlineSamplers) > 255 {
			return debug.Errorf("%s: too many inline samplers", source)
		}
		inline[name] = uint8(len(options.InlineSamplers))
		options.InlineSamplers = append(options.InlineSamplers, s)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	record := &Record{Source: source}
	entries := []wgslEntry{}

	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		stage, ok := wgslStage(ep.Stage)
		if !ok {
			instance.logger.WPrintf("%s: Skipping %q, unsupported stage %d", source, ep.Name, ep.Stage)
			continue
		}

		entry, err := classifyEntry(module, ep, stage, inline)
		if err != nil {
			return nil, "", debug.ErrorWrapf(err, "%s", source)
		}
		if stage == mtlbind.StageCompute || len(entry.globals) > 0 || len(entry.sampler) > 0 {
			options.PerEntryPointMap[ep.Name] = entry.resources(module, inline)
		}
		entries = append(entries, entry)
	}

	for _, e := range entries {
		for _, g := range e.globals {
			if g.param.Class == mtlbind.ResourceClassAccelerationStructure && version.Less(msl.Version2_3) {
				return nil, "", debug.Errorf("%s: %q binds an acceleration structure which needs Metal 2.3, have %d.%d",
					source, e.entry.Name, version.Major, version.Minor)
			}
		}
	}

	out, info, err := msl.Compile(module, options)
	if err != nil {
		return nil, "", debug.ErrorWrapf(err, "%s: Failed to generate Metal source", source)
	}

	for _, e := range entries {
		name := e.entry.Name
		if n, ok := info.EntryPointNames[name]; ok && n != "" {
			name = n
		}
		fn := Function{Name: name, Stage: e.stage, Params: []Param{}}
		for _, g := range e.globals {
			fn.Params = append(fn.Params, g.param)
		}
		if e.sizes {
			fn.Params = append(fn.Params, Param{
				Name:         SizesBufferParam,
				Class:        mtlbind.ResourceClassBuffer,
				Slot:         e.sizesSlot(),
				ElementType:  "uint",
				Multiplicity: MultiplicityMany,
			})
		}
		record.Functions = append(record.Functions, fn)
	}

	if err := record.Validate(); err != nil {
		return nil, "", err
	}
	instance.logger.VPrintf("%s: %s", source, jsonString(record))
	return record, out, nil
}

func wgslStage(s ir.ShaderStage) (mtlbind.Stage, bool) {
	switch s {
	case ir.StageVertex:
		return mtlbind.StageVertex, true
	case ir.StageFragment:
		return mtlbind.StageFragment, true
	case ir.StageCompute:
		return mtlbind.StageCompute, true
	default:
		return 0, false
	}
}

/*
usedGlobals returns every global variable reachable from the entry point,
including through called functions, sorted by handle.
*/
func usedGlobals(module *ir.Module, ep *ir.EntryPoint) []ir.GlobalVariableHandle {
	used := map[ir.GlobalVariableHandle]struct{}{}
	visited := map[ir.FunctionHandle]struct{}{}
	functions := container.Stack[*ir.Function]{}
	functions.Push(&ep.Function)

	visit := func(h ir.FunctionHandle) {
		if _, ok := visited[h]; ok || int(h) >= len(module.Functions) {
			return
		}
		visited[h] = struct{}{}
		functions.Push(&module.Functions[h])
	}

	for !functions.Empty() {
		fn := functions.Pop()
		for _, e := range fn.Expressions {
			switch k := e.Kind.(type) {
			case ir.ExprGlobalVariable:
				used[k.Variable] = struct{}{}
			case ir.ExprCallResult:
				visit(k.Function)
			}
		}

		blocks := container.Stack[ir.Block]{}
		blocks.Push(fn.Body)
		for !blocks.Empty() {
			for _, s := range blocks.Pop() {
				switch k := s.Kind.(type) {
				case ir.StmtBlock:
					blocks.Push(k.Block)
				case ir.StmtIf:
					blocks.Push(k.Accept)
					blocks.Push(k.Reject)
				case ir.StmtSwitch:
					for _, c := range k.Cases {
						blocks.Push(c.Body)
					}
				case ir.StmtLoop:
					blocks.Push(k.Body)
					blocks.Push(k.Continuing)
				case ir.StmtCall:
					visit(k.Function)
				}
			}
		}
	}

	handles := make([]ir.GlobalVariableHandle, 0, len(used))
	for h := range used {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}

func classifyEntry(module *ir.Module, ep *ir.EntryPoint, stage mtlbind.Stage, inline map[string]uint8) (wgslEntry, error) {
	entry := wgslEntry{entry: ep, stage: stage}

	for _, h := range usedGlobals(module, ep) {
		g := &module.GlobalVariables[h]
		if g.Binding == nil {
			switch g.Space {
			case ir.SpaceUniform, ir.SpaceStorage, ir.SpaceHandle:
				return entry, ErrorUnsupported{Function: ep.Name, Param: g.Name, Reason: "resource has no @group/@binding"}
			}
			continue
		}

		param := Param{Name: g.Name}
		inner := module.Types[g.Type].Inner

		switch g.Space {
		case ir.SpaceUniform:
			param.Class = mtlbind.ResourceClassBuffer
			param.ElementType = typeName(module, g.Type)

		case ir.SpaceStorage:
			param.Class = mtlbind.ResourceClassBuffer
			param.Mutable = g.Access != ir.StorageRead
			param.ElementType = typeName(module, g.Type)
			if a, ok := inner.(ir.ArrayType); ok {
				param.Multiplicity = MultiplicityMany
				param.ElementType = typeName(module, a.Base)
				if a.Size.Constant == nil {
					entry.sizes = true
				}
			}

		case ir.SpaceHandle:
			switch t := inner.(type) {
			case ir.ImageType:
				if t.Class == ir.ImageClassExternal {
					return entry, ErrorUnsupported{Function: ep.Name, Param: g.Name, Reason: "external textures are not supported"}
				}
				param.Class = mtlbind.ResourceClassTexture
				param.ElementType = textureName(t)
				param.Mutable = t.Class == ir.ImageClassStorage && t.StorageAccess != ir.StorageAccessRead
			case ir.AccelerationStructureType:
				param.Class = mtlbind.ResourceClassAccelerationStructure
				param.ElementType = "metal::raytracing::instance_acceleration_structure"
			case ir.SamplerType:
				if _, ok := inline[g.Name]; !ok {
					return entry, ErrorUnsupported{Function: ep.Name, Param: g.Name, Reason: "sampler has no inline sampler state"}
				}
				entry.sampler = append(entry.sampler, h)
				continue
			default:
				return entry, ErrorUnsupported{Function: ep.Name, Param: g.Name, Reason: fmt.Sprintf("unsupported handle type %T", inner)}
			}

		default:
			return entry, ErrorUnsupported{Function: ep.Name, Param: g.Name, Reason: fmt.Sprintf("unsupported address space %d", g.Space)}
		}

		entry.globals = append(entry.globals, wgslGlobal{handle: h, param: param})
	}

	slices.SortStableFunc(entry.globals, func(a, b wgslGlobal) int {
		ba := module.GlobalVariables[a.handle].Binding
		bb := module.GlobalVariables[b.handle].Binding
		if c := cmp.Compare(ba.Group, bb.Group); c != 0 {
			return c
		}
		return cmp.Compare(ba.Binding, bb.Binding)
	})

	next := [2]uint32{}
	for i := range entry.globals {
		p := &entry.globals[i].param
		t := p.Class.Table()
		p.Slot = next[t]
		next[t]++
		if p.Slot >= t.Len() {
			return entry, debug.Errorf("%s: %q needs %s slot %d, table holds %d", ep.Name, p.Name, t, p.Slot, t.Len())
		}
	}
	if entry.sizes && next[mtlbind.TableBuffer] >= mtlbind.MaxBufferSlots {
		return entry, debug.Errorf("%s: no buffer slot left for %s", ep.Name, SizesBufferParam)
	}
	return entry, nil
}

func (e *wgslEntry) sizesSlot() uint32 {
	n := uint32(0)
	for _, g := range e.globals {
		if g.param.Class.Table() == mtlbind.TableBuffer {
			n++
		}
	}
	return n
}

func (e *wgslEntry) resources(module *ir.Module, inline map[string]uint8) msl.EntryPointResources {
	res := msl.EntryPointResources{Resources: map[ir.ResourceBinding]msl.BindTarget{}}
	for _, g := range e.globals {
		slot := uint8(g.param.Slot)
		target := msl.BindTarget{Mutable: g.param.Mutable}
		if g.param.Class.Table() == mtlbind.TableTexture {
			target.Texture = &slot
		} else {
			target.Buffer = &slot
		}
		res.Resources[*module.GlobalVariables[g.handle].Binding] = target
	}
	for _, h := range e.sampler {
		g := &module.GlobalVariables[h]
		res.Resources[*g.Binding] = msl.BindTarget{
			Sampler: &msl.BindSamplerTarget{IsInline: true, Slot: inline[g.Name]},
		}
	}
	if e.sizes {
		slot := uint8(e.sizesSlot())
		res.SizesBuffer = &slot
	}
	return res
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarFloat, ir.ScalarAbstractFloat:
		if s.Width == 2 {
			return "half"
		}
		return "float"
	case ir.ScalarSint, ir.ScalarAbstractInt:
		switch s.Width {
		case 2:
			return "short"
		case 8:
			return "long"
		}
		return "int"
	case ir.ScalarUint:
		switch s.Width {
		case 2:
			return "ushort"
		case 8:
			return "ulong"
		}
		return "uint"
	}
	return "void"
}

// typeName spells h the way the emitted Metal source does for plain data.
func typeName(module *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(module.Types) {
		return "void"
	}
	t := module.Types[h]
	switch inner := t.Inner.(type) {
	case ir.ScalarType:
		return scalarName(inner)
	case ir.VectorType:
		return fmt.Sprintf("%s%d", scalarName(inner.Scalar), inner.Size)
	case ir.MatrixType:
		return fmt.Sprintf("%s%dx%d", scalarName(inner.Scalar), inner.Columns, inner.Rows)
	case ir.AtomicType:
		return "metal::atomic_" + scalarName(inner.Scalar)
	case ir.ArrayType:
		if inner.Size.Constant == nil {
			return typeName(module, inner.Base)
		}
		return fmt.Sprintf("%s[%d]", typeName(module, inner.Base), *inner.Size.Constant)
	}
	if t.Name != "" {
		return t.Name
	}
	return "void"
}

func textureName(t ir.ImageType) string {
	dim := map[ir.ImageDimension]string{
		ir.Dim1D:   "1d",
		ir.Dim2D:   "2d",
		ir.Dim3D:   "3d",
		ir.DimCube: "cube",
	}[t.Dim]
	if t.Multisampled {
		dim += "_ms"
	}
	if t.Arrayed {
		dim += "_array"
	}

	switch t.Class {
	case ir.ImageClassDepth:
		return fmt.Sprintf("metal::depth%s<float>", dim)
	case ir.ImageClassStorage:
		access := "read"
		switch t.StorageAccess {
		case ir.StorageAccessWrite:
			access = "write"
		case ir.StorageAccessReadWrite, ir.StorageAccessAtomic:
			access = "read_write"
		}
		return fmt.Sprintf("metal::texture%s<float, metal::access::%s>", dim, access)
	default:
		return fmt.Sprintf("metal::texture%s<%s>", dim, scalarName(ir.ScalarType{Kind: t.SampledKind, Width: 4}))
	}
}

// Reflect reads and translates the WGSL file at path, discarding the Metal
// source.
func (f *WGSLFrontend) Reflect(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read %q", path)
	}
	record, _, err := f.Translate(path, string(data))
	return record, err
}
