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
	"slices"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind"
)

type Multiplicity uint8

const (
	MultiplicityOne Multiplicity = iota
	MultiplicityMany
)

func (m Multiplicity) String() string {
	if m == MultiplicityMany {
		return "many"
	}
	return "one"
}

func (m Multiplicity) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Multiplicity) UnmarshalText(data []byte) error {
	switch string(data) {
	case "one":
		*m = MultiplicityOne
	case "many":
		*m = MultiplicityMany
	default:
		return debug.Errorf("Invalid multiplicity: %q", data)
	}
	return nil
}

/*
Param is one bound parameter of a shader function. ElementType is the Metal
spelling of the pointee for buffers, the texture type for textures and the
acceleration structure type otherwise.
*/
type Param struct {
	Name         string
	Class        mtlbind.ResourceClass
	Slot         uint32
	ElementType  string
	Mutable      bool         `json:",omitempty"`
	Multiplicity Multiplicity `json:",omitempty"`
}

type Function struct {
	Name   string
	Stage  mtlbind.Stage
	Params []Param

	// FunctionConstants are indices into Record.FunctionConstants, sorted.
	FunctionConstants []int `json:",omitempty"`
}

type FunctionConstant struct {
	Name     string
	DataType string
	Index    uint16
}

// Record is everything reflected from one shader source file.
type Record struct {
	Source            string
	FunctionConstants []FunctionConstant `json:",omitempty"`
	Functions         []Function
}

type functionLayout struct {
	f *Function
}

func (l functionLayout) FunctionName() string {
	return l.f.Name
}

func (l functionLayout) Stage() mtlbind.Stage {
	return l.f.Stage
}

func (l functionLayout) Slots() []mtlbind.Slot {
	slots := make([]mtlbind.Slot, len(l.f.Params))
	for i, p := range l.f.Params {
		slots[i] = mtlbind.Slot{Name: p.Name, Class: p.Class, Index: p.Slot}
	}
	return slots
}

// Layout returns f as the interface generated marker types implement.
func (f *Function) Layout() mtlbind.Function {
	return functionLayout{f}
}

/*
Validate checks that function names are unique, that every function has a
valid slot layout and that function constant references are in range.
*/
func (r *Record) Validate() error {
	seen := map[string]struct{}{}
	for i := range r.Functions {
		f := &r.Functions[i]
		if _, ok := seen[f.Name]; ok {
			return debug.Errorf("%s: duplicate function %q", r.Source, f.Name)
		}
		seen[f.Name] = struct{}{}

		if err := mtlbind.ValidateFunction(f.Layout()); err != nil {
			return debug.ErrorWrapf(err, "%s", r.Source)
		}
		for _, c := range f.FunctionConstants {
			if c < 0 || c >= len(r.FunctionConstants) {
				return debug.Errorf("%s: %q references unknown function constant %d", r.Source, f.Name, c)
			}
		}
		if !slices.IsSorted(f.FunctionConstants) {
			return debug.Errorf("%s: %q function constants are not sorted", r.Source, f.Name)
		}
	}

	indices := map[uint16]string{}
	for _, c := range r.FunctionConstants {
		if other, ok := indices[c.Index]; ok {
			return debug.Errorf("%s: function constants %q and %q share index %d", r.Source, other, c.Name, c.Index)
		}
		indices[c.Index] = c.Name
	}
	return nil
}

func (r *Record) String() string {
	return prettyString(r)
}

func (r *Record) Function(name string) (*Function, bool) {
	for i := range r.Functions {
		if r.Functions[i].Name == name {
			return &r.Functions[i], true
		}
	}
	return nil, false
}

// UsesAccelerationStructures reports whether any function binds an
// acceleration structure.
func (r *Record) UsesAccelerationStructures() bool {
	for _, f := range r.Functions {
		for _, p := range f.Params {
			if p.Class == mtlbind.ResourceClassAccelerationStructure {
				return true
			}
		}
	}
	return false
}

// Frontend reflects the shader functions of one source file.
type Frontend interface {
	Reflect(path string) (*Record, error)
}

var (
	_ Frontend = (*MetalFrontend)(nil)
	_ Frontend = (*WGSLFrontend)(nil)
)
