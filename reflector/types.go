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
	"strings"
	"unicode"

	"goarrg.com/rhi/mtlbind/internal/util"
)

// Field is one member of a Struct. Offset is in bytes from the start of
// the struct, Type is the Metal spelling of the element type and ArrayLen
// holds the array extents from outermost to innermost.
type Field struct {
	Name     string
	Type     string
	Offset   uint64
	ArrayLen []uint64 `json:",omitempty"`
}

type Struct struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []Field
}

type EnumValue struct {
	Name  string
	Value int64
}

type Enum struct {
	Name string
	// Underlying is the Metal spelling of the fixed underlying type, "int"
	// when none was declared.
	Underlying string
	Values     []EnumValue
}

// Alias is a typedef or using declaration.
type Alias struct {
	Name string
	Type string
}

// Constant is a constexpr scalar declared at namespace scope.
type Constant struct {
	Name  string
	Type  string
	Value string
}

// TypeRecord is everything reflected from one shared header.
type TypeRecord struct {
	Source    string
	Structs   []Struct   `json:",omitempty"`
	Enums     []Enum     `json:",omitempty"`
	Aliases   []Alias    `json:",omitempty"`
	Constants []Constant `json:",omitempty"`
}

func (r *TypeRecord) String() string {
	return prettyString(r)
}

func (r *TypeRecord) Struct(name string) (*Struct, bool) {
	for i := range r.Structs {
		if r.Structs[i].Name == name {
			return &r.Structs[i], true
		}
	}
	return nil, false
}

/*
TypeAccumulator collects the names of reflected types across every header of
a build, in the order they were first seen. Names made only of upper case
letters, digits and underscores are constants and are never collected.
*/
type TypeAccumulator struct {
	noCopy util.NoCopy
	names  []string
}

// IsConstantName reports whether name is spelled like a constant.
func IsConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case unicode.IsDigit(r), r == '_':
		default:
			return false
		}
	}
	return hasLetter
}

func (a *TypeAccumulator) Add(names ...string) {
	a.noCopy.InitLazy()
	for _, name := range names {
		if name == "" || IsConstantName(name) || slices.Contains(a.names, name) {
			continue
		}
		a.names = append(a.names, name)
	}
}

// AddRecord adds every struct, enum and alias of r.
func (a *TypeAccumulator) AddRecord(r *TypeRecord) {
	for _, s := range r.Structs {
		a.Add(s.Name)
	}
	for _, e := range r.Enums {
		a.Add(e.Name)
	}
	for _, t := range r.Aliases {
		a.Add(t.Name)
	}
}

func (a *TypeAccumulator) Names() []string {
	a.noCopy.InitLazy()
	return slices.Clone(a.names)
}

func (a *TypeAccumulator) Len() int {
	a.noCopy.InitLazy()
	return len(a.names)
}

func (a *TypeAccumulator) String() string {
	return strings.Join(a.Names(), ", ")
}
