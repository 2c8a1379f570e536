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

package mtlbind

import (
	"cmp"
	"fmt"
	"slices"

	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/internal/util"
)

// Slot describes one bound parameter of a shader function.
type Slot struct {
	Name  string
	Class ResourceClass
	Index uint32
}

/*
Function is implemented by the generated marker type of every shader entry
point. FunctionName is the name the function has in the compiled library.
*/
type Function interface {
	FunctionName() string
	Stage() Stage
	Slots() []Slot
}

type ErrorSlotConflict struct {
	Table Table
	Index uint32
	Names [2]string
}

func (ErrorSlotConflict) Is(target error) bool {
	_, ok := target.(ErrorSlotConflict)
	return ok
}

func (e ErrorSlotConflict) Error() string {
	return fmt.Sprintf("%s slot %d bound by both %q and %q", e.Table, e.Index, e.Names[0], e.Names[1])
}

/*
ValidateFunction checks that every slot of f is inside its argument table and
that no two parameters share a slot in the same table.
*/
func ValidateFunction(f Function) error {
	slots := slices.Clone(f.Slots())
	slices.SortStableFunc(slots, func(a, b Slot) int {
		if c := cmp.Compare(a.Class.Table(), b.Class.Table()); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	for i, s := range slots {
		t := s.Class.Table()
		if s.Index >= t.Len() {
			return debug.Errorf("%s: %q %s slot %d out of range [0, %d)", f.FunctionName(), s.Name, t, s.Index, t.Len())
		}
		if i > 0 {
			prev := slots[i-1]
			if prev.Class.Table() == t && prev.Index == s.Index {
				return debug.ErrorWrapf(ErrorSlotConflict{
					Table: t,
					Index: s.Index,
					Names: [2]string{prev.Name, s.Name},
				}, "Invalid layout for %q", f.FunctionName())
			}
		}
	}

	return nil
}

// DataType mirrors MTLDataType for the types a function constant can have.
type DataType uint32

const (
	DataTypeFloat    DataType = 3
	DataTypeFloat2   DataType = 4
	DataTypeFloat3   DataType = 5
	DataTypeFloat4   DataType = 6
	DataTypeHalf     DataType = 16
	DataTypeHalf2    DataType = 17
	DataTypeHalf3    DataType = 18
	DataTypeHalf4    DataType = 19
	DataTypeInt      DataType = 29
	DataTypeInt2     DataType = 30
	DataTypeInt3     DataType = 31
	DataTypeInt4     DataType = 32
	DataTypeUInt     DataType = 33
	DataTypeUInt2    DataType = 34
	DataTypeUInt3    DataType = 35
	DataTypeUInt4    DataType = 36
	DataTypeShort    DataType = 37
	DataTypeShort2   DataType = 38
	DataTypeShort3   DataType = 39
	DataTypeShort4   DataType = 40
	DataTypeUShort   DataType = 41
	DataTypeUShort2  DataType = 42
	DataTypeUShort3  DataType = 43
	DataTypeUShort4  DataType = 44
	DataTypeChar     DataType = 45
	DataTypeChar2    DataType = 46
	DataTypeChar3    DataType = 47
	DataTypeChar4    DataType = 48
	DataTypeUChar    DataType = 49
	DataTypeUChar2   DataType = 50
	DataTypeUChar3   DataType = 51
	DataTypeUChar4   DataType = 52
	DataTypeBool     DataType = 53
	DataTypeBool2    DataType = 54
	DataTypeBool3    DataType = 55
	DataTypeBool4    DataType = 56
	DataTypeLong     DataType = 81
	DataTypeULong    DataType = 85
	DataTypeInvalid  DataType = 0
)

/*
FunctionConstantValue is one specialization value for a function constant,
Data holds the raw bytes of the value in the layout the shader expects.
*/
type FunctionConstantValue struct {
	Index uint16
	Type  DataType
	Data  []byte
}

func NewFunctionConstantValue[T any](index uint16, dataType DataType, v *T) FunctionConstantValue {
	if dataType == DataTypeInvalid {
		abort("Invalid data type for function constant %d", index)
	}
	return FunctionConstantValue{
		Index: index,
		Type:  dataType,
		Data:  append([]byte(nil), util.Bytes(v)...),
	}
}
