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

package mtltypes

import (
	"reflect"

	"goarrg.com/debug"
)

/*
CheckPlainData returns an error if t can not be copied bit for bit between
the CPU and the GPU: it must be built only from fixed size numbers, bools,
arrays and structs.
*/
func CheckPlainData(t reflect.Type) error {
	return checkPlainData(t, t.String())
}

func checkPlainData(t reflect.Type, path string) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil

	case reflect.Array:
		return checkPlainData(t.Elem(), path+"[]")

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkPlainData(f.Type, path+"."+f.Name); err != nil {
				return err
			}
		}
		return nil

	default:
		return debug.Errorf("%s: %s is not plain data", path, t.Kind())
	}
}
