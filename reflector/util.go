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

/*
Package reflector extracts the binding layout of shader entry points from
shader source, either through the clang AST dump of the Metal compiler or by
compiling WGSL with naga.
*/
package reflector

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"goarrg.com/debug"
	"golang.org/x/exp/maps"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("mtlbind", "reflector"),
}

func SetLogLevel(l uint32) {
	instance.logger.SetLevel(l)
}

func jsonString(target any) string {
	bytes, err := json.Marshal(target)
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return strings.TrimSpace(string(bytes))
}

func prettyString(target any) string {
	bytes, err := json.MarshalIndent(target, "", "    ")
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return strings.TrimSpace(string(bytes))
}

func mapRunFuncSorted[M ~map[K]V, K cmp.Ordered, V any](m M, f func(K, V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)

	for _, k := range keys {
		err := f(k, m[k])
		if err != nil {
			return err
		}
	}

	return nil
}

type ErrorUnsupported struct {
	Function string
	Param    string
	Reason   string
}

func (ErrorUnsupported) Is(target error) bool {
	_, ok := target.(ErrorUnsupported)
	return ok
}

func (e ErrorUnsupported) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", e.Function, e.Reason)
	}
	return fmt.Sprintf("%s: parameter %q: %s", e.Function, e.Param, e.Reason)
}
