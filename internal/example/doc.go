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
Package example holds the checked in output of mtlbindgen for shaders.metal
and shader_src/common.h. The codegen tests regenerate it from fixtures and
compare, the tests here exercise the generated contracts against a recording
encoder.
*/
package example

//go:generate go run goarrg.com/rhi/mtlbind/cmd/mtlbindgen -package example -types shader_src/common.h
//go:generate go run goarrg.com/rhi/mtlbind/cmd/mtlbindgen -package example shaders.metal
