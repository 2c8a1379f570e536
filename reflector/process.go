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
	"fmt"
	"strings"

	"goarrg.com/toolchain"
)

// Runner runs a command in dir and returns its combined output.
type Runner func(dir, name string, args ...string) (string, error)

func defaultRunner(dir, name string, args ...string) (string, error) {
	out, err := toolchain.RunDirCombinedOutput(dir, name, args...)
	return string(out), err
}

// ProcessError is returned when a shader toolchain command fails.
type ProcessError struct {
	Cmd    []string
	Output string
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %v\n%s", strings.Join(e.Cmd, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func run(runner Runner, dir, name string, args ...string) (string, error) {
	if runner == nil {
		runner = defaultRunner
	}
	instance.logger.VPrintf("Running: %s %s", name, strings.Join(args, " "))
	out, err := runner(dir, name, args...)
	if err != nil {
		return out, &ProcessError{Cmd: append([]string{name}, args...), Output: out, Err: err}
	}
	return out, nil
}
