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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"goarrg.com/debug"
	"goarrg.com/rhi/mtlbind/codegen"
	"goarrg.com/rhi/mtlbind/reflector"
)

type job struct {
	metal   reflector.MetalFrontend
	wgsl    reflector.WGSLFrontend
	opts    codegen.Options
	inputs  []string
	outDir  string
	types   bool
	json    bool
	emitMSL bool
}

type output struct {
	path string
	data []byte
}

func (j *job) path(in string) string {
	if filepath.IsAbs(in) {
		return in
	}
	return filepath.Join(j.metal.Dir, in)
}

func (j *job) options() (codegen.Options, error) {
	opts := j.opts
	if opts.Package != "" {
		return opts, nil
	}
	if _, err := os.Stat(j.outDir); err != nil {
		// A directory that does not exist yet is named after itself.
		abs, err := filepath.Abs(j.outDir)
		if err != nil {
			return opts, err
		}
		opts.Package = codegen.GoPackageName(filepath.Base(abs))
		return opts, nil
	}
	name, err := codegen.PackageName(j.outDir)
	if err != nil {
		return opts, err
	}
	opts.Package = name
	return opts, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// generate returns every file the inputs produce without writing them.
func (j *job) generate() ([]output, error) {
	opts, err := j.options()
	if err != nil {
		return nil, err
	}
	if j.types {
		return j.generateTypes(opts)
	}

	outputs := []output{}
	for _, in := range j.inputs {
		var record *reflector.Record
		switch filepath.Ext(in) {
		case ".metal":
			debug.IPrintf("Reflecting: %q", in)
			record, err = j.metal.Reflect(in)
			if err != nil {
				return nil, err
			}
		case ".wgsl":
			debug.IPrintf("Translating: %q", in)
			src, err := os.ReadFile(j.path(in))
			if err != nil {
				return nil, err
			}
			var msl string
			record, msl, err = j.wgsl.Translate(in, string(src))
			if err != nil {
				return nil, err
			}
			if j.emitMSL {
				name := strings.TrimSuffix(filepath.Base(in), ".wgsl") + "_wgsl.metal"
				outputs = append(outputs, output{filepath.Join(j.outDir, name), []byte(msl)})
			}
		default:
			return nil, debug.Errorf("Unsupported input %q, expected a .metal or .wgsl file", in)
		}

		if j.json {
			data, err := marshal(record)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, output{filepath.Join(j.outDir, filepath.Base(in)+".json"), data})
			continue
		}
		data, err := codegen.Bindings(record, opts)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{filepath.Join(j.outDir, codegen.FileName(in)), data})
	}
	return outputs, nil
}

func (j *job) generateTypes(opts codegen.Options) ([]output, error) {
	acc := &reflector.TypeAccumulator{}
	records := make([]*reflector.TypeRecord, len(j.inputs))
	for i, in := range j.inputs {
		debug.IPrintf("Reflecting types: %q", in)
		r, err := j.metal.ReflectTypes(in, acc)
		if err != nil {
			return nil, err
		}
		records[i] = r
	}

	if j.json {
		data, err := marshal(records)
		if err != nil {
			return nil, err
		}
		return []output{{filepath.Join(j.outDir, "mtlbind_types.json"), data}}, nil
	}

	src, test, err := codegen.Types(records, acc, opts)
	if err != nil {
		return nil, err
	}
	return []output{
		{filepath.Join(j.outDir, codegen.TypesFileName), src},
		{filepath.Join(j.outDir, codegen.TypesTestFileName), test},
	}, nil
}

func (j *job) run() error {
	outputs, err := j.generate()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return err
	}
	for _, o := range outputs {
		debug.IPrintf("Writing: %q", o.path)
		if err := os.WriteFile(o.path, o.data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// check writes a unified diff of every stale output to w.
func (j *job) check(w io.Writer) (bool, error) {
	outputs, err := j.generate()
	if err != nil {
		return false, err
	}

	stale := false
	for _, o := range outputs {
		have, err := os.ReadFile(o.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		if bytes.Equal(have, o.data) {
			continue
		}
		stale = true
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(have)),
			B:        difflib.SplitLines(string(o.data)),
			FromFile: o.path,
			ToFile:   o.path + " (generated)",
			Context:  3,
		})
		if err != nil {
			return false, err
		}
		fmt.Fprint(w, diff)
	}
	return stale, nil
}
