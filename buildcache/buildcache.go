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
Package buildcache gates expensive build steps on a fingerprint of their
inputs. A fingerprint is xxhash64 over the bytes of every input file
concatenated in argument order, stored as an 8 byte native endian record.
*/
package buildcache

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"goarrg.com/debug"
)

var logger = debug.NewLogger("mtlbind", "buildcache")

const recordSize = 8

// Fingerprint hashes the contents of paths in order. Failing to read any
// input is an error, a missing input is never treated as empty.
func Fingerprint(paths ...string) (uint64, error) {
	d := xxhash.New()
	for _, p := range paths {
		if err := hashFile(d, p); err != nil {
			return 0, err
		}
	}
	return d.Sum64(), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to read input %q", path)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return debug.ErrorWrapf(err, "Failed to read input %q", path)
	}
	return nil
}

// Read returns the recorded fingerprint, a missing or malformed record is
// reported as not ok.
func Read(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.VPrintf("No cache record at %q: %s", path, err)
		return 0, false
	}
	if len(data) != recordSize {
		logger.WPrintf("Ignoring cache record %q of %d bytes", path, len(data))
		return 0, false
	}
	return binary.NativeEndian.Uint64(data), true
}

func Write(path string, fingerprint uint64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return debug.ErrorWrapf(err, "Failed to create cache dir for %q", path)
	}
	data := binary.NativeEndian.AppendUint64(make([]byte, 0, recordSize), fingerprint)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return debug.ErrorWrapf(err, "Failed to write cache record %q", path)
	}
	return nil
}

/*
Conditionally calls regenerate unless the fingerprint of inputPaths matches
the record at cachedHashPath. The record is only updated after regenerate
succeeds so a failed step is retried on the next build. It returns whether
regenerate ran.
*/
func Conditionally(regenerate func() error, cachedHashPath string, inputPaths ...string) (bool, error) {
	fingerprint, err := Fingerprint(inputPaths...)
	if err != nil {
		return false, err
	}

	if cached, ok := Read(cachedHashPath); ok && cached == fingerprint {
		logger.VPrintf("Up to date: %q", cachedHashPath)
		return false, nil
	}

	logger.IPrintf("Regenerating: %q", cachedHashPath)
	if err := regenerate(); err != nil {
		return true, err
	}
	return true, Write(cachedHashPath, fingerprint)
}
