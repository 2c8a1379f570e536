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
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"goarrg.com/debug"
)

// Editors tend to save in bursts of events, they are coalesced for this long.
const settle = 100 * time.Millisecond

// watched returns the absolute paths of the inputs and the headers they include.
func (j *job) watched() []string {
	paths := []string{}
	for _, in := range j.inputs {
		paths = append(paths, j.path(in))
		if filepath.Ext(in) == ".wgsl" {
			continue
		}
		deps, err := j.metal.Dependencies(in)
		if err != nil {
			// The next successful build picks them up.
			debug.WPrintf("Failed to list dependencies of %q: %v", in, err)
			continue
		}
		for _, d := range deps {
			paths = append(paths, j.path(d))
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

func (j *job) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	files := []string{}
	update := func() error {
		files = j.watched()
		for _, f := range files {
			// Directories survive editors that replace files on save.
			if err := w.Add(filepath.Dir(f)); err != nil {
				return err
			}
		}
		return nil
	}

	build := func() {
		if err := j.run(); err != nil {
			debug.EPrintf("%v", err)
			return
		}
		debug.IPrintf("Up to date")
	}

	build()
	if err := update(); err != nil {
		return err
	}
	debug.IPrintf("Watching %d files", len(files))

	var timer <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if _, found := slices.BinarySearch(files, filepath.Clean(ev.Name)); !found {
				continue
			}
			debug.VPrintf("Changed: %q", ev.Name)
			timer = time.After(settle)

		case <-timer:
			timer = nil
			build()
			if err := update(); err != nil {
				return err
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			debug.WPrintf("Watcher: %v", err)
		}
	}
}
