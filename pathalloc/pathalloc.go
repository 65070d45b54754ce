// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

// Package pathalloc computes collision free destination paths in the output
// tree of an evidence run.
package pathalloc

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrPathAllocation is returned when a destination directory cannot be created.
var ErrPathAllocation = errors.New("path allocation failed")

// Mode controls how Allocate treats existing paths and directories.
type Mode uint8

const (
	// MkdirParent creates the parent directory of the allocated path.
	MkdirParent Mode = 1 << iota
	// Mkdir creates the allocated path itself as a directory.
	Mkdir
	// Merge returns an existing path unchanged instead of suffixing it.
	// Extracting into an existing directory can overwrite evidence, so this
	// must only ever be enabled explicitly.
	Merge
)

// Has reports whether all bits of flag are set.
func (m Mode) Has(flag Mode) bool {
	return m&flag == flag
}

// Delimiter separates the stem from the collision counter.
const Delimiter = "_"

// Allocator hands out destination paths on a filesystem.
type Allocator struct {
	fs afero.Fs
}

// New creates an Allocator for fs.
func New(fs afero.Fs) *Allocator {
	return &Allocator{fs: fs}
}

// Allocate joins base, rel and stem+ext and returns the first path that does
// not exist yet, appending _1, _2, ... between stem and ext.
func (a *Allocator) Allocate(base, rel, stem, ext string, mode Mode) (string, error) {
	var parts []string
	for _, part := range []string{base, rel} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	dir := filepath.Clean(filepath.Join(parts...))
	candidate := filepath.Join(dir, stem+ext)

	exists, err := afero.Exists(a.fs, candidate)
	if err != nil {
		return "", errors.Wrap(err, candidate)
	}
	if exists && !mode.Has(Merge) {
		for i := 1; exists; i++ {
			candidate = filepath.Join(dir, fmt.Sprintf("%s%s%d%s", stem, Delimiter, i, ext))
			exists, err = afero.Exists(a.fs, candidate)
			if err != nil {
				return "", errors.Wrap(err, candidate)
			}
		}
	}

	switch {
	case mode.Has(Mkdir):
		if err := a.fs.MkdirAll(candidate, 0755); err != nil {
			return candidate, errors.Wrap(ErrPathAllocation, err.Error())
		}
	case mode.Has(MkdirParent):
		if err := a.fs.MkdirAll(filepath.Dir(candidate), 0755); err != nil {
			return candidate, errors.Wrap(ErrPathAllocation, err.Error())
		}
	}
	return candidate, nil
}
