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

package loadevidence

import (
	"path/filepath"
	"strings"

	"github.com/forensicanalysis/loadevidence/strategy"
)

// Status is the terminal state of a visited item.
type Status string

// Item states.
const (
	StatusExtracted Status = "extracted"
	StatusCopied    Status = "copied"
	StatusFailed    Status = "failed"
	StatusDuplicate Status = "duplicate"
)

// provenance maps physical paths below an extraction output back to the
// logical path of the container they came from.
type provenance struct {
	physical string
	logical  string
}

func (p provenance) resolve(path string) string {
	if p.physical == "" {
		return path
	}
	if path == p.physical {
		return p.logical
	}
	if strings.HasPrefix(path, p.physical+string(filepath.Separator)) {
		return p.logical + path[len(p.physical):]
	}
	return path
}

// Item is a file under consideration.
type Item struct {
	// Path is the absolute physical location.
	Path string
	// Root is the traversal root, empty when the input is a single file.
	Root string
	// Logical is the provenance path shown in the audit trail.
	Logical string
	// Top is the top level input the item was found under.
	Top string

	Size int64
	// Hash is empty when the item exceeds the hash size cap.
	Hash string
	MIME string

	// Depth counts the extraction hops from the top level input.
	Depth int
	// Lineage holds the hashes of all containers the item was extracted from.
	Lineage []string

	origin provenance
}

// nested reports whether the item was produced by an extraction.
func (i *Item) nested() bool {
	return i.Depth > 0
}

func (i *Item) descendsFrom(hash string) bool {
	for _, h := range i.Lineage {
		if h == hash {
			return true
		}
	}
	return false
}

// Outcome is the result of processing one item.
type Outcome struct {
	Status   Status
	Output   string
	Strategy *strategy.Strategy
	Result   *strategy.Result
	Err      error
}

// Failed reports whether the outcome counts as an error.
func (o *Outcome) Failed() bool {
	return o.Status == StatusFailed
}
