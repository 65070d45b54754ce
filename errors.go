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
	"github.com/pkg/errors"

	"github.com/forensicanalysis/loadevidence/classify"
	"github.com/forensicanalysis/loadevidence/pathalloc"
	"github.com/forensicanalysis/loadevidence/strategy"
)

var (
	// ErrClassification marks items that could not be read or classified.
	ErrClassification = classify.ErrClassification
	// ErrExtraction marks containers whose decoder failed.
	ErrExtraction = strategy.ErrDecoder
	// ErrPathAllocation marks items whose destination could not be created.
	ErrPathAllocation = pathalloc.ErrPathAllocation
	// ErrDuplicate marks items skipped in unique mode. It is informational.
	ErrDuplicate = errors.New("duplicate content")
	// ErrRecursionLimit marks containers that were not expanded because of
	// the depth cap or because they contain themselves.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrUnsupportedFile marks items that are not regular files, like pipes
	// and devices, and symlinks leaving the evidence.
	ErrUnsupportedFile = errors.New("unsupported file")
)
