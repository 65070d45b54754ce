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

// Package strategy maps MIME types to external decoders and runs them.
//
// Every container format is described by a declarative Strategy record: the
// decoder to invoke, its argument template and whether it produces a single
// file or a directory. New formats are added to the table, not to the code.
package strategy

import (
	"sort"
	"strings"
)

// Kind describes what a container format bundles.
type Kind int

const (
	// Opaque formats are recognized but intentionally not expanded.
	Opaque Kind = iota
	// Compression wraps a single stream.
	Compression
	// Archive bundles several files without compression.
	Archive
	// ArchiveCompression bundles and compresses several files.
	ArchiveCompression
)

func (k Kind) String() string {
	switch k {
	case Compression:
		return "compression"
	case Archive:
		return "archive"
	case ArchiveCompression:
		return "archive+compression"
	default:
		return "opaque"
	}
}

// Output describes the shape of a decoder's result.
type Output int

const (
	// None is used by opaque formats.
	None Output = iota
	// File decoders write exactly one file.
	File
	// Directory decoders fill a directory.
	Directory
)

// Placeholders in argument templates.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// Decoder names, as used in the configuration's bin section.
const (
	Tar    = "tar"
	Zstd   = "zstd"
	Unzip  = "unzip"
	SevenZ = "sevenz"
	Gzip   = "gzip"
)

// Strategy is one row of the extraction table.
type Strategy struct {
	Name    string
	MIME    []string
	Kind    Kind
	Output  Output
	Decoder string
	Args    []string
	// Stdout marks decoders that write the decoded stream to stdout; the
	// executor redirects it into the output file.
	Stdout bool
}

// Expands reports whether the strategy produces extraction output.
func (s *Strategy) Expands() bool {
	return s.Kind != Opaque
}

// Command substitutes the placeholders in the argument template.
func (s *Strategy) Command(input, output string) []string {
	args := make([]string, len(s.Args))
	for i, arg := range s.Args {
		arg = strings.ReplaceAll(arg, InputPlaceholder, input)
		args[i] = strings.ReplaceAll(arg, OutputPlaceholder, output)
	}
	return args
}

// Strategies returns the built in extraction table.
func Strategies() []*Strategy {
	return []*Strategy{
		{Name: "zstd", MIME: []string{"application/zstd"}, Kind: Compression, Output: File,
			Decoder: Zstd, Args: []string{"-d", "-f", "-o", OutputPlaceholder, InputPlaceholder}},
		{Name: "gzip", MIME: []string{"application/gzip"}, Kind: Compression, Output: File,
			Decoder: Gzip, Args: []string{"-d", "-c", InputPlaceholder}, Stdout: true},
		{Name: "tgz", MIME: []string{"application/x-gtar"}, Kind: ArchiveCompression, Output: Directory,
			Decoder: Tar, Args: []string{"xzvf", InputPlaceholder, "-C", OutputPlaceholder}},
		{Name: "tar", MIME: []string{"application/x-tar"}, Kind: Archive, Output: Directory,
			Decoder: Tar, Args: []string{"xvf", InputPlaceholder, "-C", OutputPlaceholder}},
		{Name: "7z", MIME: []string{"application/x-7z-compressed"}, Kind: ArchiveCompression, Output: Directory,
			Decoder: SevenZ, Args: []string{"-y", "-o" + OutputPlaceholder, "x", InputPlaceholder}},
		{Name: "rar", MIME: []string{"application/x-rar-compressed"}, Kind: ArchiveCompression, Output: Directory,
			Decoder: Tar, Args: []string{"xvf", InputPlaceholder, "-C", OutputPlaceholder}},
		{Name: "zip", MIME: []string{"application/zip"}, Kind: ArchiveCompression, Output: Directory,
			Decoder: Unzip, Args: []string{"-o", "-d", OutputPlaceholder, InputPlaceholder}},
		{Name: "bz2", MIME: []string{"application/x-bzip2"}, Kind: ArchiveCompression, Output: Directory,
			Decoder: Tar, Args: []string{"xjvf", InputPlaceholder, "-C", OutputPlaceholder}},
		{Name: "opaque", MIME: []string{"application/x-xz", "application/java-archive"}, Kind: Opaque, Output: None},
	}
}

// Table dispatches MIME types to strategies.
type Table struct {
	byMIME   map[string]*Strategy
	decoders map[string]string
}

// NewTable indexes strategies by MIME type. decoders maps decoder names to
// executable paths; decoders missing from the map are looked up by name in
// PATH at execution time.
func NewTable(strategies []*Strategy, decoders map[string]string) *Table {
	t := &Table{byMIME: map[string]*Strategy{}, decoders: map[string]string{}}
	for _, s := range strategies {
		for _, mime := range s.MIME {
			t.byMIME[mime] = s
		}
	}
	for name, path := range decoders {
		t.decoders[name] = path
	}
	return t
}

// Dispatch returns the strategy that expands mime. Unknown and opaque types
// report false.
func (t *Table) Dispatch(mime string) (*Strategy, bool) {
	s, ok := t.byMIME[mime]
	if !ok || !s.Expands() {
		return nil, false
	}
	return s, true
}

// Recognized reports whether mime is listed in the table, expandable or not.
func (t *Table) Recognized(mime string) bool {
	_, ok := t.byMIME[mime]
	return ok
}

// Decoder returns the executable configured for a decoder name.
func (t *Table) Decoder(name string) string {
	if path, ok := t.decoders[name]; ok && path != "" {
		return path
	}
	return name
}

// MIMETypes lists all table entries, sorted.
func (t *Table) MIMETypes() []string {
	var types []string
	for mime := range t.byMIME {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}
