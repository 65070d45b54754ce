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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		base     string
		wantStem string
		wantExt  string
	}{
		{"archive.zip", "archive", ".zip"},
		{"a.tar.gz", "a", ".tar.gz"},
		{"A.TAR.GZ", "A", ".TAR.GZ"},
		{"disk.image.e01", "disk.image", ".e01"},
		{"report.final.txt", "report.final", ".txt"},
		{"README", "README", ""},
		{".bashrc", ".bashrc", ""},
		{".profile.bak", ".profile", ".bak"},
		{".tar.gz", ".tar", ".gz"},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			stem, ext := SplitName(tt.base)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestProvenanceResolve(t *testing.T) {
	p := provenance{physical: filepath.FromSlash("/out/a"), logical: filepath.FromSlash("/in/a.zip")}
	tests := []struct {
		path string
		want string
	}{
		{"/out/a", "/in/a.zip"},
		{"/out/a/b/c.txt", "/in/a.zip/b/c.txt"},
		{"/out/ab/c.txt", "/out/ab/c.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), p.resolve(filepath.FromSlash(tt.path)))
		})
	}
	assert.Equal(t, "/x", provenance{}.resolve("/x"))
}
