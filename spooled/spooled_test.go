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

package spooled

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporaryFile(t *testing.T) {
	tests := []struct {
		name         string
		maxSize      int64
		writes       []string
		head         int64
		wantHead     string
		wantSize     int64
		wantRollover bool
	}{
		{"in memory", 16, []string{"foo", "bar"}, 10, "foobar", 6, false},
		{"exact limit", 6, []string{"foo", "bar"}, 3, "foo", 6, false},
		{"rollover", 4, []string{"foo", "bar", "baz"}, 7, "foobarb", 9, true},
		{"empty", 4, nil, 10, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.maxSize, t.TempDir())
			defer f.Close()

			for _, w := range tt.writes {
				n, err := f.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}

			head, err := f.Head(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHead, string(head))
			assert.Equal(t, tt.wantSize, f.Size())
			assert.Equal(t, tt.wantRollover, f.RolledOver())
		})
	}
}

func TestTemporaryFileCloseRemoves(t *testing.T) {
	dir := t.TempDir()
	f := New(1, dir)
	_, err := f.Write(bytes.Repeat([]byte("x"), 1024))
	require.NoError(t, err)
	require.True(t, f.RolledOver())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, f.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
