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

package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeFilePath(t *testing.T) {
	x32 := strings.Repeat("x", 32)
	longFileName := strings.Repeat("long_file_name_", 8)

	pathTests := []struct {
		name              string
		srcPath           string
		normalizedSrcPath string
	}{
		{"Windows path", `/C/Users/user/NTUSER.DAT`, `C_Users_user_NTUSER.DAT`},
		{"Linux path", `/home/username/.bash_history`, `home_username_.bash_history`},
		{"Relative member", `evidence/a/b.txt`, `evidence_a_b.txt`},
		{
			"Long path",
			`/C/Users/user/AppData/Local/Google/Chrome/User Data/Default/Extensions/` + x32 + `/1.11_1/_metadata/folder_` + x32 + `/` + longFileName + `.json`,
			`AppD_Loca_Goog_Chro_User_Defa_Exte_xxxx_1.11__met_fold_long.json`,
		},
	}

	for _, pt := range pathTests {
		t.Run(pt.name, func(t *testing.T) {
			assert.Equal(t, pt.normalizedSrcPath, normalizeFilePath(pt.srcPath))
		})
	}
}

func TestDestinationPath(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"folder", "evidence/a/b.txt"},
		{"basename", "b.txt"},
		{"compact", "evidence_a_b.txt"},
		{"", "evidence/a/b.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.want, destinationPath("evidence/a/b.txt", tt.mode))
		})
	}
}

func Test_safeJoin(t *testing.T) {
	dir := filepath.Join("target", "dir")
	tests := []struct {
		name    string
		member  string
		want    string
		wantErr bool
	}{
		{"nested", "evidence/a/b.txt", filepath.Join(dir, "evidence", "a", "b.txt"), false},
		{"inner dots", "evidence/../b.txt", filepath.Join(dir, "b.txt"), false},
		{"parent", "../b.txt", "", true},
		{"escaping dots", "evidence/../../b.txt", "", true},
		{"only dots", "..", "", true},
		{"trimmed root", destinationPath("/../../etc/passwd", "folder"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safeJoin(dir, tt.member)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsafeMember))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_last(t *testing.T) {
	type args struct {
		s string
		n int
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"long", args{"abcdef", 2}, "ef"},
		{"short", args{"abc", 4}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, last(tt.args.s, tt.args.n))
		})
	}
}

func Test_splitExt(t *testing.T) {
	name, ext := splitExt("report.json")
	assert.Equal(t, "report", name)
	assert.Equal(t, ".json", ext)

	name, ext = splitExt("README")
	assert.Equal(t, "README", name)
	assert.Equal(t, "", ext)
}
