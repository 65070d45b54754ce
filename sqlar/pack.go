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

package sqlar

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Pack stores every directory and regular file below root on fs into a new
// archive. Member names are relative to root. It returns the number of
// files stored.
func Pack(ctx context.Context, fs afero.Fs, root, archive string) (int, error) {
	a, err := Create(archive)
	if err != nil {
		return 0, err
	}

	absArchive, _ := filepath.Abs(archive)
	files := 0
	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if abs, _ := filepath.Abs(p); abs == absArchive {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		switch {
		case info.IsDir():
			return a.AddDir(rel, info.Mode(), info.ModTime())
		case info.Mode().IsRegular():
			f, err := fs.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			files++
			return a.Add(rel, info.Mode(), info.ModTime(), f)
		default:
			return nil
		}
	})
	if err != nil {
		a.Close()
		return files, errors.Wrap(err, "pack")
	}
	return files, a.Close()
}
