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

// Package spooled provides a write buffer that keeps small outputs in memory
// and rolls larger ones over into a temporary file.
package spooled

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// TemporaryFile buffers writes in memory up to maxSize bytes.
type TemporaryFile struct {
	size       int64
	maxSize    int64
	dir        string
	buffer     *bytes.Buffer
	tempFile   *os.File
	rolledOver bool
}

// New creates a TemporaryFile that rolls over into dir (os.TempDir() when
// empty) after maxSize bytes.
func New(maxSize int64, dir string) *TemporaryFile {
	return &TemporaryFile{buffer: &bytes.Buffer{}, maxSize: maxSize, dir: dir}
}

func (t *TemporaryFile) Write(p []byte) (n int, err error) {
	if t.rolledOver {
		n, err = t.tempFile.Write(p)
		t.size += int64(n)
		return n, err
	}

	if t.size+int64(len(p)) > t.maxSize {
		if err := t.Rollover(); err != nil {
			return 0, err
		}
		n, err = t.tempFile.Write(p)
		t.size += int64(n)
		return n, err
	}

	n, err = t.buffer.Write(p)
	t.size += int64(n)
	return n, err
}

// Rollover moves the buffered content into a temporary file.
func (t *TemporaryFile) Rollover() (err error) {
	if t.rolledOver {
		return nil
	}
	t.tempFile, err = os.CreateTemp(t.dir, "spool")
	if err != nil {
		return errors.Wrap(err, "could not create spool file")
	}
	t.rolledOver = true
	if _, err = io.Copy(t.tempFile, t.buffer); err != nil {
		return errors.Wrap(err, "could not fill spool file")
	}
	t.buffer.Reset()
	return nil
}

// RolledOver reports whether the content lives in a temporary file.
func (t *TemporaryFile) RolledOver() bool {
	return t.rolledOver
}

// Size returns the number of bytes written so far.
func (t *TemporaryFile) Size() int64 {
	return t.size
}

// Head returns at most n bytes from the start of the content.
func (t *TemporaryFile) Head(n int64) ([]byte, error) {
	if n > t.size {
		n = t.size
	}
	if !t.rolledOver {
		return append([]byte(nil), t.buffer.Bytes()[:n]...), nil
	}
	b := make([]byte, n)
	read, err := t.tempFile.ReadAt(b, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return b[:read], nil
}

// Close releases the buffer and removes the temporary file.
func (t *TemporaryFile) Close() error {
	if t.rolledOver {
		name := t.tempFile.Name()
		if err := t.tempFile.Close(); err != nil {
			return err
		}
		t.rolledOver = false
		return os.Remove(name)
	}
	t.buffer.Reset()
	return nil
}
