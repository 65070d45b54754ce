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

package audit

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	colInputFullPath = "Input Full Path"
	colInputPath     = "Input Path"
)

// CSV writes records as a comma separated summary file.
type CSV struct {
	out       io.Closer
	writer    *csv.Writer
	inputPath bool
}

// Header returns the summary header. The hash column is named after the
// hash algorithm.
func Header(hashAlgorithm string, inputPath bool) []string {
	header := []string{colInputFullPath}
	if inputPath {
		header = append(header, colInputPath)
	}
	return append(header,
		"Input File Name", "Input File Extension", "Output Full Path", "Mime Type",
		"Size", strings.ToUpper(hashAlgorithm), "Code", "Error", "Stdout", "Stderr",
	)
}

// NewCSV writes the header to w and returns a recorder appending rows to it.
func NewCSV(w io.WriteCloser, hashAlgorithm string, inputPath bool) (*CSV, error) {
	c := &CSV{out: w, writer: csv.NewWriter(w), inputPath: inputPath}
	if err := c.write(Header(hashAlgorithm, inputPath)); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCSV creates the summary file at name on fs.
func CreateCSV(fs afero.Fs, name, hashAlgorithm string, inputPath bool) (*CSV, error) {
	f, err := fs.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create summary")
	}
	c, err := NewCSV(f, hashAlgorithm, inputPath)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Record implements Recorder.
func (c *CSV) Record(_ context.Context, r *Record) error {
	row := []string{r.InputPath}
	if c.inputPath {
		row = append(row, r.TopInput)
	}

	var code, flag, stdout, stderr string
	if r.ExitCode != nil {
		code = strconv.Itoa(*r.ExitCode)
	}
	if r.Error != nil {
		flag = "False"
		if *r.Error {
			flag = "True"
			stdout, stderr = r.Stdout, r.Stderr
		}
	}

	row = append(row, r.FileName, r.Extension, r.OutputPath, r.MIME,
		strconv.FormatInt(r.Size, 10), r.Hash, code, flag, stdout, stderr)
	return c.write(row)
}

func (c *CSV) write(row []string) error {
	if err := c.writer.Write(row); err != nil {
		return errors.Wrap(err, "write summary row")
	}
	c.writer.Flush()
	return errors.Wrap(c.writer.Error(), "flush summary")
}

// Close flushes and closes the underlying file.
func (c *CSV) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.out.Close()
		return errors.Wrap(err, "flush summary")
	}
	return c.out.Close()
}
