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

package auditstore

import (
	"github.com/google/uuid"

	"github.com/forensicanalysis/loadevidence/audit"
)

// JSONElement is a single entry in the database.
type JSONElement []byte

// Element is a generic element, e.g. for tests or ad hoc inserts.
type Element map[string]interface{}

// File is the audit element of one evidence item, modeled after the
// STIX 2.1 File Object.
type File struct {
	ID         string
	Type       string
	RunID      string
	Name       string
	Extension  string
	Size       int64
	Hashes     map[string]interface{}
	MimeType   string
	ExportPath string
	Origin     map[string]interface{}
	Status     string
	Strategy   string
	Depth      int
	ExitCode   *int
	Error      *bool
	Stdout     string
	Stderr     string
	Duration   float64
}

// NewFile creates a file element with a fresh id.
func NewFile() *File {
	return &File{ID: "file--" + uuid.New().String(), Type: "file"}
}

func fileFromRecord(runID string, r *audit.Record) *File {
	f := NewFile()
	f.RunID = runID
	f.Name = r.FileName
	f.Extension = r.Extension
	f.Size = r.Size
	f.MimeType = r.MIME
	f.ExportPath = r.OutputPath
	f.Origin = map[string]interface{}{"path": r.InputPath, "top_input": r.TopInput}
	f.Status = r.Status
	f.Strategy = r.Strategy
	f.Depth = r.Depth
	f.ExitCode = r.ExitCode
	f.Error = r.Error
	f.Stdout = r.Stdout
	f.Stderr = r.Stderr
	f.Duration = r.Duration.Seconds()
	if r.Hash != "" {
		f.Hashes = map[string]interface{}{audit.HashName(r.HashAlgorithm): r.Hash}
	}
	return f
}
