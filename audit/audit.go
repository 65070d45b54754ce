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

// Package audit records one row per visited evidence item.
package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Record is the audit trail entry of one evidence item.
type Record struct {
	// InputPath is the logical path of the item, rooted at the top level input.
	InputPath string
	// TopInput is the top level input the item was found under.
	TopInput string

	FileName   string
	Extension  string
	OutputPath string
	MIME       string
	Size       int64

	Hash string
	// HashAlgorithm names the algorithm of Hash, e.g. md5.
	HashAlgorithm string

	// ExitCode is nil when no decoder ran.
	ExitCode *int
	// Error is nil when no extraction applied to the item.
	Error  *bool
	Stdout string
	Stderr string

	Status   string
	Strategy string
	Depth    int
	Duration time.Duration
}

// Failed reports whether the record is flagged as an error.
func (r *Record) Failed() bool {
	return r.Error != nil && *r.Error
}

// Recorder persists audit records.
type Recorder interface {
	Record(ctx context.Context, r *Record) error
	Close() error
}

// Multi fans out every record to several recorders, in order.
type Multi []Recorder

// NewMulti combines recorders; nil recorders are ignored.
func NewMulti(recorders ...Recorder) Multi {
	var m Multi
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

// Record implements Recorder. It stops at the first failing recorder.
func (m Multi) Record(ctx context.Context, r *Record) error {
	for _, recorder := range m {
		if err := recorder.Record(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all recorders and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, recorder := range m {
		if err := recorder.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "close recorder")
		}
	}
	return first
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}
