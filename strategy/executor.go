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

package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/forensicanalysis/loadevidence/spooled"
)

// StartFailed is the exit code recorded when a decoder could not be started
// at all, e.g. because the executable is missing.
const StartFailed = -1

const (
	defaultMaxOutput = 64 * 1024
	truncated        = "\n[truncated]"
	// grace period for orphaned children holding the output pipes
	waitDelay = 2 * time.Second
)

// ErrDecoder is returned when a decoder exits non-zero or cannot be run.
var ErrDecoder = errors.New("decoder failed")

// Result is the captured outcome of one decoder invocation.
type Result struct {
	Decoder  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the decoder exited with code 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Executor runs the decoder of a strategy.
type Executor struct {
	table     *Table
	timeout   time.Duration
	maxOutput int64
	spoolDir  string
	logger    *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds every decoder invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithMaxOutput limits the captured stdout and stderr per invocation.
func WithMaxOutput(n int64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

// WithSpoolDir sets where large decoder output is spooled.
func WithSpoolDir(dir string) Option {
	return func(e *Executor) { e.spoolDir = dir }
}

// WithLogger sets the logger for command tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor resolving decoders through table.
func NewExecutor(table *Table, opts ...Option) *Executor {
	e := &Executor{table: table, maxOutput: defaultMaxOutput, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run invokes the decoder of s on input, writing to output. The returned
// Result is never nil; the error wraps ErrDecoder unless the exit code is 0.
func (e *Executor) Run(ctx context.Context, s *Strategy, input, output string) (*Result, error) {
	res := &Result{Decoder: e.table.Decoder(s.Decoder), Args: s.Command(input, output)}
	e.logger.Debug("executing system command", "command", quoteCommand(res.Decoder, res.Args))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	stdout := spooled.New(e.maxOutput, e.spoolDir)
	defer stdout.Close()
	stderr := spooled.New(e.maxOutput, e.spoolDir)
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, res.Decoder, res.Args...) // #nosec
	cmd.Stderr = stderr
	cmd.Stdout = stdout
	cmd.WaitDelay = waitDelay
	var redirect *os.File
	if s.Stdout {
		f, err := os.Create(output)
		if err != nil {
			res.ExitCode = StartFailed
			res.Stderr = err.Error()
			return res, errors.Wrap(ErrDecoder, err.Error())
		}
		defer f.Close()
		cmd.Stdout = f
		redirect = f
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)

	res.Stdout = e.capture(stdout)
	res.Stderr = e.capture(stderr)

	if err == nil {
		return res, nil
	}
	if redirect != nil {
		redirect.Close()
		if rerr := os.Remove(output); rerr != nil {
			e.logger.Warn("could not remove decoder output", "path", output, "error", rerr)
		}
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == 0 {
			res.ExitCode = StartFailed
		}
	default:
		res.ExitCode = StartFailed
		res.Stderr = strings.TrimSpace(res.Stderr + "\n" + err.Error())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Stderr = strings.TrimSpace(res.Stderr + "\n" + fmt.Sprintf("decoder timed out after %s", e.timeout))
	}
	return res, errors.Wrapf(ErrDecoder, "%s exited with code %d", s.Name, res.ExitCode)
}

func (e *Executor) capture(f *spooled.TemporaryFile) string {
	head, err := f.Head(e.maxOutput)
	if err != nil {
		return fmt.Sprintf("could not read decoder output: %s", err)
	}
	if f.Size() > e.maxOutput {
		return string(head) + truncated
	}
	return string(head)
}

func quoteCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, part := range append([]string{name}, args...) {
		if strings.Contains(part, " ") {
			part = `"` + part + `"`
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
