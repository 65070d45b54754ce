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
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	table := NewTable(Strategies(), nil)

	tests := []struct {
		mime       string
		wantOK     bool
		wantKind   Kind
		wantOutput Output
		wantBin    string
	}{
		{"application/zstd", true, Compression, File, Zstd},
		{"application/gzip", true, Compression, File, Gzip},
		{"application/x-gtar", true, ArchiveCompression, Directory, Tar},
		{"application/x-tar", true, Archive, Directory, Tar},
		{"application/x-7z-compressed", true, ArchiveCompression, Directory, SevenZ},
		{"application/x-rar-compressed", true, ArchiveCompression, Directory, Tar},
		{"application/zip", true, ArchiveCompression, Directory, Unzip},
		{"application/x-bzip2", true, ArchiveCompression, Directory, Tar},
		{"application/x-xz", false, 0, 0, ""},
		{"application/java-archive", false, 0, 0, ""},
		{"text/plain", false, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			s, ok := table.Dispatch(tt.mime)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, s)
				return
			}
			assert.Equal(t, tt.wantKind, s.Kind)
			assert.Equal(t, tt.wantOutput, s.Output)
			assert.Equal(t, tt.wantBin, s.Decoder)
		})
	}
}

func TestRecognized(t *testing.T) {
	table := NewTable(Strategies(), nil)
	assert.True(t, table.Recognized("application/x-xz"))
	assert.True(t, table.Recognized("application/java-archive"))
	assert.True(t, table.Recognized("application/zip"))
	assert.False(t, table.Recognized("image/png"))
	assert.Len(t, table.MIMETypes(), 10)
}

func TestCommand(t *testing.T) {
	table := NewTable(Strategies(), nil)

	tests := []struct {
		mime string
		want []string
	}{
		{"application/zstd", []string{"-d", "-f", "-o", "/out/a", "/in/a.zst"}},
		{"application/gzip", []string{"-d", "-c", "/in/a.zst"}},
		{"application/x-gtar", []string{"xzvf", "/in/a.zst", "-C", "/out/a"}},
		{"application/x-tar", []string{"xvf", "/in/a.zst", "-C", "/out/a"}},
		{"application/x-7z-compressed", []string{"-y", "-o/out/a", "x", "/in/a.zst"}},
		{"application/zip", []string{"-o", "-d", "/out/a", "/in/a.zst"}},
		{"application/x-bzip2", []string{"xjvf", "/in/a.zst", "-C", "/out/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			s, ok := table.Dispatch(tt.mime)
			require.True(t, ok)
			assert.Equal(t, tt.want, s.Command("/in/a.zst", "/out/a"))
		})
	}
}

func TestDecoder(t *testing.T) {
	table := NewTable(Strategies(), map[string]string{Tar: "/opt/bin/tar", Zstd: ""})
	assert.Equal(t, "/opt/bin/tar", table.Decoder(Tar))
	assert.Equal(t, Zstd, table.Decoder(Zstd))
	assert.Equal(t, Unzip, table.Decoder(Unzip))
}

func shell(t *testing.T) string {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not installed")
	}
	return sh
}

func TestExecutorRun(t *testing.T) {
	sh := shell(t)
	table := NewTable(nil, map[string]string{"sh": sh})

	tests := []struct {
		name       string
		script     string
		wantCode   int
		wantStdout string
		wantStderr string
		wantErr    bool
	}{
		{"success", "echo listing; exit 0", 0, "listing\n", "", false},
		{"failure", "echo partial; echo broken archive >&2; exit 3", 3, "partial\n", "broken archive\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Strategy{Name: "test", Kind: Archive, Output: Directory, Decoder: "sh", Args: []string{"-c", tt.script}}
			res, err := NewExecutor(table).Run(context.Background(), s, "in", "out")
			require.NotNil(t, res)
			assert.Equal(t, tt.wantErr, err != nil)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrDecoder))
			}
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantStdout, res.Stdout)
			assert.Equal(t, tt.wantStderr, res.Stderr)
			assert.Equal(t, tt.wantCode == 0, res.Success())
		})
	}
}

func TestExecutorMissingDecoder(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-unzip")
	table := NewTable(Strategies(), map[string]string{Unzip: missing})
	s, ok := table.Dispatch("application/zip")
	require.True(t, ok)

	res, err := NewExecutor(table).Run(context.Background(), s, "/in/a.zip", "/out/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecoder))
	assert.Equal(t, StartFailed, res.ExitCode)
	assert.NotEmpty(t, res.Stderr)
	assert.False(t, res.Success())
}

func TestExecutorStdoutRedirect(t *testing.T) {
	sh := shell(t)
	table := NewTable(nil, map[string]string{"sh": sh})
	out := filepath.Join(t.TempDir(), "decoded")

	s := &Strategy{Name: "cat", Kind: Compression, Output: File, Decoder: "sh", Args: []string{"-c", "printf decoded"}, Stdout: true}
	res, err := NewExecutor(table).Run(context.Background(), s, "in", out)
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "decoded", string(b))
}

func TestExecutorStdoutRedirectFailure(t *testing.T) {
	sh := shell(t)

	tests := []struct {
		name    string
		decoder string
		script  string
	}{
		{"missing decoder", filepath.Join(t.TempDir(), "no-such-gzip"), ""},
		{"decoder fails", sh, "printf partial; exit 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable(nil, map[string]string{"sh": tt.decoder})
			out := filepath.Join(t.TempDir(), "decoded")

			s := &Strategy{Name: "cat", Kind: Compression, Output: File, Decoder: "sh", Args: []string{"-c", tt.script}, Stdout: true}
			_, err := NewExecutor(table).Run(context.Background(), s, "in", out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecoder))
			assert.NoFileExists(t, out)
		})
	}
}

func TestExecutorTruncatesOutput(t *testing.T) {
	sh := shell(t)
	table := NewTable(nil, map[string]string{"sh": sh})

	s := &Strategy{Name: "verbose", Kind: Archive, Output: Directory, Decoder: "sh", Args: []string{"-c", "printf 0123456789"}}
	res, err := NewExecutor(table, WithMaxOutput(4), WithSpoolDir(t.TempDir())).Run(context.Background(), s, "in", "out")
	require.NoError(t, err)
	assert.Equal(t, "0123"+truncated, res.Stdout)
}

func TestExecutorTimeout(t *testing.T) {
	sh := shell(t)
	table := NewTable(nil, map[string]string{"sh": sh})

	s := &Strategy{Name: "slow", Kind: Archive, Output: Directory, Decoder: "sh", Args: []string{"-c", "sleep 5"}}
	res, err := NewExecutor(table, WithTimeout(100*time.Millisecond)).Run(context.Background(), s, "in", "out")
	require.Error(t, err)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.True(t, strings.Contains(res.Stderr, "timed out"))
}
