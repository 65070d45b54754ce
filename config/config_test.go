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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.Extract.MaxDepth)
	assert.Equal(t, "md5", cfg.Extract.HashAlgorithm)
	assert.Equal(t, "/usr/bin/7z", cfg.Bin.Decoders()["sevenz"])
	assert.Equal(t, filepath.Join("logs", "20261018.log"), cfg.LogFile(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)))
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "forensic.yml", `
general:
  log_directory: /var/log/forensic
bin:
  tar: /opt/bin/tar
  unzip: /opt/bin/unzip
extract:
  max_depth: 4
  timeout: 30s
  deny_mime: [application/x-7z-compressed]
summary:
  input_path: true
`)
	env := writeFile(t, ".env", "LOADEVIDENCE_BIN_UNZIP=/env/unzip\nLOADEVIDENCE_EXTRACT_UNIQUE=true\n")
	t.Cleanup(func() { os.Unsetenv("LOADEVIDENCE_EXTRACT_UNIQUE") })
	t.Setenv("LOADEVIDENCE_EXTRACT_MAX_DEPTH", "8")
	t.Setenv("LOADEVIDENCE_EXTRACT_ALLOW_MIME", "application/zip, application/gzip")
	t.Setenv("LOADEVIDENCE_BIN_UNZIP", "/shell/unzip")

	cfg, err := Load(path, env)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "/var/log/forensic", cfg.General.LogDirectory)
	assert.Equal(t, "/opt/bin/tar", cfg.Bin.Tar)
	assert.Equal(t, "/usr/bin/zstd", cfg.Bin.Zstd, "defaults survive")
	assert.Equal(t, "/shell/unzip", cfg.Bin.Unzip, "environment beats .env")
	assert.True(t, cfg.Extract.Unique, ".env beats file")
	assert.Equal(t, 8, cfg.Extract.MaxDepth, "environment beats file")
	assert.Equal(t, 30*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, []string{"application/zip", "application/gzip"}, cfg.Extract.AllowMIME)
	assert.Equal(t, []string{"application/x-7z-compressed"}, cfg.Extract.DenyMIME)
	assert.True(t, cfg.Summary.InputPath)
}

func TestLoadZeroValues(t *testing.T) {
	path := writeFile(t, "forensic.yml", `
extract:
  max_depth: 0
  timeout: 0s
  deny_mime: []
`)
	defaults := Default()

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Extract.MaxDepth)
	assert.Equal(t, time.Duration(0), cfg.Extract.Timeout)
	assert.Empty(t, cfg.Extract.DenyMIME)
	assert.Equal(t, defaults.Extract.HashAlgorithm, cfg.Extract.HashAlgorithm, "unset keys keep defaults")
	assert.Equal(t, defaults.Extract.MaxOutput, cfg.Extract.MaxOutput)
	assert.Equal(t, defaults.Bin, cfg.Bin)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"unknown key", "extract:\n  max_deepth: 3\n", nil},
		{"unknown hash", "extract:\n  hash_algorithm: crc32\n", nil},
		{"unknown classifier", "classifier: magic\n", nil},
		{"negative depth", "extract:\n  max_depth: -1\n", nil},
		{"bad env value", "", map[string]string{"LOADEVIDENCE_EXTRACT_MAX_DEPTH": "deep"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "forensic.yml", tt.content), "")
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), "")
	assert.Error(t, err)
}

func TestSearchPath(t *testing.T) {
	paths := SearchPath()
	assert.Contains(t, paths, "forensic.yml")
	assert.Equal(t, "/opt/forensic/forensic.yml", paths[len(paths)-1])
}
