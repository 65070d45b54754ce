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

// Package classify determines the MIME type of evidence files by content.
//
// File extensions are never consulted: a renamed zip is still a zip. The
// returned types are lowercase, without parameters, and normalized to the
// canonical names used by the extraction strategy table.
package classify

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrClassification is returned when a file cannot be read or classified.
var ErrClassification = errors.New("classification failed")

const (
	gzipMIME = "application/gzip"
	gtarMIME = "application/x-gtar"

	// tar headers carry "ustar" at this offset of the first block
	tarMagicOffset = 257
	tarBlockSize   = 512
)

var aliases = map[string]string{ // nolint:gochecknoglobals
	"application/x-gzip":           gzipMIME,
	"application/x-rar":            "application/x-rar-compressed",
	"application/vnd.rar":          "application/x-rar-compressed",
	"application/jar":              "application/java-archive",
	"application/x-java-archive":   "application/java-archive",
	"application/x-zip-compressed": "application/zip",
	"application/x-7z":             "application/x-7z-compressed",
	"application/x-bzip":           "application/x-bzip2",
	"application/x-zstd":           "application/zstd",
	"application/x-compressed-tar": gtarMIME,
}

// Classifier maps a file to its MIME type.
type Classifier interface {
	Classify(path string) (string, error)
}

// Normalize lowercases a MIME type, strips parameters and resolves aliases.
func Normalize(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if canonical, ok := aliases[mime]; ok {
		return canonical
	}
	return mime
}

// Mimetype sniffs file content with the mimetype library.
type Mimetype struct {
	fs afero.Fs
}

// NewMimetype creates a content sniffing classifier reading from fs.
func NewMimetype(fs afero.Fs) *Mimetype {
	return &Mimetype{fs: fs}
}

// Classify implements Classifier.
func (m *Mimetype) Classify(path string) (string, error) {
	f, err := m.fs.Open(path)
	if err != nil {
		return "", errors.Wrap(ErrClassification, err.Error())
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", errors.Wrap(ErrClassification, err.Error())
	}
	mime := Normalize(detected.String())

	if mime == gzipMIME {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrap(ErrClassification, err.Error())
		}
		if gzippedTar(f) {
			return gtarMIME, nil
		}
	}
	return mime, nil
}

// gzippedTar peeks at the first decompressed block of a gzip stream.
func gzippedTar(r io.Reader) bool {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return false
	}
	defer zr.Close()

	block := make([]byte, tarBlockSize)
	n, _ := io.ReadFull(zr, block)
	if n < tarMagicOffset+5 {
		return false
	}
	return bytes.Equal(block[tarMagicOffset:tarMagicOffset+5], []byte("ustar"))
}

// Command asks libmagic through the file(1) utility.
type Command struct {
	Binary string
}

// NewCommand creates a classifier that runs binary --mime-type -b.
func NewCommand(binary string) *Command {
	return &Command{Binary: binary}
}

// Classify implements Classifier.
func (c *Command) Classify(path string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(context.Background(), c.Binary, "--mime-type", "-b", path) // #nosec
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrap(ErrClassification, strings.TrimSpace(err.Error()+" "+stderr.String()))
	}
	mime := Normalize(string(out))
	if strings.HasPrefix(mime, "cannot open") || mime == "" {
		return "", errors.Wrap(ErrClassification, mime)
	}
	return mime, nil
}
