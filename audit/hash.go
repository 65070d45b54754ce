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
	"crypto/md5"  // #nosec
	"crypto/sha1" // #nosec
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownHash is returned for unsupported hash algorithm names.
var ErrUnknownHash = errors.New("unknown hash algorithm")

// Hash algorithm names as used in the configuration.
const (
	MD5    = "md5"
	SHA1   = "sha1"
	SHA256 = "sha256"
)

var stixNames = map[string]string{ // nolint:gochecknoglobals
	MD5:    "MD5",
	SHA1:   "SHA-1",
	SHA256: "SHA-256",
}

// NewHash returns a hash for an algorithm name, case insensitive.
func NewHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case MD5:
		return md5.New(), nil // #nosec
	case SHA1:
		return sha1.New(), nil // #nosec
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, errors.Wrap(ErrUnknownHash, algorithm)
	}
}

// HashName returns the STIX hash name of an algorithm, e.g. SHA-256.
func HashName(algorithm string) string {
	if name, ok := stixNames[strings.ToLower(algorithm)]; ok {
		return name
	}
	return strings.ToUpper(algorithm)
}

// HashAlgorithm maps a STIX hash name back to the algorithm name.
func HashAlgorithm(name string) (string, bool) {
	for algorithm, stix := range stixNames {
		if stix == name {
			return algorithm, true
		}
	}
	return "", false
}

// Sum hashes r with algorithm and returns the hex digest.
func Sum(algorithm string, r io.Reader) (string, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hash")
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
