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
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/loadevidence/audit"
)

const (
	notApplicable = "n/a"
	statusCopied  = "copied"
)

// Validate checks every element against its schema and the files it
// references on fs: extracted outputs must exist, copied leaves must have
// the recorded size and hashes.
func (store *Store) Validate(ctx context.Context, fs afero.Fs) (flaws []string, err error) {
	flaws = []string{}

	elements, err := store.All()
	if err != nil {
		return nil, err
	}
	for _, element := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elementFlaws, err := validateElement(ctx, fs, element)
		if err != nil {
			return nil, err
		}
		flaws = append(flaws, elementFlaws...)
	}
	return flaws, nil
}

func validateElement(ctx context.Context, fs afero.Fs, element JSONElement) (flaws []string, err error) { // nolint:gocyclo
	flaws, err = validateSchema(ctx, element)
	if err != nil {
		return nil, err
	}

	exportPath := gjson.GetBytes(element, "export_path").String()
	if exportPath == "" || exportPath == notApplicable {
		return flaws, nil
	}
	if strings.Contains(exportPath, "..") {
		return append(flaws, fmt.Sprintf("'..' in %s", exportPath)), nil
	}

	info, err := fs.Stat(exportPath)
	if err != nil {
		return append(flaws, fmt.Sprintf("missing file %s", exportPath)), nil
	}
	if info.IsDir() || gjson.GetBytes(element, "status").String() != statusCopied {
		return flaws, nil
	}

	if size := gjson.GetBytes(element, "size"); size.Exists() && size.Int() != info.Size() {
		flaws = append(flaws, fmt.Sprintf("wrong size for %s (is %d, expected %d)", exportPath, info.Size(), size.Int()))
	}

	var hashFlaws []string
	gjson.GetBytes(element, "hashes").ForEach(func(name, value gjson.Result) bool {
		algorithm, ok := audit.HashAlgorithm(name.String())
		if !ok {
			hashFlaws = append(hashFlaws, fmt.Sprintf("unsupported hash %s for %s", name, exportPath))
			return true
		}

		f, ferr := fs.Open(exportPath)
		if ferr != nil {
			err = ferr
			return false
		}
		sum, ferr := audit.Sum(algorithm, f)
		f.Close() // nolint:errcheck
		if ferr != nil {
			err = ferr
			return false
		}
		if sum != value.String() {
			hashFlaws = append(hashFlaws, fmt.Sprintf("hashvalue mismatch %s for %s", name, exportPath))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return append(flaws, hashFlaws...), nil
}
