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
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/stoewer/go-strcase"
)

// hash names are kept verbatim when keys are snake cased
var hashNames = map[string]bool{ // nolint:gochecknoglobals
	"MD5":     true,
	"SHA-1":   true,
	"SHA-256": true,
}

// lower converts struct maps into element maps: keys become snake case and
// empty values are dropped.
func lower(f interface{}) interface{} {
	switch f := f.(type) {
	case []interface{}:
		for i := range f {
			if !isEmptyValue(reflect.ValueOf(f[i])) {
				f[i] = lower(f[i])
			}
		}
		return f
	case map[string]interface{}:
		lf := make(map[string]interface{}, len(f))
		for k, v := range f {
			if isEmptyValue(reflect.ValueOf(v)) {
				continue
			}
			if hashNames[k] {
				lf[k] = lower(v)
			} else {
				lf[strcase.SnakeCase(k)] = lower(v)
			}
		}
		return lf
	default:
		return f
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	case reflect.Invalid:
		return true
	}
	return false
}

// flatten returns a one level map with dotted keys, e.g. hashes.MD5.
func flatten(nested map[string]interface{}) map[string]interface{} {
	flat := map[string]interface{}{}
	flattenInto(flat, "", nested)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, nested interface{}) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch nested := nested.(type) {
	case nil:
	case map[string]interface{}:
		for k, v := range nested {
			flattenInto(flat, join(k), v)
		}
	case []interface{}:
		for i, v := range nested {
			flattenInto(flat, join(strconv.Itoa(i)), v)
		}
	default:
		flat[prefix] = nested
	}
}

// jsonPath quotes every label of a dotted key for json_extract.
func jsonPath(key string) string {
	labels := strings.Split(key, ".")
	for i, label := range labels {
		if _, err := strconv.Atoi(label); err == nil {
			labels[i] = fmt.Sprintf("[%s]", label)
			continue
		}
		labels[i] = `."` + label + `"`
	}
	return "$" + strings.Join(labels, "")
}
