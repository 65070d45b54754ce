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
	"sort"
	"sync"
)

// typeMap tracks the fields seen per element type to build the views.
type typeMap struct {
	sync.RWMutex
	changed bool
	types   map[string]map[string]bool
}

func newTypeMap() *typeMap {
	return &typeMap{types: map[string]map[string]bool{}}
}

func (rm *typeMap) addAll(name string, fields map[string]interface{}) {
	rm.Lock()
	defer rm.Unlock()
	if _, ok := rm.types[name]; !ok {
		rm.types[name] = map[string]bool{}
	}
	for field := range fields {
		if !rm.types[name][field] {
			rm.types[name][field] = true
			rm.changed = true
		}
	}
}

// fields returns the sorted fields per type.
func (rm *typeMap) fields() map[string][]string {
	rm.RLock()
	defer rm.RUnlock()
	all := make(map[string][]string, len(rm.types))
	for name, fields := range rm.types {
		for field := range fields {
			all[name] = append(all[name], field)
		}
		sort.Strings(all[name])
	}
	return all
}
