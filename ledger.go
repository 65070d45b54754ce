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

package loadevidence

import (
	"sync"
)

// Ledger remembers the content hashes loaded during one run.
type Ledger struct {
	sync.RWMutex
	hashes map[string]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{hashes: map[string]bool{}}
}

// Register adds hash and reports whether it was new.
func (l *Ledger) Register(hash string) bool {
	l.Lock()
	defer l.Unlock()
	if l.hashes[hash] {
		return false
	}
	l.hashes[hash] = true
	return true
}

// Seen reports whether hash was registered.
func (l *Ledger) Seen(hash string) bool {
	l.RLock()
	defer l.RUnlock()
	return l.hashes[hash]
}

// Len returns the number of registered hashes.
func (l *Ledger) Len() int {
	l.RLock()
	defer l.RUnlock()
	return len(l.hashes)
}
