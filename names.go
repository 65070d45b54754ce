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
	"sort"
	"strings"
)

// known multi part and container extensions, matched longest first
var knownExtensions = func() []string { // nolint:gochecknoglobals
	exts := []string{
		".tar.gz", ".tar.bz2", ".tar.zst", ".tar.xz", ".tar.lz4",
		".tgz", ".tbz", ".tbz2", ".txz", ".tzst",
		".gz", ".bz2", ".zst", ".xz", ".tar", ".zip", ".7z", ".rar", ".jar",
		".e01", ".vmdk", ".vhdx", ".dd", ".raw", ".evtx", ".pcap",
	}
	sort.SliceStable(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })
	return exts
}()

// SplitName splits a base name into stem and extension. Known container
// extensions like .tar.gz win over the last dot; a leading dot does not
// start an extension.
func SplitName(base string) (stem, ext string) {
	if !strings.Contains(strings.TrimLeft(base, "."), ".") {
		return base, ""
	}
	lower := strings.ToLower(base)
	for _, known := range knownExtensions {
		if strings.HasSuffix(lower, known) && len(base) > len(known) {
			return base[:len(base)-len(known)], base[len(base)-len(known):]
		}
	}
	i := strings.LastIndexByte(base, '.')
	return base[:i], base[i:]
}
