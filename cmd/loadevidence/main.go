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

// Package loadevidence implements the loadevidence command line tool.
//
//	extract   Extract and load evidence files and directories (default)
//	validate  Verify the output tree against an audit store
//	pack      Bundle an output directory into a sqlite archive
//	ls        List files in the sqlite archive
//	unpack    Extract files from the sqlite archive
//	watch     Load evidence dropped into an intake directory
//
// Usage
//
// Load a case intake, skipping duplicate content
//
//	loadevidence -u -o loaded -s summary.csv /cases/42/intake
//
// Record into an audit store and verify the output later
//
//	loadevidence extract --store audit.db -o loaded /cases/42/intake
//	loadevidence validate audit.db
//
// Bundle the output
//
//	loadevidence pack loaded.sqlar loaded
//	loadevidence ls loaded.sqlar
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/forensicanalysis/loadevidence/cmd"
)

func main() {
	if err := fang.Execute(context.Background(), cmd.Root()); err != nil {
		os.Exit(1)
	}
}
