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

// Package loadevidence loads forensic evidence into a normalized output tree.
//
// Inputs are files or directories. Every file is classified by content;
// containers (zip, tar, 7z, rar, gzip, zstd, bzip2) are expanded by their
// external decoder and the result is walked again, until only leaves are
// left. Leaves are copied verbatim. Every visited item yields exactly one
// audit record.
//
// The loading conventions
//
// The output tree follows these conventions:
//     - Leaves keep their relative location below the input root.
//     - A container is expanded into a directory named after the container
//       without its extension, e.g. logs.tar.gz -> logs/. Compressed single
//       files are decoded to a file of that name, e.g. auth.log.gz -> auth.log.
//     - Names never collide: an existing name gets a numeric suffix, e.g.
//       report.txt, report_1.txt, report_2.txt.
//     - Audit records name the item by its logical path: the top level
//       input followed by the path inside every container, e.g.
//       /evidence/host.zip/logs.tar.gz/syslog.
//
// Example
//
// An example output tree for /evidence holding host.zip (with logs.tar.gz
// inside) and notes.txt:
//     extracted_2026-10-18_093000/
//     ├── host
//     │   ├── logs
//     │   │   └── syslog
//     │   └── logs.tar.gz
//     └── notes.txt
package loadevidence
