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

// Package sqlar bundles an output tree into a SQLite Archive.
//
// The archive uses the sqlar table layout of the sqlite3 command line shell,
// so bundles can be inspected with "sqlite3 -A". File content is zlib
// compressed whenever that makes it smaller.
package sqlar

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const table = `CREATE TABLE IF NOT EXISTS sqlar(
  name TEXT PRIMARY KEY,  -- name of the file
  mode INT,               -- access permissions
  mtime INT,              -- last modification time
  sz INT,                 -- original file size
  data BLOB               -- compressed content
);`

const (
	modeDir  = 0040000
	modeFile = 0100000
)

var (
	// ErrExists is returned by Create for existing archives.
	ErrExists = errors.New("archive already exists")
	// ErrNotExist is returned for missing archives and members.
	ErrNotExist = errors.New("does not exist")
)

// Archive is an open SQLite Archive.
type Archive struct {
	conn *sqlite.Conn
}

// Create creates a new archive at name.
func Create(name string) (*Archive, error) {
	if _, err := os.Stat(name); err == nil {
		return nil, errors.Wrap(ErrExists, name)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return nil, err
	}
	conn, err := sqlite.OpenConn(name, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	a := &Archive{conn: conn}
	if err := exec(conn.Prep(table)); err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

// Open opens an existing archive.
func Open(name string) (*Archive, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, errors.Wrap(ErrNotExist, name)
	}
	conn, err := sqlite.OpenConn(name, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	return &Archive{conn: conn}, nil
}

// Add stores the content of r as a regular file.
func (a *Archive) Add(name string, mode os.FileMode, mtime time.Time, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	data, err := compress(raw)
	if err != nil {
		return err
	}

	stmt := a.conn.Prep(`INSERT OR REPLACE INTO sqlar (name, mode, mtime, sz, data) VALUES ($name, $mode, $mtime, $sz, $data)`)
	stmt.SetText("$name", normalizeFilename(name))
	stmt.SetInt64("$mode", int64(modeFile|mode.Perm()))
	stmt.SetInt64("$mtime", mtime.Unix())
	stmt.SetInt64("$sz", int64(len(raw)))
	stmt.SetBytes("$data", data)
	return exec(stmt)
}

// AddDir stores a directory entry.
func (a *Archive) AddDir(name string, mode os.FileMode, mtime time.Time) error {
	stmt := a.conn.Prep(`INSERT OR REPLACE INTO sqlar (name, mode, mtime, sz, data) VALUES ($name, $mode, $mtime, 0, NULL)`)
	stmt.SetText("$name", normalizeFilename(name))
	stmt.SetInt64("$mode", int64(modeDir|mode.Perm()))
	stmt.SetInt64("$mtime", mtime.Unix())
	return exec(stmt)
}

// List returns all entries sorted by name.
func (a *Archive) List() ([]*Info, error) {
	stmt := a.conn.Prep(`SELECT name, mode, mtime, sz FROM sqlar ORDER BY name`)
	var infos []*Info
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		} else if !hasRow {
			break
		}
		infos = append(infos, infoFromRow(stmt))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].name < infos[j].name })
	return infos, stmt.Reset()
}

// ReadFile returns the uncompressed content of a member.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	stmt := a.conn.Prep(`SELECT sz, data FROM sqlar WHERE name = $name`)
	stmt.SetText("$name", normalizeFilename(name))
	hasRow, err := stmt.Step()
	if err != nil {
		return nil, err
	}
	if !hasRow {
		return nil, errors.Wrap(ErrNotExist, name)
	}
	size := stmt.GetInt64("sz")
	data := make([]byte, stmt.GetLen("data"))
	stmt.GetBytes("data", data)
	if err := stmt.Reset(); err != nil {
		return nil, err
	}
	return decompress(data, size)
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, errors.Wrap(err, "compress")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compress")
	}
	if buf.Len() < len(raw) {
		return buf.Bytes(), nil
	}
	return raw, nil
}

func decompress(data []byte, size int64) ([]byte, error) {
	if int64(len(data)) == size {
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}
	return raw, nil
}

// Info describes an archive member.
type Info struct {
	sz    int64
	mtime time.Time
	mode  int64
	name  string
}

func infoFromRow(stmt *sqlite.Stmt) *Info {
	return &Info{
		name:  stmt.GetText("name"),
		sz:    stmt.GetInt64("sz"),
		mode:  stmt.GetInt64("mode"),
		mtime: time.Unix(stmt.GetInt64("mtime"), 0),
	}
}

// Name returns the base name of the member.
func (i *Info) Name() string { return path.Base(i.name) }

// Path returns the full name of the member inside the archive.
func (i *Info) Path() string { return i.name }

// Size returns the uncompressed size.
func (i *Info) Size() int64 { return i.sz }

// Mode returns the permission bits plus os.ModeDir for directories.
func (i *Info) Mode() os.FileMode {
	mode := os.FileMode(i.mode).Perm()
	if i.IsDir() {
		mode |= os.ModeDir
	}
	return mode
}

// ModTime returns the modification time.
func (i *Info) ModTime() time.Time { return i.mtime }

// IsDir reports whether the member is a directory.
func (i *Info) IsDir() bool { return i.mode&modeDir != 0 && i.mode&modeFile == 0 }

// Sys returns nil.
func (i *Info) Sys() interface{} { return nil }

func exec(stmt *sqlite.Stmt) error {
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Reset()
}

func normalizeFilename(name string) string {
	name = filepath.ToSlash(name)
	return strings.Trim(path.Clean("/"+name), "/")
}
