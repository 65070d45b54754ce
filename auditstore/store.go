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

// Package auditstore keeps the audit trail of an extraction run in a SQLite
// database of JSON elements.
//
// Every visited evidence item is stored as a file element carrying its
// origin, export path, hashes and decoder outcome. On close, a view per
// element type is created so the trail can be queried with plain SQL.
package auditstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/fatih/structs"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/loadevidence/audit"
)

const (
	storeVersion  = 1
	applicationID = 1818580071 // "load"
	discriminator = "type"
	memory        = ":memory:"
)

var (
	// ErrStoreExists is returned by New for existing files.
	ErrStoreExists = errors.New("store already exists")
	// ErrStoreNotExists is returned by Open for missing files.
	ErrStoreNotExists = errors.New("store does not exist")
	// ErrElementNotFound is returned by Get for unknown ids.
	ErrElementNotFound = errors.New("element does not exist")
	// ErrInvalidElement is returned when an element violates its schema.
	ErrInvalidElement = errors.New("invalid element")
)

// Store is the audit database of one or more extraction runs.
type Store struct {
	conn  *sqlite.Conn
	types *typeMap
	runID string
}

// New creates a new audit store at url.
func New(url string) (*Store, error) {
	return open(url, true)
}

// Open opens an existing audit store.
func Open(url string) (*Store, error) {
	return open(url, false)
}

func open(url string, create bool) (*Store, error) { // nolint:gocyclo
	if url != memory {
		exists := true
		if _, err := os.Stat(url); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			exists = false
		}

		if create && exists {
			return nil, errors.Wrap(ErrStoreExists, url)
		}
		if !create && !exists {
			return nil, errors.Wrap(ErrStoreNotExists, url)
		}
		if create {
			if err := os.MkdirAll(filepath.Dir(url), 0750); err != nil {
				return nil, err
			}
		}
	}

	conn, err := sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	store := &Store{conn: conn, types: newTypeMap(), runID: uuid.New().String()}

	if create {
		err = store.initialize()
	} else {
		err = store.checkFormat()
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := setupSchemaValidation(); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

func (store *Store) initialize() error {
	if err := store.setPragma("application_id", applicationID); err != nil {
		return err
	}
	if err := store.setPragma("user_version", storeVersion); err != nil {
		return err
	}
	return store.exec("CREATE TABLE IF NOT EXISTS `elements` " +
		"(id TEXT PRIMARY KEY, json TEXT NOT NULL, insert_time TEXT NOT NULL)")
}

func (store *Store) checkFormat() error {
	id, err := store.pragma("application_id")
	if err != nil {
		return err
	}
	if id != applicationID {
		return fmt.Errorf("wrong file format (application_id is %d, requires %d)", id, applicationID)
	}

	version, err := store.pragma("user_version")
	if err != nil {
		return err
	}
	if version != storeVersion {
		return fmt.Errorf("wrong file format (user_version is %d, requires %d)", version, storeVersion)
	}
	return nil
}

// RunID identifies the run recorded by this connection.
func (store *Store) RunID() string {
	return store.runID
}

/* ################################
#   API
################################ */

// Insert validates and adds a single element. Elements without an id get
// one of the form <type>--<uuid>.
func (store *Store) Insert(element JSONElement) (string, error) {
	flaws, err := validateSchema(context.Background(), element)
	if err != nil {
		return "", errors.Wrap(err, "validation failed")
	}
	if len(flaws) > 0 {
		return "", errors.Wrapf(ErrInvalidElement, "[%s]", strings.Join(flaws, ","))
	}

	nested := map[string]interface{}{}
	if err := json.Unmarshal(element, &nested); err != nil {
		return "", err
	}

	elementType, ok := nested[discriminator].(string)
	if !ok {
		return "", errors.Wrap(ErrInvalidElement, "element requires type")
	}
	id, ok := nested["id"].(string)
	if !ok {
		id = elementType + "--" + uuid.New().String()
		nested["id"] = id

		element, err = json.Marshal(nested)
		if err != nil {
			return "", err
		}
	}

	store.types.addAll(elementType, flatten(nested))

	stmt, _, err := store.conn.PrepareTransient("INSERT INTO `elements` (id, json, insert_time) VALUES ($id, $json, $time)")
	if err != nil {
		return "", errors.Wrap(err, "could not prepare insert")
	}
	defer stmt.Finalize()
	stmt.SetText("$id", id)
	stmt.SetText("$json", string(element))
	stmt.SetText("$time", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	if _, err := stmt.Step(); err != nil {
		return "", errors.Wrap(err, "could not insert element")
	}
	return id, nil
}

// InsertStruct converts a Go struct to an element and inserts it.
func (store *Store) InsertStruct(element interface{}) (string, error) {
	m := lower(structs.Map(element)).(map[string]interface{})
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return store.Insert(b)
}

// Record implements audit.Recorder.
func (store *Store) Record(_ context.Context, r *audit.Record) error {
	_, err := store.InsertStruct(fileFromRecord(store.runID, r))
	return err
}

// Get retrieves a single element.
func (store *Store) Get(id string) (JSONElement, error) {
	stmt, _, err := store.conn.PrepareTransient("SELECT json FROM `elements` WHERE id = $id")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$id", id)

	elements, err := rowsToElements(stmt)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, errors.Wrap(ErrElementNotFound, id)
	}
	return elements[0], nil
}

// Select retrieves elements matching any of the conditions. Each condition
// maps dotted field names to LIKE patterns that all need to match.
func (store *Store) Select(conditions []map[string]string) ([]JSONElement, error) {
	var ors []string
	var args []string
	for _, condition := range conditions {
		var ands []string
		for key, value := range condition {
			ands = append(ands, "json_extract(json, ?) LIKE ?")
			args = append(args, jsonPath(key), value)
		}
		if len(ands) > 0 {
			ors = append(ors, "("+strings.Join(ands, " AND ")+")")
		}
	}

	query := "SELECT json FROM `elements`"
	if len(ors) > 0 {
		query += " WHERE " + strings.Join(ors, " OR ")
	}
	query += " ORDER BY insert_time, rowid"

	stmt, _, err := store.conn.PrepareTransient(query)
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		stmt.BindText(i+1, arg)
	}
	return rowsToElements(stmt)
}

// All returns every element in insertion order.
func (store *Store) All() ([]JSONElement, error) {
	return store.Select(nil)
}

// Close creates the element views and closes the database.
func (store *Store) Close() error {
	var viewErr error
	if store.types.changed {
		viewErr = store.createViews()
	}
	if err := store.conn.Close(); err != nil {
		return err
	}
	return viewErr
}

func (store *Store) createViews() error {
	for typeName, fields := range store.types.fields() {
		if err := store.exec(fmt.Sprintf("DROP VIEW IF EXISTS \"%s\"", typeName)); err != nil {
			return err
		}
		columns := make([]string, 0, len(fields))
		for _, field := range fields {
			columns = append(columns, fmt.Sprintf("json_extract(json, '%s') AS \"%s\"", jsonPath(field), field))
		}
		err := store.exec(fmt.Sprintf(
			"CREATE VIEW \"%s\" AS SELECT %s FROM `elements` WHERE json_extract(json, '$.%s') = '%s'",
			typeName, strings.Join(columns, ", "), discriminator, typeName,
		))
		if err != nil {
			return errors.Wrapf(err, "could not create view %s", typeName)
		}
	}
	return nil
}

/* ################################
#   Intern
################################ */

func rowsToElements(stmt *sqlite.Stmt) (elements []JSONElement, err error) {
	defer func() {
		if ferr := stmt.Finalize(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	elements = []JSONElement{}
	for {
		if hasRow, err := stmt.Step(); err != nil {
			return nil, err
		} else if !hasRow {
			break
		}
		elements = append(elements, JSONElement(stmt.GetText("json")))
	}
	return elements, nil
}

func (store *Store) exec(query string) error {
	stmt, _, err := store.conn.PrepareTransient(query)
	if err != nil {
		return err
	}
	defer stmt.Finalize()
	_, err = stmt.Step()
	return err
}

func (store *Store) pragma(name string) (int64, error) {
	stmt, _, err := store.conn.PrepareTransient("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	defer stmt.Finalize()
	if _, err := stmt.Step(); err != nil {
		return 0, err
	}
	return stmt.ColumnInt64(0), nil
}

func (store *Store) setPragma(name string, i int64) error {
	return store.exec(fmt.Sprintf("PRAGMA %s = %d", name, i))
}
