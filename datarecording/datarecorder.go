// Package datarecording stores the simulation trace in a SQLite database for
// offline analysis.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables in creation order.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

type table struct {
	structType reflect.Type
	columns    []string
	entries    []any
}

// SQLiteWriter is the DataRecorder that writes into a SQLite database.
// Entries are written in batches.
type SQLiteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

// NewSQLiteWriter creates a writer that will store into path + ".sqlite3".
// An empty path picks a unique name. Init must be called before use.
// Buffered entries are flushed when the program exits through atexit.
func NewSQLiteWriter(path string) *SQLiteWriter {
	w := &SQLiteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

// WithBatchSize sets how many entries are buffered before an automatic
// flush.
func (w *SQLiteWriter) WithBatchSize(n int) *SQLiteWriter {
	w.batchSize = n
	return w
}

// Filename returns the database file name.
func (w *SQLiteWriter) Filename() string {
	return w.dbName + ".sqlite3"
}

// Init creates the database file. It refuses to overwrite an existing file.
func (w *SQLiteWriter) Init() error {
	if w.dbName == "" {
		w.dbName = "pktsim_" + xid.New().String()
	}

	filename := w.Filename()

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("open %s: %w", filename, err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	w.DB = db

	return nil
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s has unsupported kind %s",
				field.Name, field.Type.Kind())
		}
	}

	return nil
}

// CreateTable creates a table named after the struct fields of sampleEntry.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return fmt.Errorf("table %s: %w", tableName, err)
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	columns := structs.Names(sampleEntry)
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`

	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		columns:    columns,
	}
	w.tableOrder = append(w.tableOrder, tableName)

	return nil
}

// InsertData buffers an entry. Reaching the batch size flushes.
func (w *SQLiteWriter) InsertData(tableName string, entry any) error {
	w.lock.Lock()

	t, exists := w.tables[tableName]
	if !exists {
		w.lock.Unlock()
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		w.lock.Unlock()
		return fmt.Errorf("table %s expects %s, got %T",
			tableName, t.structType, entry)
	}

	t.entries = append(t.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.lock.Unlock()

	if full {
		return w.Flush()
	}

	return nil
}

// ListTables returns the names of all tables in creation order.
func (w *SQLiteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	tables := make([]string, len(w.tableOrder))
	copy(tables, w.tableOrder)

	return tables
}

// Flush writes every buffered entry in one transaction.
func (w *SQLiteWriter) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.flush()
}

func (w *SQLiteWriter) flush() error {
	if w.closed || w.DB == nil || w.entryCount == 0 {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for _, tableName := range w.tableOrder {
		t := w.tables[tableName]
		if len(t.entries) == 0 {
			continue
		}

		if err := insertAll(tx, tableName, t); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for _, t := range w.tables {
		t.entries = nil
	}

	w.entryCount = 0

	return nil
}

func insertAll(tx *sql.Tx, tableName string, t *table) error {
	placeholders := make([]string, len(t.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}

	return nil
}

// Close flushes the buffered entries and closes the database.
func (w *SQLiteWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed || w.DB == nil {
		return nil
	}

	flushErr := w.flush()
	w.closed = true

	return errors.Join(flushErr, w.DB.Close())
}
