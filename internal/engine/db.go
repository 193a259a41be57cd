package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/minhnt/heapdb/internal/bufferpool"
	"github.com/minhnt/heapdb/internal/heap"
	"github.com/minhnt/heapdb/internal/record"
)

var (
	ErrTableOpen   = errors.New("heapdb: table is already open")
	ErrTableExists = errors.New("heapdb: table already exists")
)

// Config carries the per-table storage knobs a Database applies when
// creating and opening tables.
type Config struct {
	Workdir      string
	PoolCapacity int
	Policy       bufferpool.Policy
	SlotSize     int
}

// Database scopes heap tables to one data directory. Each table gets its
// own page file and buffer pool; databases are independently
// constructible and hold no global state.
type Database struct {
	cfg  Config
	log  *logrus.Entry
	open map[string]*heap.Table
}

func NewDatabase(cfg Config) (*Database, error) {
	if err := os.MkdirAll(cfg.Workdir, 0o755); err != nil {
		return nil, err
	}
	return &Database{
		cfg:  cfg,
		log:  logrus.WithField("component", "engine"),
		open: make(map[string]*heap.Table),
	}, nil
}

func (db *Database) tablePath(name string) string {
	return filepath.Join(db.cfg.Workdir, name+".heap")
}

// CreateTable lays out a new heap file for the schema and opens it. An
// existing heap file, open or not, is never truncated.
func (db *Database) CreateTable(name string, schema *record.Schema) (*heap.Table, error) {
	if _, ok := db.open[name]; ok {
		return nil, ErrTableOpen
	}
	if _, err := os.Stat(db.tablePath(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	opts := heap.Options{
		PoolCapacity: db.cfg.PoolCapacity,
		Policy:       db.cfg.Policy,
		SlotSize:     db.cfg.SlotSize,
	}
	if err := heap.CreateTable(db.tablePath(name), schema, opts); err != nil {
		return nil, err
	}
	db.log.WithFields(logrus.Fields{
		"table": name,
		"attrs": schema.NumAttrs(),
	}).Info("created table")

	return db.OpenTable(name)
}

// OpenTable opens an existing table in this database's directory.
func (db *Database) OpenTable(name string) (*heap.Table, error) {
	if tbl, ok := db.open[name]; ok {
		return tbl, nil
	}

	tbl, err := heap.OpenTable(db.tablePath(name), heap.Options{
		PoolCapacity: db.cfg.PoolCapacity,
		Policy:       db.cfg.Policy,
	})
	if err != nil {
		return nil, err
	}
	db.open[name] = tbl
	return tbl, nil
}

// CloseTable shuts the table's pool down; it fails while pages are
// pinned, and the table stays open in that case.
func (db *Database) CloseTable(name string) error {
	tbl, ok := db.open[name]
	if !ok {
		return nil
	}
	if err := tbl.Close(); err != nil {
		return err
	}
	delete(db.open, name)
	return nil
}

// DropTable closes the table if open and removes its heap file.
func (db *Database) DropTable(name string) error {
	if err := db.CloseTable(name); err != nil {
		return err
	}
	db.log.WithField("table", name).Info("dropping table")
	return heap.DeleteTable(db.tablePath(name))
}

// Close shuts down every open table. The first pin leak aborts the close
// so the caller can retry after releasing pages.
func (db *Database) Close() error {
	for name := range db.open {
		if err := db.CloseTable(name); err != nil {
			return err
		}
	}
	return nil
}
