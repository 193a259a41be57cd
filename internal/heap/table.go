package heap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/minhnt/heapdb/internal/bufferpool"
	"github.com/minhnt/heapdb/internal/record"
	"github.com/minhnt/heapdb/internal/storage"
)

// DefaultSlotSize is the slot width used when table creation does not ask
// for another one.
const DefaultSlotSize = 256

// Page 0 header: four int32 fields, then the schema text.
const (
	offHeaderPages = 0  // pages consumed by header + schema text
	offRecordCost  = 4  // slots one record occupies
	offSlotSize    = 8  // slot width in bytes
	offNumTuples   = 12 // live tuple count
	headerSize     = 16
)

var (
	ErrRecordNotFound = errors.New("heap: record not found")
	ErrBadSlotSize    = errors.New("heap: slot size must divide the page size")
	ErrRecordTooWide  = errors.New("heap: record does not fit in one page")
)

// Table binds a schema, a buffer pool and a page file to one named heap
// file. Closing the table tears all three down together.
type Table struct {
	Name   string
	Schema *record.Schema

	pf  *storage.PageFile
	bp  *bufferpool.Pool
	log *logrus.Entry

	headerPages int // directory chain starts at this page
	recordCost  int // slots per record
	slotSize    int
}

// Options tunes the buffer pool a table runs on.
type Options struct {
	PoolCapacity int
	Policy       bufferpool.Policy
	SlotSize     int // CreateTable only; 0 means DefaultSlotSize
}

// CreateTable lays out a fresh heap file: the header ints and schema text
// on pages 0..k-1, then one initialized directory page. The file is
// written directly through the block store and closed; use OpenTable to
// work with it.
func CreateTable(name string, schema *record.Schema, opts Options) error {
	slotSize := opts.SlotSize
	if slotSize == 0 {
		slotSize = DefaultSlotSize
	}
	if slotSize <= 0 || storage.PageSize%slotSize != 0 {
		return fmt.Errorf("%w: %d", ErrBadSlotSize, slotSize)
	}
	recordCost := (1 + schema.RecordSize() + slotSize - 1) / slotSize
	if recordCost > storage.PageSize/slotSize {
		return fmt.Errorf("%w: needs %d slots", ErrRecordTooWide, recordCost)
	}

	if err := storage.Create(name); err != nil {
		return err
	}
	pf, err := storage.Open(name)
	if err != nil {
		return err
	}
	defer pf.Close()

	schemaText := []byte(record.Encode(schema))
	headerPages := (headerSize + len(schemaText) + storage.PageSize - 1) / storage.PageSize

	page := make([]byte, storage.PageSize)
	binary.LittleEndian.PutUint32(page[offHeaderPages:], uint32(headerPages))
	binary.LittleEndian.PutUint32(page[offRecordCost:], uint32(recordCost))
	binary.LittleEndian.PutUint32(page[offSlotSize:], uint32(slotSize))
	binary.LittleEndian.PutUint32(page[offNumTuples:], 0)
	n := copy(page[headerSize:], schemaText)
	schemaText = schemaText[n:]

	if err := pf.EnsureCapacity(headerPages); err != nil {
		return err
	}
	if err := pf.WriteBlock(0, page); err != nil {
		return err
	}
	for i := 1; i < headerPages; i++ {
		for j := range page {
			page[j] = 0
		}
		n = copy(page, schemaText)
		schemaText = schemaText[n:]
		if err := pf.WriteBlock(i, page); err != nil {
			return err
		}
	}

	// First directory page: every entry uninitialized, no next page.
	dirPage, err := pf.AppendEmptyBlock()
	if err != nil {
		return err
	}
	initDirectoryPage(page)
	return pf.WriteBlock(dirPage, page)
}

// OpenTable opens the heap file, builds its buffer pool and decodes the
// header and schema.
func OpenTable(name string, opts Options) (*Table, error) {
	pf, err := storage.Open(name)
	if err != nil {
		return nil, err
	}

	policy := opts.Policy
	bp := bufferpool.NewPool(pf, opts.PoolCapacity, policy)

	t := &Table{
		Name: name,
		pf:   pf,
		bp:   bp,
		log: logrus.WithFields(logrus.Fields{
			"component": "heap",
			"table":     name,
		}),
	}
	if err := t.readHeader(); err != nil {
		_ = bp.Shutdown()
		_ = pf.Close()
		return nil, err
	}
	return t, nil
}

// Close flushes and shuts the buffer pool down, then closes the file.
// A pinned page aborts the close, leaving the table usable.
func (t *Table) Close() error {
	if err := t.bp.Shutdown(); err != nil {
		return err
	}
	return t.pf.Close()
}

// DeleteTable removes the heap file from disk.
func DeleteTable(name string) error {
	return storage.Destroy(name)
}

// Pool exposes the table's buffer pool for statistics and flushing.
func (t *Table) Pool() *bufferpool.Pool { return t.bp }

// SlotSize returns the table's fixed slot width.
func (t *Table) SlotSize() int { return t.slotSize }

func (t *Table) readHeader() error {
	h, err := t.bp.Pin(0)
	if err != nil {
		return err
	}
	data := h.Data()
	t.headerPages = int(int32(binary.LittleEndian.Uint32(data[offHeaderPages:])))
	t.recordCost = int(int32(binary.LittleEndian.Uint32(data[offRecordCost:])))
	t.slotSize = int(int32(binary.LittleEndian.Uint32(data[offSlotSize:])))

	// Schema text runs from the header to the first NUL, spanning the
	// remaining header pages in raw order.
	var text bytes.Buffer
	done := appendUntilNul(&text, data[headerSize:])
	if err := t.bp.Unpin(h); err != nil {
		return err
	}
	for i := 1; i < t.headerPages && !done; i++ {
		h, err := t.bp.Pin(i)
		if err != nil {
			return err
		}
		done = appendUntilNul(&text, h.Data())
		if err := t.bp.Unpin(h); err != nil {
			return err
		}
	}

	schema, err := record.Decode(text.String())
	if err != nil {
		return err
	}
	t.Schema = schema
	return nil
}

func appendUntilNul(dst *bytes.Buffer, chunk []byte) bool {
	if n := bytes.IndexByte(chunk, 0); n >= 0 {
		dst.Write(chunk[:n])
		return true
	}
	dst.Write(chunk)
	return false
}

// NumTuples reads the live tuple count from the header page.
func (t *Table) NumTuples() (int, error) {
	h, err := t.bp.Pin(0)
	if err != nil {
		return 0, err
	}
	n := int(int32(binary.LittleEndian.Uint32(h.Data()[offNumTuples:])))
	if err := t.bp.Unpin(h); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *Table) addTuples(delta int) error {
	h, err := t.bp.Pin(0)
	if err != nil {
		return err
	}
	data := h.Data()
	n := int32(binary.LittleEndian.Uint32(data[offNumTuples:]))
	binary.LittleEndian.PutUint32(data[offNumTuples:], uint32(n+int32(delta)))
	if err := h.MarkDirty(); err != nil {
		_ = t.bp.Unpin(h)
		return err
	}
	return t.bp.Unpin(h)
}

// recordsPerPage is the number of records one data page can hold.
func (t *Table) recordsPerPage() int {
	return storage.PageSize / t.slotSize / t.recordCost
}
