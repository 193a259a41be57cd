package heap

import (
	"errors"

	"github.com/minhnt/heapdb/internal/record"
)

var ErrNoMoreTuples = errors.New("heap: no more tuples")

// Evaluator decides whether a record matches a scan. It is an opaque
// boolean-valued predicate over a record and its schema.
type Evaluator interface {
	Eval(rec *record.Record, schema *record.Schema) (bool, error)
}

// EvalFunc adapts a plain function to the Evaluator interface.
type EvalFunc func(rec *record.Record, schema *record.Schema) (bool, error)

func (f EvalFunc) Eval(rec *record.Record, schema *record.Schema) (bool, error) {
	return f(rec, schema)
}

// Scan is a lazy forward walk over a table's live records. Its position
// belongs to the scan handle, not the table, so independent scans over
// one table do not interfere. A scan is finite and not restartable.
type Scan struct {
	t    *Table
	eval Evaluator

	dirPage int // current directory page, -1 once exhausted
	entry   int // entry index within dirPage
	rec     int // record index within the entry's data page
}

// NewScan starts a scan at the head of the directory chain.
func (t *Table) NewScan(eval Evaluator) *Scan {
	return &Scan{t: t, eval: eval, dirPage: t.headerPages}
}

// Next yields the next live record matching the evaluator, in directory
// chain order and increasing slot order within each data page. It fails
// with ErrNoMoreTuples once the chain is consumed.
func (sc *Scan) Next() (*record.Record, error) {
	for {
		if sc.dirPage < 0 {
			return nil, ErrNoMoreTuples
		}

		e, err := sc.currentEntry()
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue // position advanced to the next entry or page
		}

		if sc.rec >= e.liveCount {
			sc.entry++
			sc.rec = 0
			continue
		}

		rid := record.RID{Page: e.dataPage, Slot: sc.rec * sc.t.recordCost}
		sc.rec++

		rec, err := sc.t.Get(rid)
		if errors.Is(err, ErrRecordNotFound) {
			continue // tombstone
		}
		if err != nil {
			return nil, err
		}

		ok, err := sc.eval.Eval(rec, sc.t.Schema)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
	}
}

// currentEntry reads the directory entry at the scan position. A nil
// entry with nil error means the position moved (next directory page or
// end of chain) and the caller should retry.
func (sc *Scan) currentEntry() (*dirEntry, error) {
	h, err := sc.t.bp.Pin(sc.dirPage)
	if err != nil {
		return nil, err
	}
	data := h.Data()

	if sc.entry >= dirEntriesPer {
		next := readDirNext(data)
		if err := sc.t.bp.Unpin(h); err != nil {
			return nil, err
		}
		sc.dirPage = next // dirNoNext ends the scan
		sc.entry = 0
		sc.rec = 0
		return nil, nil
	}

	e := readDirEntry(data, sc.entry)
	if err := sc.t.bp.Unpin(h); err != nil {
		return nil, err
	}

	if e.liveCount == dirUninitalized {
		// Allocation fills entries in chain order, so the first
		// uninitialized entry is the end of the heap.
		sc.dirPage = dirNoNext
		return nil, nil
	}
	return &e, nil
}
