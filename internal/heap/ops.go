package heap

import (
	"fmt"

	"github.com/minhnt/heapdb/internal/record"
)

// Insert writes rec into the first free slot found through the directory
// chain, bumps the tuple counter and assigns the allocated RID back into
// rec. The counter moves only after the slot and data writes succeeded,
// so a failed allocation leaves the count untouched.
func (t *Table) Insert(rec *record.Record) error {
	rid, err := t.allocateSlot()
	if err != nil {
		return err
	}

	h, err := t.bp.Pin(rid.Page)
	if err != nil {
		return err
	}
	off := rid.Slot * t.slotSize
	data := h.Data()
	data[off] = 1 // liveness flag
	copy(data[off+1:], rec.Data)
	if err := h.MarkDirty(); err != nil {
		_ = t.bp.Unpin(h)
		return err
	}
	if err := t.bp.Unpin(h); err != nil {
		return err
	}

	if err := t.addTuples(1); err != nil {
		return err
	}
	rec.ID = rid
	return nil
}

// Get reads the record at rid into a fresh buffer. A tombstoned or never
// written slot fails with ErrRecordNotFound. Get never mutates state.
func (t *Table) Get(rid record.RID) (*record.Record, error) {
	h, err := t.bp.Pin(rid.Page)
	if err != nil {
		return nil, err
	}

	off := rid.Slot * t.slotSize
	data := h.Data()
	if data[off] == 0 {
		_ = t.bp.Unpin(h)
		return nil, fmt.Errorf("%w: page %d slot %d", ErrRecordNotFound, rid.Page, rid.Slot)
	}

	rec := record.NewRecord(t.Schema)
	rec.ID = rid
	copy(rec.Data, data[off+1:off+1+len(rec.Data)])

	if err := t.bp.Unpin(h); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update overwrites the field bytes of the record at rec.ID, leaving the
// liveness flag untouched. The caller is responsible for updating a live
// slot; no existence check is made.
func (t *Table) Update(rec *record.Record) error {
	h, err := t.bp.Pin(rec.ID.Page)
	if err != nil {
		return err
	}
	off := rec.ID.Slot * t.slotSize
	copy(h.Data()[off+1:], rec.Data)
	if err := h.MarkDirty(); err != nil {
		_ = t.bp.Unpin(h)
		return err
	}
	return t.bp.Unpin(h)
}

// Delete tombstones the record at rid: liveness flag and field bytes are
// zeroed and the tuple counter decremented. A dead slot fails with
// ErrRecordNotFound, so deleting twice cannot drift the counter. The slot
// itself is never reused; directory live counts only grow.
func (t *Table) Delete(rid record.RID) error {
	h, err := t.bp.Pin(rid.Page)
	if err != nil {
		return err
	}
	off := rid.Slot * t.slotSize
	data := h.Data()
	if data[off] == 0 {
		_ = t.bp.Unpin(h)
		return fmt.Errorf("%w: page %d slot %d", ErrRecordNotFound, rid.Page, rid.Slot)
	}
	for i := 0; i < 1+t.Schema.RecordSize(); i++ {
		data[off+i] = 0
	}
	if err := h.MarkDirty(); err != nil {
		_ = t.bp.Unpin(h)
		return err
	}
	if err := t.bp.Unpin(h); err != nil {
		return err
	}
	return t.addTuples(-1)
}
