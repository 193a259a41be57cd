package heap

import (
	"encoding/binary"

	"github.com/minhnt/heapdb/internal/record"
	"github.com/minhnt/heapdb/internal/storage"
)

// A directory page is an array of eight-byte entries, each describing one
// data page as (page number, live record count), with the trailing four
// bytes linking to the next directory page. A live count of -1 marks an
// entry whose data page has not been allocated yet; the first such entry
// is the end of the heap, since allocation fills entries in chain order.
const (
	dirEntrySize    = 8
	dirEntriesPer   = (storage.PageSize - 4) / dirEntrySize
	dirNextOff      = storage.PageSize - 4
	dirUninitalized = -1
	dirNoNext       = -1
)

type dirEntry struct {
	dataPage  int
	liveCount int
}

func readDirEntry(page []byte, i int) dirEntry {
	off := i * dirEntrySize
	return dirEntry{
		dataPage:  int(int32(binary.LittleEndian.Uint32(page[off:]))),
		liveCount: int(int32(binary.LittleEndian.Uint32(page[off+4:]))),
	}
}

func writeDirEntry(page []byte, i int, e dirEntry) {
	off := i * dirEntrySize
	binary.LittleEndian.PutUint32(page[off:], uint32(int32(e.dataPage)))
	binary.LittleEndian.PutUint32(page[off+4:], uint32(int32(e.liveCount)))
}

func readDirNext(page []byte) int {
	return int(int32(binary.LittleEndian.Uint32(page[dirNextOff:])))
}

func writeDirNext(page []byte, next int) {
	binary.LittleEndian.PutUint32(page[dirNextOff:], uint32(int32(next)))
}

// initDirectoryPage marks every entry uninitialized and the chain link
// empty. A freshly appended zero page cannot be used as-is: all-zero
// bytes would read as a live entry for data page 0.
func initDirectoryPage(page []byte) {
	for i := 0; i < dirEntriesPer; i++ {
		writeDirEntry(page, i, dirEntry{dataPage: dirUninitalized, liveCount: dirUninitalized})
	}
	writeDirNext(page, dirNoNext)
}

// allocateSlot walks the directory chain for the first data page with a
// free record slot, extending the chain and appending data pages as
// needed, and claims the slot by bumping the entry's live count. Deleted
// records never free their slot, so counts only grow.
func (t *Table) allocateSlot() (record.RID, error) {
	dirPage := t.headerPages
	for {
		h, err := t.bp.Pin(dirPage)
		if err != nil {
			return record.RID{}, err
		}
		data := h.Data()

		for i := 0; i < dirEntriesPer; i++ {
			e := readDirEntry(data, i)

			if e.liveCount == dirUninitalized {
				// Claim a fresh data page for this entry.
				dataPage, err := t.pf.AppendEmptyBlock()
				if err != nil {
					_ = t.bp.Unpin(h)
					return record.RID{}, err
				}
				writeDirEntry(data, i, dirEntry{dataPage: dataPage, liveCount: 1})
				if err := h.MarkDirty(); err != nil {
					_ = t.bp.Unpin(h)
					return record.RID{}, err
				}
				if err := t.bp.Unpin(h); err != nil {
					return record.RID{}, err
				}
				return record.RID{Page: dataPage, Slot: 0}, nil
			}

			if e.liveCount < t.recordsPerPage() {
				slot := e.liveCount * t.recordCost
				writeDirEntry(data, i, dirEntry{dataPage: e.dataPage, liveCount: e.liveCount + 1})
				if err := h.MarkDirty(); err != nil {
					_ = t.bp.Unpin(h)
					return record.RID{}, err
				}
				if err := t.bp.Unpin(h); err != nil {
					return record.RID{}, err
				}
				return record.RID{Page: e.dataPage, Slot: slot}, nil
			}
		}

		next := readDirNext(data)
		if next == dirNoNext {
			// Chain is full: append a new directory page and link it.
			next, err = t.pf.AppendEmptyBlock()
			if err != nil {
				_ = t.bp.Unpin(h)
				return record.RID{}, err
			}
			writeDirNext(data, next)
			if err := h.MarkDirty(); err != nil {
				_ = t.bp.Unpin(h)
				return record.RID{}, err
			}
			if err := t.bp.Unpin(h); err != nil {
				return record.RID{}, err
			}

			nh, err := t.bp.Pin(next)
			if err != nil {
				return record.RID{}, err
			}
			initDirectoryPage(nh.Data())
			if err := nh.MarkDirty(); err != nil {
				_ = t.bp.Unpin(nh)
				return record.RID{}, err
			}
			if err := t.bp.Unpin(nh); err != nil {
				return record.RID{}, err
			}
			t.log.WithField("page", next).Debug("linked new directory page")
		} else {
			if err := t.bp.Unpin(h); err != nil {
				return record.RID{}, err
			}
		}
		dirPage = next
	}
}
