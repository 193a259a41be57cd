package bufferpool

import "errors"

var ErrHandleReleased = errors.New("bufferpool: page handle already released")

// PageHandle is a short-lived borrowed view of one pinned page. The pool
// keeps ownership of the frame buffer; the handle only exposes it while
// the pin it represents is held. Unpin invalidates the handle, so a
// retained handle cannot touch a reused frame.
type PageHandle struct {
	pool     *Pool
	pageNum  int
	frameIdx int
	pins     int // pin count observed at hand-out
	released bool
}

// PageNum returns the number of the pinned page.
func (h *PageHandle) PageNum() int { return h.pageNum }

// PinCount returns the frame's pin count as observed when the handle was
// handed out.
func (h *PageHandle) PinCount() int { return h.pins }

// Data returns the frame's byte buffer, or nil once the handle has been
// released.
func (h *PageHandle) Data() []byte {
	if h.released {
		return nil
	}
	return h.pool.frames[h.frameIdx].data
}

// IsDirty mirrors the frame's dirty flag.
func (h *PageHandle) IsDirty() bool {
	if h.released {
		return false
	}
	return h.pool.frames[h.frameIdx].dirty
}

// MarkDirty flags the pinned page as modified.
func (h *PageHandle) MarkDirty() error {
	if h.released {
		return ErrHandleReleased
	}
	return h.pool.MarkDirty(h.pageNum)
}
