package bufferpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/minhnt/heapdb/internal/storage"
)

var (
	DefaultCapacity = 128

	ErrPoolExhausted   = errors.New("bufferpool: no evictable frame (all pinned)")
	ErrPoolBusy        = errors.New("bufferpool: pinned pages remain")
	ErrPoolClosed      = errors.New("bufferpool: pool is shut down")
	ErrPageNotResident = errors.New("bufferpool: page not resident")
	ErrZeroPin         = errors.New("bufferpool: unpin on page with zero pin count")
	ErrUnknownPolicy   = errors.New("bufferpool: unknown replacement policy")
)

// Policy selects the page replacement strategy. FIFO and LRU share one
// victim rule (unpinned frame with the smallest stamp, ties to the lowest
// frame index); they differ only in when a frame's stamp is refreshed.
type Policy int

const (
	FIFO Policy = iota
	LRU
)

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "fifo"
	case LRU:
		return "lru"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config string onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fifo", "FIFO":
		return FIFO, nil
	case "lru", "LRU":
		return LRU, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// NoPage marks an empty frame in FrameContents snapshots.
const NoPage = -1

// clockHighWater bounds the logical clock; past it every stamp and the
// clock are rebased down by the current minimum stamp. Relative order is
// preserved, so the rebase is invisible to the replacement policy.
const clockHighWater = 1 << 30

type frame struct {
	pageNum int // NoPage when empty
	data    []byte
	dirty   bool
	pins    int
	stamp   uint64
}

// Pool caches pages of one page file in a fixed set of frames.
// Capacity is set at construction and never changes; frame buffers are
// allocated once and reused until Shutdown.
type Pool struct {
	pf     *storage.PageFile
	policy Policy
	log    *logrus.Entry

	mu        sync.Mutex
	frames    []frame
	pageTable map[int]int // page number -> frame index
	clock     uint64
	readIO    int
	writeIO   int
	closed    bool
}

func NewPool(pf *storage.PageFile, capacity int, policy Policy) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	frames := make([]frame, capacity)
	for i := range frames {
		frames[i].pageNum = NoPage
		frames[i].data = make([]byte, storage.PageSize)
	}
	return &Pool{
		pf:     pf,
		policy: policy,
		log: logrus.WithFields(logrus.Fields{
			"component": "bufferpool",
			"file":      pf.Name(),
			"policy":    policy.String(),
		}),
		frames:    frames,
		pageTable: make(map[int]int, capacity),
	}
}

// Pin makes pageNum resident, increments its pin count and returns a
// handle whose buffer view stays valid until the handle is unpinned.
// Fails with ErrPoolExhausted when the page is absent and every frame is
// pinned.
func (p *Pool) Pin(pageNum int) (*PageHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	// Hit: bump the pin count; only LRU refreshes the stamp on re-access.
	if idx, ok := p.pageTable[pageNum]; ok {
		f := &p.frames[idx]
		f.pins++
		if p.policy == LRU {
			f.stamp = p.nextStamp()
		}
		return &PageHandle{pool: p, pageNum: pageNum, frameIdx: idx, pins: f.pins}, nil
	}

	idx := p.freeFrame()
	if idx < 0 {
		var err error
		idx, err = p.evict()
		if err != nil {
			return nil, err
		}
	}

	f := &p.frames[idx]
	if err := p.pf.ReadBlock(pageNum, f.data); err != nil {
		f.pageNum = NoPage
		return nil, err
	}
	p.readIO++

	f.pageNum = pageNum
	f.dirty = false
	f.pins = 1
	f.stamp = p.nextStamp()
	p.pageTable[pageNum] = idx

	return &PageHandle{pool: p, pageNum: pageNum, frameIdx: idx, pins: 1}, nil
}

// Unpin releases one pin held through h and invalidates the handle.
// Unpinning an already released handle, a non-resident page or a page at
// zero pin count is a caller error.
func (p *Pool) Unpin(h *PageHandle) error {
	if h == nil || h.released {
		return ErrHandleReleased
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[h.pageNum]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotResident, h.pageNum)
	}
	f := &p.frames[idx]
	if f.pins == 0 {
		return fmt.Errorf("%w: page %d", ErrZeroPin, h.pageNum)
	}
	f.pins--
	h.released = true
	return nil
}

// MarkDirty flags the resident frame for pageNum as modified.
func (p *Pool) MarkDirty(pageNum int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pageNum]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotResident, pageNum)
	}
	p.frames[idx].dirty = true
	return nil
}

// ForcePage writes the frame's current bytes back to the page file
// unconditionally and clears the dirty flag.
func (p *Pool) ForcePage(pageNum int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pageNum]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotResident, pageNum)
	}
	return p.writeBack(&p.frames[idx])
}

// ForceFlushPool forces every dirty frame whose pin count is zero.
// Dirty frames still pinned are left for a later flush; flushing never
// strands a pin.
func (p *Pool) ForceFlushPool() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushUnpinned()
}

// Shutdown flushes the pool and releases all frame buffers. It fails with
// ErrPoolBusy while any page is pinned, and a failed flush aborts the
// shutdown leaving the pool intact so the caller can retry.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	for i := range p.frames {
		if p.frames[i].pins > 0 {
			p.log.WithField("page", p.frames[i].pageNum).Warn("shutdown with pinned page")
			return fmt.Errorf("%w: page %d", ErrPoolBusy, p.frames[i].pageNum)
		}
	}
	if err := p.flushUnpinned(); err != nil {
		return err
	}

	for i := range p.frames {
		p.frames[i].pageNum = NoPage
		p.frames[i].data = nil
	}
	p.pageTable = nil
	p.closed = true
	return nil
}

// ---- internals (pool mutex held) ----

func (p *Pool) nextStamp() uint64 {
	s := p.clock
	p.clock++
	if p.clock > clockHighWater {
		s -= p.rebase(s)
	}
	return s
}

// rebase shifts every stamp, the pending stamp and the clock down by the
// minimum outstanding stamp so the clock stays bounded without disturbing
// relative order. The pending stamp must shift with the rest: handing it
// out un-rebased would rank its frame above everything stamped later.
func (p *Pool) rebase(pending uint64) uint64 {
	min := pending
	for i := range p.frames {
		if p.frames[i].pageNum != NoPage && p.frames[i].stamp < min {
			min = p.frames[i].stamp
		}
	}
	for i := range p.frames {
		if p.frames[i].pageNum != NoPage {
			p.frames[i].stamp -= min
		}
	}
	p.clock -= min
	return min
}

func (p *Pool) freeFrame() int {
	for i := range p.frames {
		if p.frames[i].pageNum == NoPage {
			return i
		}
	}
	return -1
}

// evict picks the unpinned frame with the smallest stamp (lowest index on
// ties), writes it back when dirty and returns its index with the frame
// detached from the page table.
func (p *Pool) evict() (int, error) {
	victim := -1
	for i := range p.frames {
		f := &p.frames[i]
		if f.pageNum == NoPage || f.pins > 0 {
			continue
		}
		if victim < 0 || f.stamp < p.frames[victim].stamp {
			victim = i
		}
	}
	if victim < 0 {
		return 0, ErrPoolExhausted
	}

	f := &p.frames[victim]
	if f.dirty {
		p.log.WithField("page", f.pageNum).Debug("evicting dirty page")
		if err := p.writeBack(f); err != nil {
			return 0, err
		}
	}
	delete(p.pageTable, f.pageNum)
	f.pageNum = NoPage
	return victim, nil
}

func (p *Pool) writeBack(f *frame) error {
	if err := p.pf.WriteBlock(f.pageNum, f.data); err != nil {
		return err
	}
	p.writeIO++
	f.dirty = false
	return nil
}

func (p *Pool) flushUnpinned() error {
	for i := range p.frames {
		f := &p.frames[i]
		if f.pageNum == NoPage || !f.dirty || f.pins > 0 {
			continue
		}
		if err := p.writeBack(f); err != nil {
			return err
		}
	}
	return nil
}
