package bufferpool

// Statistics accessors. All return point-in-time snapshots, never live
// views into pool state.

// FrameContents returns the page number held by each frame, NoPage for
// empty frames.
func (p *Pool) FrameContents() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i := range p.frames {
		out[i] = p.frames[i].pageNum
	}
	return out
}

// DirtyFlags returns each frame's dirty flag.
func (p *Pool) DirtyFlags() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]bool, len(p.frames))
	for i := range p.frames {
		out[i] = p.frames[i].dirty
	}
	return out
}

// PinCounts returns each frame's pin count.
func (p *Pool) PinCounts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i := range p.frames {
		out[i] = p.frames[i].pins
	}
	return out
}

// NumReadIO returns the cumulative count of page reads from the file.
func (p *Pool) NumReadIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readIO
}

// NumWriteIO returns the cumulative count of page writes to the file.
func (p *Pool) NumWriteIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeIO
}
