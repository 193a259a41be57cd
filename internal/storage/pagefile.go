package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// PageSize is the fixed size of every block in a page file.
const PageSize = 4096

var (
	ErrFileNotFound   = errors.New("storage: page file not found")
	ErrPageOutOfRange = errors.New("storage: page number out of range")
	ErrFileClosed     = errors.New("storage: page file is closed")
)

// PageFile is a durable array of fixed-size blocks backed by a single file.
// Block i lives at byte offset i*PageSize. The zero page written by Create
// makes a fresh file one page long.
type PageFile struct {
	name string

	mu        sync.Mutex
	file      *os.File
	pageCount int
}

// Create makes a new page file containing a single zero-filled page.
// An existing file with the same name is truncated.
func Create(name string) error {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create page file: %w", err)
	}
	zero := make([]byte, PageSize)
	if _, err := f.WriteAt(zero, 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("write first page: %w", err)
	}
	return f.Close()
}

// Open opens an existing page file. The page count is derived from the
// file size; a trailing partial page is not counted.
func Open(name string) (*PageFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("open page file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat page file: %w", err)
	}

	return &PageFile{
		name:      name,
		file:      f,
		pageCount: int(info.Size() / PageSize),
	}, nil
}

// Destroy removes the page file from disk.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return fmt.Errorf("destroy page file: %w", err)
	}
	return nil
}

func (pf *PageFile) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return ErrFileClosed
	}
	err := pf.file.Close()
	pf.file = nil
	return err
}

func (pf *PageFile) Name() string { return pf.name }

func (pf *PageFile) PageCount() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.pageCount
}

// ReadBlock reads exactly PageSize bytes of block i into dst.
func (pf *PageFile) ReadBlock(i int, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("storage: dst must be exactly %d bytes", PageSize)
	}

	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return ErrFileClosed
	}
	if i < 0 || i >= pf.pageCount {
		return fmt.Errorf("%w: read block %d of %d", ErrPageOutOfRange, i, pf.pageCount)
	}

	if _, err := pf.file.ReadAt(dst, int64(i)*PageSize); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("storage: short read on block %d: %w", i, err)
		}
		return fmt.Errorf("storage: read block %d: %w", i, err)
	}
	return nil
}

// WriteBlock writes exactly PageSize bytes of src to block i.
func (pf *PageFile) WriteBlock(i int, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("storage: src must be exactly %d bytes", PageSize)
	}

	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return ErrFileClosed
	}
	if i < 0 || i >= pf.pageCount {
		return fmt.Errorf("%w: write block %d of %d", ErrPageOutOfRange, i, pf.pageCount)
	}

	n, err := pf.file.WriteAt(src, int64(i)*PageSize)
	if err != nil {
		return fmt.Errorf("storage: write block %d: %w", i, err)
	}
	if n != PageSize {
		return fmt.Errorf("storage: write block %d: %w", i, io.ErrShortWrite)
	}
	return nil
}

// AppendEmptyBlock grows the file by one zero-filled page and returns the
// new page's number.
func (pf *PageFile) AppendEmptyBlock() (int, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return 0, ErrFileClosed
	}

	zero := make([]byte, PageSize)
	n := pf.pageCount
	if _, err := pf.file.WriteAt(zero, int64(n)*PageSize); err != nil {
		return 0, fmt.Errorf("storage: append block: %w", err)
	}
	pf.pageCount = n + 1
	return n, nil
}

// EnsureCapacity grows the file with zero-filled pages until it holds at
// least n pages. A file already large enough is left untouched.
func (pf *PageFile) EnsureCapacity(n int) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return ErrFileClosed
	}

	zero := make([]byte, PageSize)
	for pf.pageCount < n {
		if _, err := pf.file.WriteAt(zero, int64(pf.pageCount)*PageSize); err != nil {
			return fmt.Errorf("storage: ensure capacity: %w", err)
		}
		pf.pageCount++
	}
	return nil
}
