package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestFile creates a fresh page file in a temp dir and opens it.
func newTestFile(t *testing.T) *PageFile {
	t.Helper()

	name := filepath.Join(t.TempDir(), "test.heap")
	require.NoError(t, Create(name))

	pf, err := Open(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	return pf
}

func TestCreateOpen_OnePage(t *testing.T) {
	pf := newTestFile(t)
	require.Equal(t, 1, pf.PageCount())

	// The first page is zero-filled.
	buf := make([]byte, PageSize)
	require.NoError(t, pf.ReadBlock(0, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.heap"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestReadWriteBlock_RoundTrip(t *testing.T) {
	pf := newTestFile(t)

	src := make([]byte, PageSize)
	for i := range src {
		src[i] = byte(i % 251)
	}
	require.NoError(t, pf.WriteBlock(0, src))

	dst := make([]byte, PageSize)
	require.NoError(t, pf.ReadBlock(0, dst))
	require.Equal(t, src, dst)
}

func TestReadWriteBlock_OutOfRange(t *testing.T) {
	pf := newTestFile(t)
	buf := make([]byte, PageSize)

	require.ErrorIs(t, pf.ReadBlock(1, buf), ErrPageOutOfRange)
	require.ErrorIs(t, pf.ReadBlock(-1, buf), ErrPageOutOfRange)
	require.ErrorIs(t, pf.WriteBlock(1, buf), ErrPageOutOfRange)
}

func TestAppendEmptyBlock(t *testing.T) {
	pf := newTestFile(t)

	n, err := pf.AppendEmptyBlock()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 2, pf.PageCount())

	buf := make([]byte, PageSize)
	require.NoError(t, pf.ReadBlock(1, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestEnsureCapacity(t *testing.T) {
	pf := newTestFile(t)

	require.NoError(t, pf.EnsureCapacity(5))
	require.Equal(t, 5, pf.PageCount())

	// Already large enough: no-op.
	require.NoError(t, pf.EnsureCapacity(3))
	require.Equal(t, 5, pf.PageCount())
}

func TestDestroy(t *testing.T) {
	name := filepath.Join(t.TempDir(), "gone.heap")
	require.NoError(t, Create(name))
	require.NoError(t, Destroy(name))

	_, err := Open(name)
	require.ErrorIs(t, err, ErrFileNotFound)
	require.ErrorIs(t, Destroy(name), ErrFileNotFound)
}

func TestClosedFile(t *testing.T) {
	pf := newTestFile(t)
	require.NoError(t, pf.Close())

	buf := make([]byte, PageSize)
	require.ErrorIs(t, pf.ReadBlock(0, buf), ErrFileClosed)
	require.ErrorIs(t, pf.WriteBlock(0, buf), ErrFileClosed)
}
