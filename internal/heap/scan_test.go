package heap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minhnt/heapdb/internal/bufferpool"
	"github.com/minhnt/heapdb/internal/record"
)

var (
	alwaysTrue = EvalFunc(func(*record.Record, *record.Schema) (bool, error) {
		return true, nil
	})
	alwaysFalse = EvalFunc(func(*record.Record, *record.Schema) (bool, error) {
		return false, nil
	})
)

func TestScan_YieldsInInsertionOrder(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	for i := 1; i <= 3; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	sc := tbl.NewScan(alwaysTrue)
	for i := 1; i <= 3; i++ {
		r, err := sc.Next()
		require.NoError(t, err)
		require.Equal(t, int32(i), recID(t, r, s))
	}

	_, err := sc.Next()
	require.ErrorIs(t, err, ErrNoMoreTuples)
}

func TestScan_AlwaysFalse(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	for i := 1; i <= 3; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	sc := tbl.NewScan(alwaysFalse)
	_, err := sc.Next()
	require.ErrorIs(t, err, ErrNoMoreTuples)
}

func TestScan_EmptyTable(t *testing.T) {
	tbl, _ := newTestTable(t)

	sc := tbl.NewScan(alwaysTrue)
	_, err := sc.Next()
	require.ErrorIs(t, err, ErrNoMoreTuples)
}

func TestScan_Filters(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	for i := 1; i <= 10; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	evenID := EvalFunc(func(r *record.Record, sch *record.Schema) (bool, error) {
		v, err := r.Attr(sch, 0)
		if err != nil {
			return false, err
		}
		id, err := v.Int()
		if err != nil {
			return false, err
		}
		return id%2 == 0, nil
	})

	sc := tbl.NewScan(evenID)
	var got []int32
	for {
		r, err := sc.Next()
		if err != nil {
			require.ErrorIs(t, err, ErrNoMoreTuples)
			break
		}
		got = append(got, recID(t, r, s))
	}
	require.Equal(t, []int32{2, 4, 6, 8, 10}, got)
}

func TestScan_SkipsTombstones(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	var rids []record.RID
	for i := 1; i <= 5; i++ {
		r := makeRec(t, s, int32(i), 0)
		require.NoError(t, tbl.Insert(r))
		rids = append(rids, r.ID)
	}
	require.NoError(t, tbl.Delete(rids[1]))
	require.NoError(t, tbl.Delete(rids[3]))

	sc := tbl.NewScan(alwaysTrue)
	var got []int32
	for {
		r, err := sc.Next()
		if err != nil {
			break
		}
		got = append(got, recID(t, r, s))
	}
	require.Equal(t, []int32{1, 3, 5}, got)
}

func TestScan_IndependentPositions(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	for i := 1; i <= 4; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	sc1 := tbl.NewScan(alwaysTrue)
	sc2 := tbl.NewScan(alwaysTrue)

	r, err := sc1.Next()
	require.NoError(t, err)
	require.Equal(t, int32(1), recID(t, r, s))
	r, err = sc1.Next()
	require.NoError(t, err)
	require.Equal(t, int32(2), recID(t, r, s))

	// The second scan starts at the beginning regardless of the first.
	r, err = sc2.Next()
	require.NoError(t, err)
	require.Equal(t, int32(1), recID(t, r, s))

	r, err = sc1.Next()
	require.NoError(t, err)
	require.Equal(t, int32(3), recID(t, r, s))
}

func TestScan_AcrossDirectoryChain(t *testing.T) {
	name := filepath.Join(t.TempDir(), "wide.heap")
	opts := Options{PoolCapacity: 8, Policy: bufferpool.LRU, SlotSize: 2048}
	require.NoError(t, CreateTable(name, testSchema(), opts))

	tbl, err := OpenTable(name, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	s := tbl.Schema

	// At slot size 2048 a data page holds two records, so 1022 inserts
	// exhaust every entry of the first directory page; the rest land on
	// data pages reached through a linked directory page.
	const numRecs = 1030
	for i := 0; i < numRecs; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	n, err := tbl.NumTuples()
	require.NoError(t, err)
	require.Equal(t, numRecs, n)

	sc := tbl.NewScan(alwaysTrue)
	count := 0
	for {
		r, err := sc.Next()
		if err != nil {
			require.ErrorIs(t, err, ErrNoMoreTuples)
			break
		}
		require.Equal(t, int32(count), recID(t, r, s))
		count++
	}
	require.Equal(t, numRecs, count)
}

func TestScan_AcrossDataPages(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	const numRecs = 150 // 64 records per data page at slot size 64
	for i := 0; i < numRecs; i++ {
		require.NoError(t, tbl.Insert(makeRec(t, s, int32(i), 0)))
	}

	sc := tbl.NewScan(alwaysTrue)
	count := 0
	for {
		r, err := sc.Next()
		if err != nil {
			require.ErrorIs(t, err, ErrNoMoreTuples)
			break
		}
		require.Equal(t, int32(count), recID(t, r, s))
		count++
	}
	require.Equal(t, numRecs, count)
}
