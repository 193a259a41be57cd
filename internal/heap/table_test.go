package heap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minhnt/heapdb/internal/bufferpool"
	"github.com/minhnt/heapdb/internal/record"
)

func testSchema() *record.Schema {
	return &record.Schema{
		Attrs: []record.Attribute{
			{Name: "id", Type: record.TypeInt},
			{Name: "amount", Type: record.TypeFloat},
		},
		Keys: []int{0},
	}
}

// newTestTable creates and opens a heap file with slot size 64 and a
// small LRU pool. It returns the table and its path for reopen tests.
func newTestTable(t *testing.T) (*Table, string) {
	t.Helper()

	name := filepath.Join(t.TempDir(), "accounts.heap")
	opts := Options{PoolCapacity: 8, Policy: bufferpool.LRU, SlotSize: 64}
	require.NoError(t, CreateTable(name, testSchema(), opts))

	tbl, err := OpenTable(name, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })

	return tbl, name
}

// makeRec builds an (id, amount) record.
func makeRec(t *testing.T, s *record.Schema, id int32, amount float64) *record.Record {
	t.Helper()

	r := record.NewRecord(s)
	require.NoError(t, r.SetAttr(s, 0, record.IntValue(id)))
	require.NoError(t, r.SetAttr(s, 1, record.FloatValue(amount)))
	return r
}

func recID(t *testing.T, r *record.Record, s *record.Schema) int32 {
	t.Helper()

	v, err := r.Attr(s, 0)
	require.NoError(t, err)
	id, err := v.Int()
	require.NoError(t, err)
	return id
}

func TestCreateOpen_HeaderAndSchema(t *testing.T) {
	tbl, _ := newTestTable(t)

	require.Equal(t, testSchema(), tbl.Schema)
	require.Equal(t, 64, tbl.SlotSize())

	n, err := tbl.NumTuples()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCreateTable_BadSlotSize(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.heap")
	err := CreateTable(name, testSchema(), Options{SlotSize: 100})
	require.ErrorIs(t, err, ErrBadSlotSize)
}

func TestInsertGet(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	recs := make([]*record.Record, 3)
	for i := range recs {
		recs[i] = makeRec(t, s, int32(i+1), float64(i)*1.5)
		require.NoError(t, tbl.Insert(recs[i]))
	}

	n, err := tbl.NumTuples()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Records land on the same data page in slot order.
	require.Equal(t, recs[0].ID.Page, recs[1].ID.Page)
	require.Equal(t, 0, recs[0].ID.Slot)
	require.Equal(t, 1, recs[1].ID.Slot)
	require.Equal(t, 2, recs[2].ID.Slot)

	got, err := tbl.Get(recs[1].ID)
	require.NoError(t, err)
	require.Equal(t, recs[1].Data, got.Data)
	require.Equal(t, recs[1].ID, got.ID)
}

func TestUpdate_KeepsLiveness(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	r := makeRec(t, s, 1, 10.0)
	require.NoError(t, tbl.Insert(r))

	require.NoError(t, r.SetAttr(s, 1, record.FloatValue(99.5)))
	require.NoError(t, tbl.Update(r))

	got, err := tbl.Get(r.ID)
	require.NoError(t, err)
	v, err := got.Attr(s, 1)
	require.NoError(t, err)
	f, err := v.Float()
	require.NoError(t, err)
	require.Equal(t, 99.5, f)
}

func TestDelete_TombstonesAndCounts(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	const numRecs = 5
	var rid2 record.RID
	for i := 1; i <= numRecs; i++ {
		r := makeRec(t, s, int32(i), 0)
		require.NoError(t, tbl.Insert(r))
		if i == 2 {
			rid2 = r.ID
		}
	}

	require.NoError(t, tbl.Delete(rid2))

	n, err := tbl.NumTuples()
	require.NoError(t, err)
	require.Equal(t, numRecs-1, n)

	_, err = tbl.Get(rid2)
	require.ErrorIs(t, err, ErrRecordNotFound)

	// Deleting the tombstone again is refused and the counter holds.
	require.ErrorIs(t, tbl.Delete(rid2), ErrRecordNotFound)
	n, err = tbl.NumTuples()
	require.NoError(t, err)
	require.Equal(t, numRecs-1, n)
}

func TestInsert_SpansDataPages(t *testing.T) {
	tbl, _ := newTestTable(t)
	s := tbl.Schema

	// Slot size 64 and one slot per record: 64 records fill a data page.
	const numRecs = 150
	pages := make(map[int]bool)
	for i := 0; i < numRecs; i++ {
		r := makeRec(t, s, int32(i), 0)
		require.NoError(t, tbl.Insert(r))
		pages[r.ID.Page] = true
	}
	require.Len(t, pages, 3)

	n, err := tbl.NumTuples()
	require.NoError(t, err)
	require.Equal(t, numRecs, n)
}

func TestTable_PersistsAcrossReopen(t *testing.T) {
	tbl, name := newTestTable(t)
	s := tbl.Schema

	r := makeRec(t, s, 7, 1.25)
	require.NoError(t, tbl.Insert(r))
	rid := r.ID
	require.NoError(t, tbl.Close())

	tbl2, err := OpenTable(name, Options{PoolCapacity: 4, Policy: bufferpool.FIFO})
	require.NoError(t, err)
	defer tbl2.Close()

	require.Equal(t, testSchema(), tbl2.Schema)

	n, err := tbl2.NumTuples()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := tbl2.Get(rid)
	require.NoError(t, err)
	require.Equal(t, int32(7), recID(t, got, tbl2.Schema))
}

func TestDeleteTable(t *testing.T) {
	tbl, name := newTestTable(t)
	require.NoError(t, tbl.Close())
	require.NoError(t, DeleteTable(name))

	_, err := OpenTable(name, Options{})
	require.Error(t, err)
}
