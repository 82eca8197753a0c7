package heap

import (
	"testing"

	"goreldb/internal/sql"
)

func mustEncode(t *testing.T, row sql.Row) []byte {
	t.Helper()
	b, err := EncodeRow(row)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestHeapInsertReadDeleteScan(t *testing.T) {
	h := New(512)

	row1 := sql.NewRow(sql.Field{Column: "id", Value: sql.IntValue(1)}, sql.Field{Column: "name", Value: sql.StringValue("a")})
	row2 := sql.NewRow(sql.Field{Column: "id", Value: sql.IntValue(2)}, sql.Field{Column: "name", Value: sql.StringValue("b")})

	id1, err := h.Insert(mustEncode(t, row1))
	if err != nil {
		t.Fatalf("insert row1: %v", err)
	}
	id2, err := h.Insert(mustEncode(t, row2))
	if err != nil {
		t.Fatalf("insert row2: %v", err)
	}

	blob, live, err := h.Read(id1)
	if err != nil || !live {
		t.Fatalf("read id1: live=%v err=%v", live, err)
	}
	got, err := DecodeRow(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := got.Get("name"); v.S != "a" {
		t.Fatalf("expected name=a, got %+v", v)
	}

	if err := h.Delete(id1); err != nil {
		t.Fatalf("delete id1: %v", err)
	}
	_, live, err = h.Read(id1)
	if err != nil {
		t.Fatalf("read deleted id1: %v", err)
	}
	if live {
		t.Fatalf("expected id1 to read as absent after delete")
	}

	rows, err := h.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 1 || rows[0].RowID != id2 {
		t.Fatalf("expected scan to yield only id2, got %+v", rows)
	}
}

func TestHeapInvalidPage(t *testing.T) {
	h := New(256)
	if _, _, err := h.Read(sql.RowID{PageID: 7, SlotID: 0}); err != ErrInvalidPage {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if err := h.Delete(sql.RowID{PageID: 7, SlotID: 0}); err != ErrInvalidPage {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestHeapFirstFitAcrossPages(t *testing.T) {
	h := New(64)
	var ids []sql.RowID
	for i := 0; i < 10; i++ {
		row := sql.NewRow(sql.Field{Column: "n", Value: sql.IntValue(int64(i))})
		id, err := h.Insert(mustEncode(t, row))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if h.PageCount() < 2 {
		t.Fatalf("expected multiple pages for small page capacity, got %d", h.PageCount())
	}
	rows, err := h.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
}
