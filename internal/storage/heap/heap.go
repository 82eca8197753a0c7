// Package heap implements the in-memory table heap: an ordered sequence
// of pages that first-fit-inserts payloads and never removes a page.
//
// Per the resolved row-persistence Open Question, the heap is the sole
// authoritative store for live row bytes in this iteration; a table's
// on-disk `rows/` directory (see internal/catalog) is reserved for a
// future on-disk heap and is never read or written here.
package heap

import (
	"errors"

	"goreldb/internal/sql"
	"goreldb/internal/storage/page"
)

// ErrInvalidPage is returned when a RowID references a page index beyond
// the heap's current page count. It is a non-retriable, programming-error
// class failure: a valid RowID was handed out by this same heap instance.
var ErrInvalidPage = errors.New("heap: invalid page id")

// DefaultPageCapacity is the byte capacity each page is allocated with.
const DefaultPageCapacity = page.DefaultCapacity

// TableHeap is an ordered collection of pages for one table. It is not
// internally synchronized, and no table-level lock covers it: the
// executor Engine's lock guards only its table-to-heap map. Callers
// serialize access; internal/frontend runs one statement at a time.
type TableHeap struct {
	pages        []*page.Page
	pageCapacity int
}

// New creates an empty heap. pageCapacity <= 0 uses DefaultPageCapacity.
func New(pageCapacity int) *TableHeap {
	if pageCapacity <= 0 {
		pageCapacity = DefaultPageCapacity
	}
	return &TableHeap{pageCapacity: pageCapacity}
}

// Insert scans pages in ascending page id for first fit; on exhaustion it
// appends a new page. A payload that cannot fit on any page (RowTooLarge)
// propagates immediately without scanning further.
func (h *TableHeap) Insert(payload []byte) (sql.RowID, error) {
	for _, p := range h.pages {
		slot, err := p.Insert(payload)
		switch err {
		case nil:
			return sql.RowID{PageID: uint64(p.ID()), SlotID: slot}, nil
		case page.ErrNoSpace:
			continue
		case page.ErrRowTooLarge:
			return sql.RowID{}, err
		default:
			return sql.RowID{}, err
		}
	}
	newPage := page.New(page.ID(len(h.pages)), h.pageCapacity)
	h.pages = append(h.pages, newPage)
	slot, err := newPage.Insert(payload)
	if err != nil {
		return sql.RowID{}, err
	}
	return sql.RowID{PageID: uint64(newPage.ID()), SlotID: slot}, nil
}

// Read returns the payload at row, or (nil, false, nil) if the slot is a
// tombstone.
func (h *TableHeap) Read(row sql.RowID) ([]byte, bool, error) {
	if row.PageID >= uint64(len(h.pages)) {
		return nil, false, ErrInvalidPage
	}
	return h.pages[row.PageID].Read(row.SlotID)
}

// Delete tombstones the slot at row.
func (h *TableHeap) Delete(row sql.RowID) error {
	if row.PageID >= uint64(len(h.pages)) {
		return ErrInvalidPage
	}
	return h.pages[row.PageID].Delete(row.SlotID)
}

// ScannedRow is one (RowID, payload) pair yielded by Scan.
type ScannedRow struct {
	RowID   sql.RowID
	Payload []byte
}

// Scan iterates pages in order and, within each page, live slots in
// ascending slot id order. Scan order is deterministic and stable across
// calls absent intervening mutation.
func (h *TableHeap) Scan() ([]ScannedRow, error) {
	var out []ScannedRow
	for _, p := range h.pages {
		pid := p.ID()
		err := p.Iterate(func(slot uint16, payload []byte) error {
			out = append(out, ScannedRow{RowID: sql.RowID{PageID: uint64(pid), SlotID: slot}, Payload: payload})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PageCount reports the number of pages the heap currently owns.
func (h *TableHeap) PageCount() int { return len(h.pages) }
