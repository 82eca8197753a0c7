package btree

import (
	"fmt"

	"goreldb/internal/sql"
)

// Key is the indexed value type. Only integer-valued columns are
// indexable today; see Engine.maintainIndexesInsert for the column-type
// restriction this implies at the call site.
type Key = int64

// Meta identifies the table/column a B-tree indexes, qualified by
// database so two databases with identically named tables never share
// an index file.
type Meta struct {
	Table  sql.QualifiedName
	Column string
}

// Index describes the operations a B-tree secondary index supports. RIDs
// are heap sql.RowID values directly: the index never needs its own
// locator type, since it points straight at the same (page, slot)
// coordinates the heap and WAL already use.
type Index interface {
	// Insert adds a mapping key -> rid.
	Insert(key Key, rid sql.RowID) error

	// Delete removes a specific mapping key -> rid. If rid doesn't exist
	// for that key, it's a no-op.
	Delete(key Key, rid sql.RowID) error

	// DeleteKey removes all RowIDs for a given key.
	DeleteKey(key Key) error

	// Search returns all RowIDs for a key.
	Search(key Key) ([]sql.RowID, error)

	// Close flushes and closes the index file.
	Close() error
}

// ErrNotFound is returned when a key is not present in the index.
var ErrNotFound = fmt.Errorf("btree: key not found")
