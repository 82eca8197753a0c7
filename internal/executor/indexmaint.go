package executor

import (
	"os"
	"path/filepath"

	"goreldb/internal/index/btree"
	"goreldb/internal/sql"
	"goreldb/internal/storage/heap"
)

// indexManager lazily opens the B-tree index manager rooted under the
// engine's WAL directory, sibling to the log segments. Indexes live on
// real disk files regardless of which catalog.FS backs the metadata
// store, the same way the WAL always does.
func (e *Engine) indexManager() *btree.Manager {
	e.idxOnce.Do(func() {
		dir := filepath.Join(e.walDir, "indexes")
		_ = os.MkdirAll(dir, 0o755)
		e.idx = btree.NewManager(dir)
	})
	return e.idx
}

// maintainIndexesInsert updates every single-column secondary index
// declared on (db, table) after a row with the given RowID was inserted.
// Only integer-valued columns are indexable, matching the B-tree's
// int64 key type; any other index is left metadata-only, per the
// resolved secondary-index Open Question.
func (e *Engine) maintainIndexesInsert(db, table string, row sql.Row, rid sql.RowID) error {
	metas, err := e.cat.GetIndexes(db, table)
	if err != nil || len(metas) == 0 {
		return nil
	}
	for _, meta := range metas {
		if len(meta.Columns) != 1 {
			continue
		}
		key, ok := intColumnValue(row, meta.Columns[0])
		if !ok {
			continue
		}
		idx, err := e.indexManager().OpenOrCreateIndex(sql.QualifiedName{Database: db, Table: table}, meta.Columns[0])
		if err != nil {
			return err
		}
		if err := idx.Insert(key, rid); err != nil {
			return err
		}
	}
	return nil
}

// maintainIndexesDelete removes the (key, rid) mapping for a row about to
// be tombstoned, for every indexable column.
func (e *Engine) maintainIndexesDelete(db, table string, row sql.Row, rid sql.RowID) error {
	metas, err := e.cat.GetIndexes(db, table)
	if err != nil || len(metas) == 0 {
		return nil
	}
	for _, meta := range metas {
		if len(meta.Columns) != 1 {
			continue
		}
		key, ok := intColumnValue(row, meta.Columns[0])
		if !ok {
			continue
		}
		idx, err := e.indexManager().OpenOrCreateIndex(sql.QualifiedName{Database: db, Table: table}, meta.Columns[0])
		if err != nil {
			return err
		}
		if err := idx.Delete(key, rid); err != nil {
			return err
		}
	}
	return nil
}

// backfillIndex populates a freshly declared index from every row already
// present in the table, so CREATE INDEX on a non-empty table leaves the
// B-tree consistent with the heap from the moment it is declared. It
// indexes only column, not every declared index on the table, since
// older indexes already hold entries for these rows from their own
// insert-time maintenance.
func (e *Engine) backfillIndex(db, table, column string) error {
	scanned, err := e.scanTable(db, table)
	if err != nil {
		return err
	}
	idx, err := e.indexManager().OpenOrCreateIndex(sql.QualifiedName{Database: db, Table: table}, column)
	if err != nil {
		return err
	}
	for _, sc := range scanned {
		row, err := heap.DecodeRow(sc.Payload)
		if err != nil {
			return err
		}
		key, ok := intColumnValue(row, column)
		if !ok {
			continue
		}
		if err := idx.Insert(key, sc.RowID); err != nil {
			return err
		}
	}
	return nil
}

func intColumnValue(row sql.Row, column string) (int64, bool) {
	v, ok := row.Get(column)
	if !ok || v.Kind != sql.ValInt {
		return 0, false
	}
	return v.I, true
}
