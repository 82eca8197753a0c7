package btree

import (
	"path/filepath"
	"strings"
	"sync"

	"goreldb/internal/sql"
)

// Manager owns every open B-tree index file under a directory, usually
// a subdirectory of the engine's WAL directory (see Engine.indexManager).
type Manager struct {
	dir  string
	mu   sync.Mutex
	open map[string]Index // key: indexKey(table, col)
}

// NewManager creates a new index manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:  dir,
		open: make(map[string]Index),
	}
}

// indexFileName maps a qualified table and column onto a single on-disk
// file name. The database is part of the name, not just the in-memory
// cache key, so two databases with a same-named table never collide on
// the same index file on disk.
func indexFileName(table sql.QualifiedName, col string) string {
	db := table.Database
	if db == "" {
		db = "_"
	}
	return strings.Join([]string{db, table.Table, col}, "_") + ".idx"
}

func indexKey(table sql.QualifiedName, col string) string {
	return table.String() + "." + col
}

// OpenOrCreateIndex returns an Index for (table, col), creating the
// B-tree file if needed.
func (m *Manager) OpenOrCreateIndex(table sql.QualifiedName, col string) (Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := indexKey(table, col)
	if idx, ok := m.open[k]; ok {
		return idx, nil
	}

	path := filepath.Join(m.dir, indexFileName(table, col))
	idx, err := OpenFileIndex(path, Meta{Table: table, Column: col})
	if err != nil {
		return nil, err
	}

	m.open[k] = idx
	return idx, nil
}

// CloseAll closes every open index.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for k, idx := range m.open {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.open, k)
	}
	return firstErr
}
