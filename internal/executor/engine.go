package executor

import (
	"sync"
	"time"

	"goreldb/internal/catalog"
	"goreldb/internal/errs"
	"goreldb/internal/index/btree"
	"goreldb/internal/log"
	"goreldb/internal/sql"
	"goreldb/internal/storage/heap"
	"goreldb/internal/wal"
)

var engineLogger = log.WithComponent("executor")

// Engine owns the catalog, the WAL, and every table's in-memory heap. Per
// spec §5, a single multi-reader/single-writer lock guards the heap map:
// DDL (creating/dropping a table entry) takes the exclusive lock, DML
// takes the shared lock to look up a heap pointer before mutating it.
type Engine struct {
	mu    sync.RWMutex
	heaps map[string]*heap.TableHeap

	cat *catalog.Catalog
	wal *wal.Manager

	walDir  string
	idxOnce sync.Once
	idx     *btree.Manager
}

// NewEngine opens the catalog and WAL under the given roots and replays
// any entries left over from an unclean shutdown into fresh heaps.
func NewEngine(fs catalog.FS, dataDir string, walDir string) (*Engine, error) {
	cat := catalog.New(fs, dataDir)
	mgr, replay, err := wal.Open(wal.Config{Directory: walDir})
	if err != nil {
		return nil, err
	}
	e := &Engine{
		heaps:  map[string]*heap.TableHeap{},
		cat:    cat,
		wal:    mgr,
		walDir: walDir,
	}
	if err := e.replay(replay); err != nil {
		return nil, err
	}
	return e, nil
}

func heapKey(db, table string) string { return db + "." + table }

func (e *Engine) replay(entries []wal.Entry) error {
	for _, entry := range entries {
		switch entry.Kind {
		case wal.EntryInsert:
			rec, err := decodeWALRecord(entry.Payload)
			if err != nil {
				return err
			}
			h := e.rawHeap(rec.Database, rec.Table)
			if _, err := h.Insert(rec.RowBytes); err != nil {
				return err
			}
		case wal.EntrySet:
			rec, err := decodeWALRecord(entry.Payload)
			if err != nil {
				return err
			}
			h := e.rawHeap(rec.Database, rec.Table)
			if err := h.Delete(rec.RowID); err != nil {
				return err
			}
			if _, err := h.Insert(rec.RowBytes); err != nil {
				return err
			}
		case wal.EntryDelete:
			rec, err := decodeWALRecord(entry.Payload)
			if err != nil {
				return err
			}
			h := e.rawHeap(rec.Database, rec.Table)
			if err := h.Delete(rec.RowID); err != nil {
				return err
			}
		case wal.EntryCheckpoint, wal.EntryTxnBegin, wal.EntryTxnCommit:
			// markers only; no heap effect.
		}
	}
	return nil
}

// rawHeap fetches or lazily creates a heap during replay, bypassing the
// catalog existence check since the table's schema may not yet have been
// loaded by the time recovery runs.
func (e *Engine) rawHeap(db, table string) *heap.TableHeap {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := heapKey(db, table)
	h, ok := e.heaps[key]
	if !ok {
		h = heap.New(0)
		e.heaps[key] = h
	}
	return h
}

// ensureHeap returns a table's heap, validating that the table is
// declared in the catalog first.
func (e *Engine) ensureHeap(db, table string) (*heap.TableHeap, error) {
	if _, err := e.cat.GetSchema(db, table); err != nil {
		return nil, err
	}
	key := heapKey(db, table)

	e.mu.RLock()
	h, ok := e.heaps[key]
	e.mu.RUnlock()
	if ok {
		return h, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.heaps[key]; ok {
		return h, nil
	}
	h = heap.New(0)
	e.heaps[key] = h
	return h, nil
}

func (e *Engine) dropHeap(db, table string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.heaps, heapKey(db, table))
}

func (e *Engine) renameHeap(db, oldTable, newTable string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	oldKey, newKey := heapKey(db, oldTable), heapKey(db, newTable)
	if h, ok := e.heaps[oldKey]; ok {
		e.heaps[newKey] = h
		delete(e.heaps, oldKey)
	}
}

// mutationOp is one staged heap mutation awaiting application, produced by
// INSERT/UPDATE/DELETE execution and either applied immediately
// (auto-commit) or buffered until COMMIT (explicit transaction).
type mutationOp struct {
	Database      string
	Table         string
	Kind          wal.EntryKind
	ExistingRowID sql.RowID
	NewRowBytes   []byte
}

// applyOps applies a batch of mutations to their heaps and appends the
// corresponding WAL entries as a single call, so the batch is durable
// together (e.g. every mutation of one transaction commits atomically
// with respect to the WAL).
func (e *Engine) applyOps(ops []mutationOp, txnCommit bool) error {
	if len(ops) == 0 {
		if txnCommit {
			return e.wal.Append([]wal.Entry{{Kind: wal.EntryTxnCommit, Timestamp: uint64(time.Now().UnixNano())}})
		}
		return nil
	}
	entries := make([]wal.Entry, 0, len(ops)+1)
	for _, op := range ops {
		h, err := e.ensureHeap(op.Database, op.Table)
		if err != nil {
			return err
		}
		rec := walRecord{Database: op.Database, Table: op.Table}
		switch op.Kind {
		case wal.EntryInsert:
			newID, err := h.Insert(op.NewRowBytes)
			if err != nil {
				return err
			}
			rec.RowBytes = op.NewRowBytes
			if newRow, derr := heap.DecodeRow(op.NewRowBytes); derr == nil {
				if ierr := e.maintainIndexesInsert(op.Database, op.Table, newRow, newID); ierr != nil {
					engineLogger.Warn().Err(ierr).Str("table", op.Table).Msg("index maintenance failed on insert")
				}
			}
		case wal.EntrySet:
			oldBytes, _, rerr := h.Read(op.ExistingRowID)
			if rerr != nil {
				return rerr
			}
			if err := h.Delete(op.ExistingRowID); err != nil {
				return err
			}
			newID, err := h.Insert(op.NewRowBytes)
			if err != nil {
				return err
			}
			rec.RowID = op.ExistingRowID
			rec.RowBytes = op.NewRowBytes
			if oldRow, derr := heap.DecodeRow(oldBytes); derr == nil {
				if ierr := e.maintainIndexesDelete(op.Database, op.Table, oldRow, op.ExistingRowID); ierr != nil {
					engineLogger.Warn().Err(ierr).Str("table", op.Table).Msg("index maintenance failed on update (old key)")
				}
			}
			if newRow, derr := heap.DecodeRow(op.NewRowBytes); derr == nil {
				if ierr := e.maintainIndexesInsert(op.Database, op.Table, newRow, newID); ierr != nil {
					engineLogger.Warn().Err(ierr).Str("table", op.Table).Msg("index maintenance failed on update (new key)")
				}
			}
		case wal.EntryDelete:
			oldBytes, _, rerr := h.Read(op.ExistingRowID)
			if rerr != nil {
				return rerr
			}
			if err := h.Delete(op.ExistingRowID); err != nil {
				return err
			}
			rec.RowID = op.ExistingRowID
			if oldRow, derr := heap.DecodeRow(oldBytes); derr == nil {
				if ierr := e.maintainIndexesDelete(op.Database, op.Table, oldRow, op.ExistingRowID); ierr != nil {
					engineLogger.Warn().Err(ierr).Str("table", op.Table).Msg("index maintenance failed on delete")
				}
			}
		default:
			return errs.NewExecuteError("unsupported mutation kind", nil)
		}
		payload, err := encodeWALRecord(rec)
		if err != nil {
			return err
		}
		entries = append(entries, wal.Entry{Kind: op.Kind, Payload: payload, Timestamp: uint64(time.Now().UnixNano())})
	}
	if txnCommit {
		entries = append(entries, wal.Entry{Kind: wal.EntryTxnCommit, Timestamp: uint64(time.Now().UnixNano())})
	}
	return e.wal.Append(entries)
}

// scanTable returns every live row currently stored for (db, table),
// decoded from its heap payload.
func (e *Engine) scanTable(db, table string) ([]heap.ScannedRow, error) {
	h, err := e.ensureHeap(db, table)
	if err != nil {
		return nil, err
	}
	return h.Scan()
}
