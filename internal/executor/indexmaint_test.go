package executor

import (
	"testing"

	"goreldb/internal/sql"
)

func TestCreateIndexBackfillsAndStaysLive(t *testing.T) {
	s := newTestSession(t)
	exec(t, s, "CREATE DATABASE demo")
	exec(t, s, "USE demo")
	exec(t, s, "CREATE TABLE t (id INT, val INT)")
	exec(t, s, "INSERT INTO t (id, val) VALUES (1, 10), (2, 20)")
	exec(t, s, "CREATE INDEX idx_id ON t (id)")

	idx, err := s.Engine.indexManager().OpenOrCreateIndex(sql.QualifiedName{Database: "demo", Table: "t"}, "id")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	rids, err := idx.Search(1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rids) != 1 {
		t.Fatalf("expected backfilled entry for id=1, got %d", len(rids))
	}

	exec(t, s, "INSERT INTO t (id, val) VALUES (3, 30)")
	rids, err = idx.Search(3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rids) != 1 {
		t.Fatalf("expected live-maintained entry for id=3, got %d", len(rids))
	}

	exec(t, s, "DELETE FROM t WHERE id = 1")
	rids, err = idx.Search(1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rids) != 0 {
		t.Fatalf("expected deleted entry for id=1 to be removed, got %d", len(rids))
	}

	exec(t, s, "UPDATE t SET id = 9 WHERE id = 2")
	oldRids, err := idx.Search(2)
	if err != nil {
		t.Fatalf("search old key: %v", err)
	}
	if len(oldRids) != 0 {
		t.Fatalf("expected old key 2 removed after update, got %d", len(oldRids))
	}
	newRids, err := idx.Search(9)
	if err != nil {
		t.Fatalf("search new key: %v", err)
	}
	if len(newRids) != 1 {
		t.Fatalf("expected new key 9 present after update, got %d", len(newRids))
	}
}
