package wal

import (
	"testing"
)

func TestWALCleanShutdownRecoversEmpty(t *testing.T) {
	dir := t.TempDir()

	m1, replay, err := Open(Config{Directory: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(replay) != 0 {
		t.Fatalf("expected empty replay on fresh dir, got %d", len(replay))
	}
	if err := m1.Append([]Entry{{Kind: EntryInsert, Payload: []byte("r1")}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m1.Checkpoint(); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	seqAfterCheckpoint := m1.CurrentSequence()
	if err := m1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	m2, replay2, err := Open(Config{Directory: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(replay2) != 0 {
		t.Fatalf("expected empty replay after clean checkpoint, got %d entries", len(replay2))
	}
	if m2.CurrentSequence() <= seqAfterCheckpoint-1 {
		t.Fatalf("expected sequence to advance past checkpointed segment")
	}
}

func TestWALUncleanShutdownReplaysEntries(t *testing.T) {
	dir := t.TempDir()

	m1, _, err := Open(Config{Directory: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m1.Append([]Entry{{Kind: EntryInsert, Payload: []byte("r1")}}); err != nil {
		t.Fatalf("append r1: %v", err)
	}
	if err := m1.Append([]Entry{{Kind: EntryInsert, Payload: []byte("r2")}}); err != nil {
		t.Fatalf("append r2: %v", err)
	}
	// Force pending bytes to disk without a checkpoint, then simulate a
	// crash by never calling Checkpoint/Close.
	if err := m1.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	m2, replay, err := Open(Config{Directory: dir})
	if err != nil {
		t.Fatalf("reopen after unclean shutdown: %v", err)
	}
	if len(replay) != 2 {
		t.Fatalf("expected 2 replayed entries, got %d: %+v", len(replay), replay)
	}
	if replay[0].Kind != EntryInsert || string(replay[0].Payload) != "r1" {
		t.Fatalf("unexpected first replay entry: %+v", replay[0])
	}
	if replay[1].Kind != EntryInsert || string(replay[1].Payload) != "r2" {
		t.Fatalf("unexpected second replay entry: %+v", replay[1])
	}
	_ = m2
}

func TestWALRecoverEmptyDirStartsAtSequenceOne(t *testing.T) {
	nextSeq, replay, reuse, err := recoverDir(t.TempDir(), DefaultExtension)
	if err != nil {
		t.Fatalf("recoverDir on empty dir: %v", err)
	}
	if nextSeq != 1 || len(replay) != 0 || reuse {
		t.Fatalf("expected (1, nil, false) on empty dir, got (%d, %v, %v)", nextSeq, replay, reuse)
	}
}
