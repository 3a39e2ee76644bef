package wal

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

func TestFileWALAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}

	p1 := domain.NewPoint("eco2mix").Field("nuclear", domain.Integer(38000))
	p2 := domain.NewPoint("ecowatt_signal").Field("value", domain.Integer(1))

	id1, err := w.Append(p1)
	if err != nil || id1 == 0 {
		t.Fatalf("append point 1: %v id=%d", err, id1)
	}
	id2, err := w.Append(p2)
	if err != nil || id2 == 0 {
		t.Fatalf("append point 2: %v id=%d", err, id2)
	}

	var iterated []string
	if err := w.Iterate(1, func(id ports.WALEntryID, p *domain.Point) error {
		iterated = append(iterated, p.Name)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(iterated) != 2 {
		t.Fatalf("expected 2 points, got %d", len(iterated))
	}
	if iterated[0] != "eco2mix" || iterated[1] != "ecowatt_signal" {
		t.Fatalf("unexpected iteration order: %v", iterated)
	}

	if err := w.Commit(id2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := w.file.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	// Reopen and ensure committed metadata was persisted.
	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w2.file.Close()

	stats := w2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id2+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id2+1, stats.OldestUncommitted)
	}
}

func TestFileWALIterateFromOffset(t *testing.T) {
	w, err := NewFileWAL(t.TempDir())
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.file.Close()

	for i := 0; i < 3; i++ {
		if _, err := w.Append(domain.NewPoint("eco2mix")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var ids []ports.WALEntryID
	if err := w.Iterate(2, func(id ports.WALEntryID, p *domain.Point) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestFileWALTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	if _, err := w.Append(domain.NewPoint("eco2mix")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.writer.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := w.file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// simulate a crash mid-write
	path := filepath.Join(dir, "wal.log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open for garbage: %v", err)
	}
	if _, err := f.Write([]byte{0xFF, 0xAA}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen after torn write: %v", err)
	}
	defer w2.file.Close()

	stats := w2.Stats()
	if stats.LatestAppended != 1 {
		t.Fatalf("expected the intact record to survive, latest=%d", stats.LatestAppended)
	}

	var count int
	if err := w2.Iterate(1, func(ports.WALEntryID, *domain.Point) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("iterate after recovery: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recovered point, got %d", count)
	}
}

func TestFileWALTruncatesTornBody(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	if _, err := w.Append(domain.NewPoint("eco2mix")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// simulate a crash after the header landed but the body did not
	path := filepath.Join(dir, "wal.log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open for torn record: %v", err)
	}
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], 2)
	binary.BigEndian.PutUint32(hdr[8:12], 100)
	if _, err := f.Write(hdr[:]); err != nil {
		t.Fatalf("write torn header: %v", err)
	}
	if _, err := f.Write([]byte(`{"name":"ec`)); err != nil {
		t.Fatalf("write torn body: %v", err)
	}
	f.Close()

	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen after torn body: %v", err)
	}
	defer w2.file.Close()

	stats := w2.Stats()
	if stats.LatestAppended != 1 {
		t.Fatalf("expected the intact record to survive, latest=%d", stats.LatestAppended)
	}

	var count int
	if err := w2.Iterate(1, func(ports.WALEntryID, *domain.Point) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("iterate after recovery: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recovered point, got %d", count)
	}

	// the dangling header is gone, so new appends extend a clean log
	id, err := w2.Append(domain.NewPoint("eco2mix"))
	if err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected id 2 after recovery, got %d", id)
	}
}

func TestFileWALTruncateCommitted(t *testing.T) {
	w, err := NewFileWAL(t.TempDir())
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.file.Close()

	id1, err := w.Append(domain.NewPoint("eco2mix"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, err := w.Append(domain.NewPoint("eco2mix"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// nothing to reclaim while entries are uncommitted
	if err := w.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if w.Stats().SizeBytes == 0 {
		t.Fatalf("expected log to be kept while uncommitted entries remain")
	}

	if err := w.Commit(id2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if got := w.Stats().SizeBytes; got != 0 {
		t.Fatalf("expected empty log after full truncate, got %d bytes", got)
	}

	// ids keep increasing after truncation
	id3, err := w.Append(domain.NewPoint("eco2mix"))
	if err != nil {
		t.Fatalf("append after truncate: %v", err)
	}
	if id3 != id2+1 {
		t.Fatalf("expected id %d after truncate, got %d", id2+1, id3)
	}
}
