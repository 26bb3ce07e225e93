package bsbidx

import (
	"path/filepath"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHUNK (PARTIAL RUN) TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestChunkWriter_FlushSortsAndClears(t *testing.T) {
	dir := t.TempDir()
	w := NewChunkWriter()
	w.Add(PartialPosting{TermID: 2, DocID: 1, Freq: 1})
	w.Add(PartialPosting{TermID: 1, DocID: 5, Freq: 2})
	w.Add(PartialPosting{TermID: 1, DocID: 2, Freq: 1})

	path := filepath.Join(dir, "chunk_0.bin")
	if err := w.Flush(path); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if w.Len() != 0 {
		t.Fatalf("writer buffer not cleared after flush, len=%d", w.Len())
	}

	r, err := OpenChunkReader(path)
	if err != nil {
		t.Fatalf("OpenChunkReader: %v", err)
	}
	defer r.Close()

	want := []PartialPosting{
		{TermID: 1, DocID: 2, Freq: 1},
		{TermID: 1, DocID: 5, Freq: 2},
		{TermID: 2, DocID: 1, Freq: 1},
	}
	for i, w := range want {
		ok, err := r.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if !ok {
			t.Fatalf("record %d: unexpected EOF", i)
		}
		if got := r.Current(); got != w {
			t.Fatalf("record %d: got %+v, want %+v", i, got, w)
		}
	}
	ok, err := r.Advance()
	if err != nil {
		t.Fatalf("Advance at end: %v", err)
	}
	if ok || !r.EOF() {
		t.Fatal("expected EOF after last record")
	}
}

func TestChunkReader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	w := NewChunkWriter()
	if err := w.Flush(path); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	r, err := OpenChunkReader(path)
	if err != nil {
		t.Fatalf("OpenChunkReader: %v", err)
	}
	defer r.Close()
	ok, err := r.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if ok || !r.EOF() {
		t.Fatal("expected immediate EOF on empty chunk")
	}
}
