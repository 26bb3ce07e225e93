package bsbidx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX READER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestOpenIndex_RefusesMissingArtefacts(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenIndex(dir)
	if !errors.Is(err, ErrIndexIncomplete) {
		t.Fatalf("OpenIndex on empty dir: got %v, want ErrIndexIncomplete", err)
	}
}

func TestIndex_AllDocIDs(t *testing.T) {
	idx := buildSampleIndex(t)
	all := idx.AllDocIDs()
	if all.GetCardinality() != 3 {
		t.Fatalf("AllDocIDs cardinality = %d, want 3", all.GetCardinality())
	}
	for _, id := range []uint32{1, 2, 3} {
		if !all.Contains(id) {
			t.Fatalf("AllDocIDs missing %d", id)
		}
	}
}

func TestIndex_Stats(t *testing.T) {
	idx := buildSampleIndex(t)
	stats, err := idx.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TermCount != 4 {
		t.Fatalf("TermCount = %d, want 4", stats.TermCount)
	}
	if stats.DocCount != 3 {
		t.Fatalf("DocCount = %d, want 3", stats.DocCount)
	}
	if stats.MinDF != 1 || stats.MaxDF != 3 {
		t.Fatalf("MinDF/MaxDF = %d/%d, want 1/3", stats.MinDF, stats.MaxDF)
	}
	if stats.PostingsBytes == 0 {
		t.Fatal("expected nonzero PostingsBytes")
	}
}

func TestOpenIndex_RoundTripsAfterClose(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "idx")
	ix := NewIndexer(DefaultConfig(outDir))
	idx, err := ix.IndexCollection(NewSliceDocumentIterator(sampleCollection()))
	if err != nil {
		t.Fatalf("IndexCollection: %v", err)
	}
	idx.Close()

	reopened, err := OpenIndex(outDir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer reopened.Close()

	postings, err := reopened.Postings("gato")
	if err != nil {
		t.Fatalf("Postings: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("Postings(gato) after reopen = %v, want 3 entries", postings)
	}
}

// TestIndex_LoadSkips_RejectsNonIncreasingSamples checks that a corrupted
// skips.dat (samples not strictly increasing in DocID/offset) is reported
// as ErrSkipListBad rather than silently accepted.
func TestIndex_LoadSkips_RejectsNonIncreasingSamples(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "idx")
	ix := NewIndexer(DefaultConfig(outDir))
	idx, err := ix.IndexCollection(NewSliceDocumentIterator(sampleCollection()))
	if err != nil {
		t.Fatalf("IndexCollection: %v", err)
	}
	idx.Close()

	corrupt := SkipTable{
		"gato": PostingSkipList{
			{DocID: 5, Offset: 100},
			{DocID: 3, Offset: 50}, // DocID goes backward: corrupt
		},
	}
	data, err := EncodeSkips(corrupt)
	if err != nil {
		t.Fatalf("EncodeSkips: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, skipsFile), data, 0o644); err != nil {
		t.Fatalf("writing corrupt skips.dat: %v", err)
	}

	reopened, err := OpenIndex(outDir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer reopened.Close()

	_, err = reopened.SkipList("gato")
	if !errors.Is(err, ErrSkipListBad) {
		t.Fatalf("SkipList on corrupt data: got %v, want ErrSkipListBad", err)
	}
}

// TestDecompressTerm_MissingCompressedIndex checks that decompressing from
// a directory with no compressed index reports ErrIndexNotFound.
func TestDecompressTerm_MissingCompressedIndex(t *testing.T) {
	_, err := DecompressTerm(t.TempDir(), "gato")
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("DecompressTerm on empty dir: got %v, want ErrIndexNotFound", err)
	}
}
