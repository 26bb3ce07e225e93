package bsbidx

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// TERM-LEVEL POSTING COMPRESSION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

// TestCompressIndex_Scenario6 is spec.md §8 scenario 6: compress with
// d-gaps enabled, then decompress "gato" and recover its exact posting
// list.
func TestCompressIndex_Scenario6(t *testing.T) {
	idx := buildSampleIndex(t)
	dir := t.TempDir() + "/compressed"

	if err := CompressIndex(idx, dir, true); err != nil {
		t.Fatalf("CompressIndex: %v", err)
	}

	postings, err := DecompressTerm(dir, "gato")
	if err != nil {
		t.Fatalf("DecompressTerm: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d: %v", len(postings), postings)
	}
	wantDocIDs := []uint32{1, 2, 3}
	wantFreqs := []uint32{1, 1, 2}
	for i, p := range postings {
		if p.DocID != wantDocIDs[i] || p.Freq != wantFreqs[i] {
			t.Fatalf("posting %d: got {%d,%d}, want {%d,%d}", i, p.DocID, p.Freq, wantDocIDs[i], wantFreqs[i])
		}
	}
}

// TestCompressIndex_RoundTripEveryTerm is property 10: for every term in
// the vocabulary, compress-then-decompress recovers the exact original
// posting list, with or without the d-gap transform.
func TestCompressIndex_RoundTripEveryTerm(t *testing.T) {
	idx := buildSampleIndex(t)

	for _, dgaps := range []bool{false, true} {
		dir := t.TempDir() + "/compressed"
		if err := CompressIndex(idx, dir, dgaps); err != nil {
			t.Fatalf("CompressIndex(dgaps=%v): %v", dgaps, err)
		}

		for _, term := range []string{"casa", "perro", "gato", "raton"} {
			want, err := idx.Postings(term)
			if err != nil {
				t.Fatalf("Postings(%q): %v", term, err)
			}
			got, err := DecompressTerm(dir, term)
			if err != nil {
				t.Fatalf("DecompressTerm(%q, dgaps=%v): %v", term, dgaps, err)
			}
			if len(got) != len(want) {
				t.Fatalf("%q: got %d postings, want %d", term, len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%q posting %d: got %+v, want %+v", term, i, got[i], want[i])
				}
			}
		}
	}
}

// TestCompressIndex_UnknownTermIsEmpty checks that decompressing a term
// with no compressed files returns an empty, non-nil slice rather than an
// error, matching Postings' own unknown-term contract.
func TestCompressIndex_UnknownTermIsEmpty(t *testing.T) {
	idx := buildSampleIndex(t)
	dir := t.TempDir() + "/compressed"
	if err := CompressIndex(idx, dir, false); err != nil {
		t.Fatalf("CompressIndex: %v", err)
	}

	got, err := DecompressTerm(dir, "nonexistent")
	if err != nil {
		t.Fatalf("DecompressTerm: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
