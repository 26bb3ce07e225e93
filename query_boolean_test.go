package bsbidx

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BOOLEAN QUERY EVALUATOR TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func bitmapOf(ids ...uint32) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddMany(ids)
	return bm
}

func TestEvaluateBoolean_Scenario1_SimpleAnd(t *testing.T) {
	idx := buildSampleIndex(t)
	got, err := idx.EvaluateBoolean("casa AND perro")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}
	if !got.Equals(bitmapOf(1)) {
		t.Fatalf("got %v, want {1}", got.ToArray())
	}
}

func TestEvaluateBoolean_Scenario2_AndNot(t *testing.T) {
	idx := buildSampleIndex(t)
	got, err := idx.EvaluateBoolean("gato AND NOT perro")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}
	if !got.Equals(bitmapOf(3)) {
		t.Fatalf("got %v, want {3}", got.ToArray())
	}
}

func TestEvaluateBoolean_Scenario3_GroupedOrThenAnd(t *testing.T) {
	idx := buildSampleIndex(t)
	got, err := idx.EvaluateBoolean("(casa OR raton) AND gato")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}
	if !got.Equals(bitmapOf(1, 3)) {
		t.Fatalf("got %v, want {1, 3}", got.ToArray())
	}
}

func TestEvaluateBoolean_UnknownTermIsEmptySet(t *testing.T) {
	idx := buildSampleIndex(t)
	got, err := idx.EvaluateBoolean("nonexistent")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}
	if got.GetCardinality() != 0 {
		t.Fatalf("got %v, want empty set", got.ToArray())
	}
}

func TestEvaluateBoolean_NotOfUnknownTermIsAllDocIDs(t *testing.T) {
	idx := buildSampleIndex(t)
	got, err := idx.EvaluateBoolean("NOT nonexistent")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}
	if !got.Equals(idx.AllDocIDs()) {
		t.Fatalf("got %v, want all DocIds", got.ToArray())
	}
}

func TestEvaluateBoolean_MalformedExpression(t *testing.T) {
	idx := buildSampleIndex(t)
	if _, err := idx.EvaluateBoolean("AND casa"); err == nil {
		t.Fatal("expected parse error for expression starting with AND")
	}
	if _, err := idx.EvaluateBoolean("(casa"); err == nil {
		t.Fatal("expected parse error for unbalanced parenthesis")
	}
	if _, err := idx.EvaluateBoolean(""); err == nil {
		t.Fatal("expected parse error for empty expression")
	}
}

// TestEvaluateBoolean_SkipAcceleratedAndMatchesNaive is property 8: the
// skip-accelerated AND returns the same set as a naive intersection of the
// underlying posting-list DocId sets, for every subset of terms.
func TestEvaluateBoolean_SkipAcceleratedAndMatchesNaive(t *testing.T) {
	idx := buildSampleIndex(t)
	terms := []string{"casa", "perro", "gato", "raton"}

	var subsets [][]string
	for mask := 1; mask < (1 << len(terms)); mask++ {
		var subset []string
		for i, term := range terms {
			if mask&(1<<i) != 0 {
				subset = append(subset, term)
			}
		}
		if len(subset) >= 2 {
			subsets = append(subsets, subset)
		}
	}

	for _, subset := range subsets {
		got, err := idx.andTerms(subset)
		if err != nil {
			t.Fatalf("andTerms(%v): %v", subset, err)
		}

		naive := idx.AllDocIDs()
		for _, term := range subset {
			postings, err := idx.Postings(term)
			if err != nil {
				t.Fatalf("Postings(%q): %v", term, err)
			}
			termSet := roaring.New()
			for _, p := range postings {
				termSet.Add(p.DocID)
			}
			naive.And(termSet)
		}

		if !got.Equals(naive) {
			t.Fatalf("andTerms(%v) = %v, naive = %v", subset, got.ToArray(), naive.ToArray())
		}
	}
}

func TestEvaluateBoolean_LargerSkippedCollection(t *testing.T) {
	// Build a bigger, denser corpus so every term has df >= 4 and real
	// skip lists get exercised by the galloping intersection.
	var docs []Document
	for i := 0; i < 40; i++ {
		text := "common"
		if i%2 == 0 {
			text += " even"
		}
		if i%3 == 0 {
			text += " third"
		}
		docs = append(docs, Document{Name: docName(i), Text: text})
	}
	dir := t.TempDir()
	ix := NewIndexer(DefaultConfig(dir + "/idx"))
	idx, err := ix.IndexCollection(NewSliceDocumentIterator(docs))
	if err != nil {
		t.Fatalf("IndexCollection: %v", err)
	}
	defer idx.Close()

	if sl, _ := idx.SkipList("common"); len(sl) == 0 {
		t.Fatal("expected a non-empty skip list for the dense term 'common'")
	}

	got, err := idx.EvaluateBoolean("even AND third")
	if err != nil {
		t.Fatalf("EvaluateBoolean: %v", err)
	}

	evenSet, _ := idx.Postings("even")
	thirdSet, _ := idx.Postings("third")
	evenBM, thirdBM := roaring.New(), roaring.New()
	for _, p := range evenSet {
		evenBM.Add(p.DocID)
	}
	for _, p := range thirdSet {
		thirdBM.Add(p.DocID)
	}
	evenBM.And(thirdBM)

	if !got.Equals(evenBM) {
		t.Fatalf("got %v, want %v", got.ToArray(), evenBM.ToArray())
	}
}

func docName(i int) string {
	return "d" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".txt"
}
