package bsbidx

import (
	"math"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VECTOR QUERY EVALUATOR TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestEvaluateVector_Scenario4(t *testing.T) {
	idx := buildSampleIndex(t)
	results, err := idx.EvaluateVector("gato raton", 3, DefaultVectorConfig())
	if err != nil {
		t.Fatalf("EvaluateVector: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %v", len(results), results)
	}
	if results[0].DocID != 3 {
		t.Fatalf("doc 3 should rank strictly first, got %+v", results)
	}
	seen := map[uint32]bool{}
	for _, r := range results {
		seen[r.DocID] = true
	}
	for _, want := range []uint32{1, 2, 3} {
		if !seen[want] {
			t.Fatalf("expected doc %d among results, got %v", want, results)
		}
	}
}

// TestEvaluateVector_DAATMatchesDenseReference is property 9: cosine top-K
// equals the top-K of a reference dense cosine evaluation (ties broken by
// DocID ascending).
func TestEvaluateVector_DAATMatchesDenseReference(t *testing.T) {
	idx := buildSampleIndex(t)

	got, err := idx.EvaluateVector("gato perro casa", 10, DefaultVectorConfig())
	if err != nil {
		t.Fatalf("EvaluateVector: %v", err)
	}

	want := denseReferenceCosine(t, idx, "gato perro casa", 10)

	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].DocID != want[i].DocID {
			t.Fatalf("result %d: got DocID %d, want %d (full: got=%v want=%v)", i, got[i].DocID, want[i].DocID, got, want)
		}
		if math.Abs(got[i].Score-want[i].Score) > 1e-9 {
			t.Fatalf("result %d: score mismatch got=%f want=%f", i, got[i].Score, want[i].Score)
		}
	}
}

// denseReferenceCosine independently recomputes cosine similarity by
// scanning every document's full vector, with no DAAT candidate pruning,
// as a correctness oracle.
func denseReferenceCosine(t *testing.T, idx *Index, query string, topK int) []ScoredDoc {
	t.Helper()
	qTokens := Tokenize(query)
	qFreq := map[string]uint32{}
	for _, tok := range qTokens {
		qFreq[tok]++
	}
	var normQ float64
	for _, f := range qFreq {
		normQ += float64(f) * float64(f)
	}
	normQ = math.Sqrt(normQ)

	all := idx.AllDocIDs()
	var scored []ScoredDoc
	it := all.Iterator()
	for it.HasNext() {
		docID := it.Next()
		dv, ok, err := idx.DocVector(docID)
		if err != nil || !ok {
			t.Fatalf("DocVector(%d): ok=%v err=%v", docID, ok, err)
		}
		var dot, normD float64
		for term, freq := range dv.Freqs {
			normD += float64(freq) * float64(freq)
			if qf, inQ := qFreq[term]; inQ {
				dot += float64(qf) * float64(freq)
			}
		}
		normD = math.Sqrt(normD)
		var score float64
		if normQ > 0 && normD > 0 {
			score = dot / (normQ * normD)
		}
		scored = append(scored, ScoredDoc{DocID: docID, Score: score})
	}

	// Sort descending by score, ascending DocID on ties (simple, obviously
	// correct selection sort since the reference need not be efficient).
	for i := 0; i < len(scored); i++ {
		best := i
		for j := i + 1; j < len(scored); j++ {
			if scored[j].Score > scored[best].Score ||
				(scored[j].Score == scored[best].Score && scored[j].DocID < scored[best].DocID) {
				best = j
			}
		}
		scored[i], scored[best] = scored[best], scored[i]
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
