package bsbidx

import (
	"container/heap"
	"log/slog"
	"math"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VECTOR QUERY EVALUATOR (C9, DAAT)
// ═══════════════════════════════════════════════════════════════════════════════
// Cosine similarity between a query's sparse weight vector and each
// candidate document's sparse weight vector. Weight is raw term frequency
// by default; IDF weighting is configurable but off by default, matching
// the BSBI-backed behaviour spec.md §9's Open Questions resolves on.
// ═══════════════════════════════════════════════════════════════════════════════

// VectorConfig controls the vector evaluator's weighting scheme.
type VectorConfig struct {
	// UseIDF multiplies term frequency by log(N/df) in both the query and
	// document weight vectors. Off by default.
	UseIDF bool
}

// DefaultVectorConfig returns raw-tf weighting with no IDF.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{UseIDF: false}
}

// ScoredDoc is one ranked result from a vector or language-model query.
type ScoredDoc struct {
	DocID uint32
	Score float64
}

// EvaluateVector tokenises queryText, forms its query weight vector, and
// returns the top-K documents by cosine similarity, descending by score
// with ties broken by ascending DocID.
func (idx *Index) EvaluateVector(queryText string, topK int, cfg VectorConfig) ([]ScoredDoc, error) {
	slog.Info("query", slog.String("text", queryText), slog.String("mode", "vector"))
	if topK <= 0 {
		topK = 10
	}

	queryTokens := Tokenize(queryText)
	queryFreq := make(map[string]uint32, len(queryTokens))
	for _, tok := range queryTokens {
		queryFreq[tok]++
	}

	totalDocs, err := idx.docCountForIDF()
	if err != nil {
		return nil, err
	}
	idf := func(term string) float64 {
		if !cfg.UseIDF {
			return 1
		}
		df := idx.DF(term)
		if df == 0 || totalDocs == 0 {
			return 0
		}
		return math.Log(float64(totalDocs) / float64(df))
	}

	var normQ float64
	qWeight := make(map[string]float64, len(queryFreq))
	for term, freq := range queryFreq {
		w := float64(freq) * idf(term)
		qWeight[term] = w
		normQ += w * w
	}
	normQ = math.Sqrt(normQ)

	candidates := roaring.New()
	for term := range queryFreq {
		postings, err := idx.Postings(term)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			candidates.Add(p.DocID)
		}
	}

	h := &scoreHeap{}
	heap.Init(h)
	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		dv, ok, err := idx.DocVector(docID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var dot, normD float64
		for term, freq := range dv.Freqs {
			w := float64(freq) * idf(term)
			normD += w * w
			if qw, inQuery := qWeight[term]; inQuery {
				dot += qw * w
			}
		}
		normD = math.Sqrt(normD)

		var score float64
		if normQ > 0 && normD > 0 {
			score = dot / (normQ * normD)
		}

		heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > topK {
			heap.Pop(h)
		}
	}

	return drainScoreHeapDescending(h), nil
}

// docCountForIDF reports the number of documents in the collection, for
// the optional IDF term log(N/df).
func (idx *Index) docCountForIDF() (int, error) {
	return len(idx.metadata), nil
}

// --- top-K min-heap ----------------------------------------------------------

// scoreHeap is a min-heap over ScoredDoc: the lowest-priority item (lowest
// score, or — among ties — the highest DocID) sits at the root so it is
// the first evicted once the heap exceeds topK capacity. That eviction
// rule leaves the smaller DocID surviving a tie, matching the DocID-
// ascending tie-break spec.md §4.9 requires in the final ranking.
type scoreHeap []ScoredDoc

func (h scoreHeap) Len() int { return len(h) }
func (h scoreHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}
func (h scoreHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)   { *h = append(*h, x.(ScoredDoc)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// drainScoreHeapDescending empties a scoreHeap into a slice ordered
// descending by score, ascending by DocID among ties.
func drainScoreHeapDescending(h *scoreHeap) []ScoredDoc {
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ScoredDoc)
	}
	return out
}
