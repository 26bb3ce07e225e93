package bsbidx

import (
	"container/heap"
	"log/slog"
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════════
// LANGUAGE-MODEL QUERY EVALUATOR (C10)
// ═══════════════════════════════════════════════════════════════════════════════
// Query-likelihood scoring under a per-document unigram model, with
// optional Jelinek-Mercer smoothing against the collection model.
// ═══════════════════════════════════════════════════════════════════════════════

// zeroProbabilityPenalty is the fixed log-probability substituted for a
// query token with zero probability under the unsmoothed model, so scores
// stay comparable instead of going to -Inf (spec.md §4.10).
const zeroProbabilityPenalty = -100

// LMConfig controls Jelinek-Mercer smoothing.
type LMConfig struct {
	// Lambda is the smoothing weight. Lambda == 0 disables smoothing
	// entirely (raw tf/|d|); Lambda > 0 interpolates with cf(t)/|C|.
	Lambda float64
}

// DefaultLMConfig returns the unsmoothed model (Lambda = 0).
func DefaultLMConfig() LMConfig {
	return LMConfig{Lambda: 0}
}

// EvaluateLM tokenises queryText and scores every document in the
// collection under the query-likelihood model, returning the top-K by
// descending score.
func (idx *Index) EvaluateLM(queryText string, topK int, cfg LMConfig) ([]ScoredDoc, error) {
	slog.Info("query", slog.String("text", queryText), slog.String("mode", "lm"))
	if topK <= 0 {
		topK = 10
	}

	queryTokens := Tokenize(queryText)

	var totalTokens uint64
	var err error
	if cfg.Lambda > 0 {
		totalTokens, err = idx.TotalTokens()
		if err != nil {
			return nil, err
		}
	}

	h := &scoreHeap{}
	heap.Init(h)

	all := idx.AllDocIDs()
	it := all.Iterator()
	for it.HasNext() {
		docID := it.Next()
		dv, ok, err := idx.DocVector(docID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var score float64
		for _, term := range queryTokens {
			tf := dv.Freqs[term]
			p, err := idx.queryLikelihood(term, tf, dv.Length, totalTokens, cfg)
			if err != nil {
				return nil, err
			}
			if p > 0 {
				score += math.Log(p)
			} else {
				score += zeroProbabilityPenalty
			}
		}

		heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > topK {
			heap.Pop(h)
		}
	}

	return drainScoreHeapDescending(h), nil
}

// queryLikelihood computes p(t|d) for a single query token, either raw
// (Lambda == 0) or Jelinek-Mercer smoothed against the collection model.
func (idx *Index) queryLikelihood(term string, tf, docLen uint32, totalTokens uint64, cfg LMConfig) (float64, error) {
	if cfg.Lambda <= 0 {
		if docLen == 0 {
			return 0, nil
		}
		return float64(tf) / float64(docLen), nil
	}

	cf, err := idx.CollectionFreq(term)
	if err != nil {
		return 0, err
	}
	var docTerm float64
	if docLen > 0 {
		docTerm = float64(tf) / float64(docLen)
	}
	var collTerm float64
	if totalTokens > 0 {
		collTerm = float64(cf) / float64(totalTokens)
	}
	return (1-cfg.Lambda)*docTerm + cfg.Lambda*collTerm, nil
}
