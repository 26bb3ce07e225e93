package bsbidx

import (
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BSBI INDEXER (C5)
// ═══════════════════════════════════════════════════════════════════════════════
// Drives the whole build: tokenise each document, buffer partial postings,
// flush bounded-memory sorted runs (chunks), then K-way merge the runs into
// the final postings file, vocabulary, skip lists, and metadata.
// ═══════════════════════════════════════════════════════════════════════════════

// Config is the single ambient configuration struct for the indexing
// pipeline, aggregating tokeniser bounds, the memory limit, and the active
// index directory — analogous to the teacher's AnalyzerConfig/
// BM25Parameters, which likewise bundled every knob a pipeline stage
// needed into one value handed down from the CLI.
type Config struct {
	// OutDir is the index directory; it is created if absent.
	OutDir string

	// MemoryLimit counts documents buffered before a chunk flush (spec.md
	// §4.5: "this spec counts documents for portability").
	MemoryLimit int

	// Tokenizer configures C1. Zero value uses DefaultTokenizerConfig.
	Tokenizer TokenizerConfig

	// Overwrite allows indexing into a directory that already holds a
	// completed index (spec.md §7 Policy error otherwise).
	Overwrite bool
}

// DefaultConfig returns a config with a 1000-document memory limit and the
// default tokeniser.
func DefaultConfig(outDir string) Config {
	return Config{
		OutDir:      outDir,
		MemoryLimit: 1000,
		Tokenizer:   DefaultTokenizerConfig(),
	}
}

// Indexer builds a BSBI index from a DocumentIterator.
type Indexer struct {
	cfg Config

	termToID map[string]uint32
	idToTerm []string // idToTerm[0] is unused; TermIds start at 1

	nextDocID  uint32
	nextTermID uint32

	docNames  Metadata
	allDocIDs *roaring.Bitmap

	docVectors     map[uint32]DocVector
	collectionFreq map[string]uint64
	totalTokens    uint64

	buffer     *ChunkWriter
	docsInBuf  int
	chunkPaths []string
}

// NewIndexer constructs an Indexer from cfg.
func NewIndexer(cfg Config) *Indexer {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 1000
	}
	return &Indexer{
		cfg:            cfg,
		termToID:       make(map[string]uint32),
		idToTerm:       []string{""}, // index 0 reserved
		nextDocID:      1,
		nextTermID:     1,
		docNames:       Metadata{},
		allDocIDs:      roaring.New(),
		docVectors:     make(map[uint32]DocVector),
		collectionFreq: make(map[string]uint64),
		buffer:         NewChunkWriter(),
	}
}

// IndexCollection ingests every document yielded by it, builds the final
// artefacts in cfg.OutDir, and returns a ready-to-query Index handle.
func (ix *Indexer) IndexCollection(it DocumentIterator) (*Index, error) {
	if err := ix.prepareOutDir(); err != nil {
		return nil, err
	}

	ingestStart := time.Now()
	if err := ix.ingest(it); err != nil {
		return nil, fmt.Errorf("bsbidx: ingestion failed: %w", err)
	}
	slog.Info("ingestion complete",
		slog.Int("documents", int(ix.nextDocID-1)),
		slog.Int("terms", int(ix.nextTermID-1)),
		slog.Int("chunks", len(ix.chunkPaths)),
		slog.Duration("elapsed", time.Since(ingestStart)))

	mergeStart := time.Now()
	if err := ix.mergeChunks(); err != nil {
		return nil, fmt.Errorf("bsbidx: merge failed: %w", err)
	}
	slog.Info("merge complete", slog.Duration("elapsed", time.Since(mergeStart)))

	for _, p := range ix.chunkPaths {
		if err := os.Remove(p); err != nil {
			slog.Error("removing partial run after merge", slog.String("path", p), slog.Any("error", err))
		}
	}

	return OpenIndex(ix.cfg.OutDir)
}

func (ix *Indexer) prepareOutDir() error {
	if fi, err := os.Stat(ix.cfg.OutDir); err == nil && fi.IsDir() {
		if _, err := os.Stat(filepath.Join(ix.cfg.OutDir, postingsFileName)); err == nil && !ix.cfg.Overwrite {
			return fmt.Errorf("%w: %s", ErrIndexDirExists, ix.cfg.OutDir)
		}
	}
	if err := os.MkdirAll(ix.cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("bsbidx: creating index directory %s: %w", ix.cfg.OutDir, err)
	}
	return nil
}

// ingest runs the per-document loop described in spec.md §4.5.
func (ix *Indexer) ingest(it DocumentIterator) error {
	for {
		doc, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		if !ok {
			break
		}

		docID := ix.nextDocID
		ix.nextDocID++
		ix.docNames[docID] = doc.Name
		ix.allDocIDs.Add(docID)

		tokens := TokenizeWithConfig(doc.Text, ix.cfg.Tokenizer)
		termFreq := make(map[string]uint32, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
		}
		ix.docVectors[docID] = DocVector{Length: uint32(len(tokens)), Freqs: termFreq}
		ix.totalTokens += uint64(len(tokens))

		for term, freq := range termFreq {
			termID, known := ix.termToID[term]
			if !known {
				termID = ix.nextTermID
				ix.nextTermID++
				ix.termToID[term] = termID
				ix.idToTerm = append(ix.idToTerm, term)
			}
			ix.buffer.Add(PartialPosting{TermID: termID, DocID: docID, Freq: freq})
			ix.collectionFreq[term] += uint64(freq)
		}

		ix.docsInBuf++
		if ix.docsInBuf >= ix.cfg.MemoryLimit {
			if err := ix.flushChunk(); err != nil {
				return err
			}
		}
	}
	if ix.buffer.Len() > 0 {
		if err := ix.flushChunk(); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) flushChunk() error {
	path := filepath.Join(ix.cfg.OutDir, fmt.Sprintf(chunkFilePattern, len(ix.chunkPaths)))
	postingCount := ix.buffer.Len()
	if err := ix.buffer.Flush(path); err != nil {
		return fmt.Errorf("flushing chunk %s: %w", path, err)
	}
	ix.chunkPaths = append(ix.chunkPaths, path)
	ix.docsInBuf = 0
	slog.Info("flushed partial run", slog.String("path", path), slog.Int("postings", postingCount))
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// K-WAY MERGE
// ═══════════════════════════════════════════════════════════════════════════════

// mergeItem is one min-heap entry: the head record of an open chunk reader,
// tagged with its reader index for deterministic tie-breaking.
type mergeItem struct {
	rec    PartialPosting
	reader int
}

// mergeHeap orders items by (TermID, DocID, reader index), matching
// spec.md §4.5's tie-break rule.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.rec.TermID != b.rec.TermID {
		return a.rec.TermID < b.rec.TermID
	}
	if a.rec.DocID != b.rec.DocID {
		return a.rec.DocID < b.rec.DocID
	}
	return a.reader < b.reader
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeChunks performs the external K-way merge described in spec.md §4.5,
// writing postings.bin, vocabulary.dat, skips.dat, metadata.dat, and
// doc_vectors.dat into cfg.OutDir.
func (ix *Indexer) mergeChunks() error {
	readers := make([]*ChunkReader, len(ix.chunkPaths))
	for i, p := range ix.chunkPaths {
		r, err := OpenChunkReader(p)
		if err != nil {
			return err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	h := &mergeHeap{}
	heap.Init(h)
	for i, r := range readers {
		ok, err := r.Advance()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, mergeItem{rec: r.Current(), reader: i})
		}
	}

	postingsPath := filepath.Join(ix.cfg.OutDir, postingsFileName)
	pf, err := os.Create(postingsPath)
	if err != nil {
		return fmt.Errorf("creating postings file: %w", err)
	}
	defer pf.Close()

	vocab := Vocabulary{}
	skips := SkipTable{}
	var writeOffset uint64

	var currentTerm uint32
	var currentPostings []Posting
	haveCurrent := false

	flushTerm := func() error {
		if !haveCurrent || len(currentPostings) == 0 {
			return nil
		}
		term := ix.idToTerm[currentTerm]
		startOffset := writeOffset
		for _, p := range currentPostings {
			if _, err := pf.Write(p.Bytes()); err != nil {
				return fmt.Errorf("writing postings for %q: %w", term, err)
			}
			writeOffset += PostingSize
		}
		vocab[term] = VocabEntry{Offset: startOffset, DF: uint32(len(currentPostings))}

		sl := BuildPostingSkipList(currentPostings, func(pos int) int64 {
			return int64(startOffset) + int64(pos)*PostingSize
		})
		if sl != nil {
			skips[term] = sl
		}
		return nil
	}

	for h.Len() > 0 {
		top := heap.Pop(h).(mergeItem)
		rec := top.rec

		if !haveCurrent || rec.TermID != currentTerm {
			if err := flushTerm(); err != nil {
				return err
			}
			currentTerm = rec.TermID
			currentPostings = currentPostings[:0]
			haveCurrent = true
		}
		currentPostings = append(currentPostings, Posting{DocID: rec.DocID, Freq: rec.Freq})

		r := readers[top.reader]
		ok, err := r.Advance()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, mergeItem{rec: r.Current(), reader: top.reader})
		}
	}
	if err := flushTerm(); err != nil {
		return err
	}

	vocabBytes, err := EncodeVocabulary(vocab)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(ix.cfg.OutDir, vocabularyFile), vocabBytes); err != nil {
		return err
	}

	skipsBytes, err := EncodeSkips(skips)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(ix.cfg.OutDir, skipsFile), skipsBytes); err != nil {
		return err
	}

	metaBytes, err := EncodeMetadata(ix.docNames)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(ix.cfg.OutDir, metadataFile), metaBytes); err != nil {
		return err
	}

	cm := CollectionModel{
		TotalTokens:    ix.totalTokens,
		CollectionFreq: ix.collectionFreq,
		DocVectors:     ix.docVectors,
	}
	cmBytes, err := EncodeCollectionModel(cm)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(ix.cfg.OutDir, docVectorsFile), cmBytes); err != nil {
		return err
	}

	return nil
}

// writeFileAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a partially
// written artefact at path (spec.md §4.5: merge is all-or-nothing).
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}
