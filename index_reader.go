package bsbidx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING-LIST READER / READ-ONLY INDEX HANDLE (C7)
// ═══════════════════════════════════════════════════════════════════════════════
// Index is the read-only handle query evaluators attach to. It owns the
// open postings file, reads vocabulary and metadata when opened, and lazily
// loads skips and the collection model on first use, as spec.md §9 prescribes ("a read-only
// 'Index' handle that owns file descriptors and exposes only the contracts
// in §4.7"). No locking is needed for reads beyond guarding the lazy-load
// itself, since the underlying artefacts are immutable once merged.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	postingsFileName  = "postings.bin"
	vocabularyFile    = "vocabulary.dat"
	skipsFile         = "skips.dat"
	metadataFile      = "metadata.dat"
	docVectorsFile    = "doc_vectors.dat"
	chunkFilePattern  = "chunk_%d.bin"
	compressedDirName = "compressed"
)

// IndexStats reports read-only diagnostics about an open index (SPEC_FULL
// §13, ported from the original's index_size_on_disk/posting_list_sizes).
type IndexStats struct {
	TermCount       int
	DocCount        int
	PostingsBytes   int64
	VocabularyBytes int64
	MinDF           uint32
	MaxDF           uint32
}

// Index is the read-only, immutable view over a completed BSBI index
// directory.
type Index struct {
	dir string

	mu sync.Mutex

	postingsFile *os.File

	vocab     Vocabulary
	skips     SkipTable
	metadata  Metadata
	model     *CollectionModel
	allDocIDs *roaring.Bitmap
}

// OpenIndex opens an index directory, refusing to proceed unless postings,
// vocabulary, and metadata are all present (spec.md §4.5: "postings.bin
// MUST NOT be considered loadable until vocabulary and metadata are both
// present"). Skips and the collection model are optional: their absence is
// tolerated but feature-gates the operations that need them.
func OpenIndex(dir string) (*Index, error) {
	required := []string{postingsFileName, vocabularyFile, metadataFile}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: missing %s in %s", ErrIndexIncomplete, name, dir)
			}
			return nil, fmt.Errorf("bsbidx: statting %s: %w", name, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, postingsFileName))
	if err != nil {
		return nil, fmt.Errorf("bsbidx: opening postings file: %w", err)
	}

	vocabBytes, err := os.ReadFile(filepath.Join(dir, vocabularyFile))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsbidx: reading vocabulary: %w", err)
	}
	vocab, err := DecodeVocabulary(vocabBytes)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsbidx: decoding vocabulary: %w", err)
	}

	metaBytes, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsbidx: reading metadata: %w", err)
	}
	metadata, err := DecodeMetadata(metaBytes)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsbidx: decoding metadata: %w", err)
	}

	allDocIDs := roaring.New()
	for docID := range metadata {
		allDocIDs.Add(docID)
	}

	idx := &Index{
		dir:          dir,
		postingsFile: f,
		vocab:        vocab,
		metadata:     metadata,
		allDocIDs:    allDocIDs,
	}
	return idx, nil
}

// loadSkips lazily reads skips.dat on first access.
func (idx *Index) loadSkips() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.skips != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(idx.dir, skipsFile))
	if err != nil {
		if os.IsNotExist(err) {
			idx.skips = SkipTable{}
			return nil
		}
		return fmt.Errorf("bsbidx: reading skips: %w", err)
	}
	skips, err := DecodeSkips(data)
	if err != nil {
		return fmt.Errorf("bsbidx: decoding skips: %w", err)
	}
	for term, entries := range skips {
		for i := 1; i < len(entries); i++ {
			if entries[i].DocID <= entries[i-1].DocID || entries[i].Offset <= entries[i-1].Offset {
				return fmt.Errorf("%w: %q skip list is not strictly increasing at sample %d", ErrSkipListBad, term, i)
			}
		}
	}
	idx.skips = skips
	return nil
}

// loadCollectionModel lazily reads doc_vectors.dat on first access.
func (idx *Index) loadCollectionModel() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.model != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(idx.dir, docVectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			idx.model = &CollectionModel{CollectionFreq: map[string]uint64{}, DocVectors: map[uint32]DocVector{}}
			return nil
		}
		return fmt.Errorf("bsbidx: reading doc vectors: %w", err)
	}
	cm, err := DecodeCollectionModel(data)
	if err != nil {
		return fmt.Errorf("bsbidx: decoding doc vectors: %w", err)
	}
	idx.model = &cm
	return nil
}

// DF returns the document frequency of term, or 0 if the term is unknown.
func (idx *Index) DF(term string) uint32 {
	return idx.vocab[term].DF
}

// Postings returns a term's full posting list, in increasing DocId order.
// An unknown term yields an empty, non-nil slice and no error (spec.md
// §4.8: term-not-in-vocabulary is not an error).
func (idx *Index) Postings(term string) ([]Posting, error) {
	entry, ok := idx.vocab[term]
	if !ok {
		return []Posting{}, nil
	}
	return idx.PostingsAt(entry.Offset, entry.DF)
}

// PostingsAt reads df consecutive postings starting at byte offset off,
// supporting skip-accelerated access where the caller has already computed
// a target offset.
func (idx *Index) PostingsAt(off uint64, df uint32) ([]Posting, error) {
	if df == 0 {
		return []Posting{}, nil
	}
	buf := make([]byte, int(df)*PostingSize)
	idx.mu.Lock()
	n, err := idx.postingsFile.ReadAt(buf, int64(off))
	idx.mu.Unlock()
	if err != nil && n < len(buf) {
		return nil, fmt.Errorf("%w: reading %d postings at offset %d: %v", ErrTruncatedArtefact, df, off, err)
	}
	return PostingsFromBytes(buf)
}

// SkipList returns term's posting skip list, loading skips.dat on first
// call. A term with no skip list (df<4, or skips.dat absent) yields nil.
func (idx *Index) SkipList(term string) (PostingSkipList, error) {
	if err := idx.loadSkips(); err != nil {
		return nil, err
	}
	return idx.skips[term], nil
}

// AllDocIDs returns the bitmap of every DocId assigned during indexing —
// the universe NOT is complemented against.
func (idx *Index) AllDocIDs() *roaring.Bitmap {
	return idx.allDocIDs.Clone()
}

// DocName returns the document name for docID, as recorded in metadata.dat.
func (idx *Index) DocName(docID uint32) (string, bool) {
	name, ok := idx.metadata[docID]
	return name, ok
}

// DocVector returns a document's term-frequency vector and length, loading
// doc_vectors.dat on first call.
func (idx *Index) DocVector(docID uint32) (DocVector, bool, error) {
	if err := idx.loadCollectionModel(); err != nil {
		return DocVector{}, false, err
	}
	dv, ok := idx.model.DocVectors[docID]
	return dv, ok, nil
}

// CollectionFreq returns a term's total occurrence count across the whole
// collection (cf), loading doc_vectors.dat on first call.
func (idx *Index) CollectionFreq(term string) (uint64, error) {
	if err := idx.loadCollectionModel(); err != nil {
		return 0, err
	}
	return idx.model.CollectionFreq[term], nil
}

// TotalTokens returns |C|, the total token count across the whole
// collection, loading doc_vectors.dat on first call.
func (idx *Index) TotalTokens() (uint64, error) {
	if err := idx.loadCollectionModel(); err != nil {
		return 0, err
	}
	return idx.model.TotalTokens, nil
}

// Stats reports read-only size diagnostics (SPEC_FULL §13).
func (idx *Index) Stats() (IndexStats, error) {
	stats := IndexStats{
		TermCount: len(idx.vocab),
		DocCount:  len(idx.metadata),
	}
	if fi, err := idx.postingsFile.Stat(); err == nil {
		stats.PostingsBytes = fi.Size()
	}
	if fi, err := os.Stat(filepath.Join(idx.dir, vocabularyFile)); err == nil {
		stats.VocabularyBytes = fi.Size()
	}
	first := true
	for _, entry := range idx.vocab {
		if first {
			stats.MinDF, stats.MaxDF = entry.DF, entry.DF
			first = false
			continue
		}
		if entry.DF < stats.MinDF {
			stats.MinDF = entry.DF
		}
		if entry.DF > stats.MaxDF {
			stats.MaxDF = entry.DF
		}
	}
	return stats, nil
}

// Close releases the index's open file handle.
func (idx *Index) Close() error {
	return idx.postingsFile.Close()
}
