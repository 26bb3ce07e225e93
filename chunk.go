package bsbidx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PARTIAL RUN (CHUNK) FILES
// ═══════════════════════════════════════════════════════════════════════════════
// A chunk is a binary file of 12-byte PartialPosting records, sorted
// lexicographically by (TermID, DocID). ChunkWriter accumulates postings in
// memory and flushes them, sorted, to disk. ChunkReader supports the
// sequential current()/advance()/eof() access pattern the K-way merge needs.
// ═══════════════════════════════════════════════════════════════════════════════

// ChunkWriter buffers partial postings in memory and writes them out as a
// single sorted run.
type ChunkWriter struct {
	postings []PartialPosting
}

// NewChunkWriter returns an empty chunk writer.
func NewChunkWriter() *ChunkWriter {
	return &ChunkWriter{}
}

// Add appends a partial posting to the buffer, unsorted.
func (w *ChunkWriter) Add(p PartialPosting) {
	w.postings = append(w.postings, p)
}

// Len reports the number of buffered postings.
func (w *ChunkWriter) Len() int {
	return len(w.postings)
}

// Flush sorts the buffer by (TermID, DocID) and writes it to path as a
// sequence of 12-byte records. The writer's buffer is cleared on success.
func (w *ChunkWriter) Flush(path string) error {
	sort.Slice(w.postings, func(i, j int) bool {
		return w.postings[i].less(w.postings[j])
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bsbidx: creating chunk file %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, p := range w.postings {
		if _, err := bw.Write(p.Bytes()); err != nil {
			return fmt.Errorf("bsbidx: writing chunk file %s: %w", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("bsbidx: flushing chunk file %s: %w", path, err)
	}

	w.postings = w.postings[:0]
	return nil
}

// ChunkReader reads a sorted run file sequentially, one PartialPosting at a
// time. Current returns the record most recently made current by Advance;
// EOF reports whether the reader has passed the last record.
type ChunkReader struct {
	f       *os.File
	r       *bufio.Reader
	current PartialPosting
	eof     bool
}

// OpenChunkReader opens path for sequential reading. The reader is
// positioned before the first record; call Advance once before the first
// Current.
func OpenChunkReader(path string) (*ChunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bsbidx: opening chunk file %s: %w", path, err)
	}
	return &ChunkReader{f: f, r: bufio.NewReader(f)}, nil
}

// Advance reads the next record into Current. It returns false (and sets
// EOF) once the underlying file is exhausted.
func (r *ChunkReader) Advance() (bool, error) {
	buf := make([]byte, PartialPostingSize)
	_, err := io.ReadFull(r.r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.eof = true
			return false, nil
		}
		return false, fmt.Errorf("bsbidx: reading chunk record: %w", err)
	}
	p, perr := PartialPostingFromBytes(buf)
	if perr != nil {
		return false, perr
	}
	r.current = p
	return true, nil
}

// Current returns the most recently read record. Valid only when EOF is
// false and Advance has been called at least once.
func (r *ChunkReader) Current() PartialPosting {
	return r.current
}

// EOF reports whether the reader has been exhausted.
func (r *ChunkReader) EOF() bool {
	return r.eof
}

// Close releases the underlying file handle.
func (r *ChunkReader) Close() error {
	return r.f.Close()
}
