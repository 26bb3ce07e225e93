package bsbidx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT SOURCE
// ═══════════════════════════════════════════════════════════════════════════════
// The indexer is deliberately decoupled from how documents are produced: the
// crawler, HTML stripper, and encoding-recovery logic that feed a real
// corpus are out of scope here (see spec.md §1). Document and
// DocumentIterator are the narrow boundary the indexer pulls through.
// ═══════════════════════════════════════════════════════════════════════════════

// Document is a single unit of ingestion: a name (used as the doc-id map's
// value, typically a path relative to the corpus root) and its raw text.
type Document struct {
	Name string
	Text string
}

// DocumentIterator is a sequential, pull-based source of documents. Next
// returns false once exhausted; a non-nil error aborts ingestion.
type DocumentIterator interface {
	Next() (Document, bool, error)
}

// SliceDocumentIterator adapts an in-memory slice of documents to
// DocumentIterator, useful for tests and small scripted runs.
type SliceDocumentIterator struct {
	docs []Document
	pos  int
}

// NewSliceDocumentIterator wraps docs for sequential iteration.
func NewSliceDocumentIterator(docs []Document) *SliceDocumentIterator {
	return &SliceDocumentIterator{docs: docs}
}

// Next implements DocumentIterator.
func (it *SliceDocumentIterator) Next() (Document, bool, error) {
	if it.pos >= len(it.docs) {
		return Document{}, false, nil
	}
	d := it.docs[it.pos]
	it.pos++
	return d, true, nil
}

// DirectoryDocumentIterator walks a corpus directory in deterministic,
// lexicographic path order, yielding one Document per regular file whose
// name ends in ".txt". Document.Name is the file's path relative to the
// corpus root, with OS path separators normalised to "/".
type DirectoryDocumentIterator struct {
	root  string
	paths []string
	pos   int
}

// NewDirectoryDocumentIterator enumerates corpusDir's ".txt" files up
// front, so that iteration order is fixed before ingestion begins (spec.md
// §5: "DocId and TermId assignment is deterministic given a deterministic
// document iterator ordering").
func NewDirectoryDocumentIterator(corpusDir string) (*DirectoryDocumentIterator, error) {
	var paths []string
	err := filepath.WalkDir(corpusDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bsbidx: walking corpus directory %s: %w", corpusDir, err)
	}
	sort.Strings(paths)
	return &DirectoryDocumentIterator{root: corpusDir, paths: paths}, nil
}

// Next implements DocumentIterator, reading each file's contents eagerly.
func (it *DirectoryDocumentIterator) Next() (Document, bool, error) {
	if it.pos >= len(it.paths) {
		return Document{}, false, nil
	}
	path := it.paths[it.pos]
	it.pos++

	f, err := os.Open(path)
	if err != nil {
		return Document{}, false, fmt.Errorf("bsbidx: opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Document{}, false, fmt.Errorf("bsbidx: reading %s: %w", path, err)
	}

	rel, err := filepath.Rel(it.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	return Document{Name: rel, Text: string(data)}, true, nil
}
