package bsbidx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TERM-LEVEL POSTING COMPRESSION (C11)
// ═══════════════════════════════════════════════════════════════════════════════
// A secondary, opt-in representation of an already-built index: one
// <term>.docids.vb / <term>.freqs.eg file pair per vocabulary term, plus a
// single-byte manifest recording whether the d-gap transform was applied.
// <term>.freqs.eg carries its own 4-byte little-endian count prefix ahead
// of the Elias-gamma bit-stream, so decoding a term needs nothing but its
// own two files and the global dgaps flag. Decompression never touches the
// original postings.bin.
// ═══════════════════════════════════════════════════════════════════════════════

const compressManifestFile = "manifest.dat"

// CompressIndex writes a term-per-file VByte/Elias-gamma encoding of every
// posting list in idx into dir, optionally d-gap transforming document IDs
// first.
func CompressIndex(idx *Index, dir string, dgaps bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bsbidx: creating compressed dir: %w", err)
	}

	for term := range idx.vocab {
		postings, err := idx.Postings(term)
		if err != nil {
			return fmt.Errorf("bsbidx: reading postings for %q: %w", term, err)
		}

		docIDs := make([]uint32, len(postings))
		freqs := make([]uint32, len(postings))
		for i, p := range postings {
			docIDs[i] = p.DocID
			freqs[i] = p.Freq
		}
		if dgaps {
			docIDs = ComputeDGaps(docIDs)
		}

		vb := VByteEncodeList(docIDs)
		gamma, err := EliasGammaEncodeList(freqs)
		if err != nil {
			return fmt.Errorf("bsbidx: encoding frequencies for %q: %w", term, err)
		}
		eg := make([]byte, 4+len(gamma))
		binary.LittleEndian.PutUint32(eg, uint32(len(freqs)))
		copy(eg[4:], gamma)

		base := sanitizeTermFilename(term)
		if err := writeFileAtomic(filepath.Join(dir, base+".docids.vb"), vb); err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(dir, base+".freqs.eg"), eg); err != nil {
			return err
		}
	}

	manifestBytes := []byte{0}
	if dgaps {
		manifestBytes[0] = 1
	}
	return writeFileAtomic(filepath.Join(dir, compressManifestFile), manifestBytes)
}

// DecompressTerm reads a term's compressed posting list back from dir,
// inverting the d-gap transform CompressIndex applied if the manifest's
// flag is set. A term with no compressed files yields an empty, non-nil
// slice and no error, matching Index.Postings' unknown-term contract.
func DecompressTerm(dir, term string) ([]Posting, error) {
	manifestBytes, err := os.ReadFile(filepath.Join(dir, compressManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no compressed index at %s", ErrIndexNotFound, dir)
		}
		return nil, fmt.Errorf("bsbidx: reading compression manifest: %w", err)
	}
	if len(manifestBytes) < 1 {
		return nil, ErrTruncatedArtefact
	}
	dgaps := manifestBytes[0] != 0

	base := sanitizeTermFilename(term)
	vb, err := os.ReadFile(filepath.Join(dir, base+".docids.vb"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Posting{}, nil
		}
		return nil, fmt.Errorf("bsbidx: reading %q docids: %w", term, err)
	}
	eg, err := os.ReadFile(filepath.Join(dir, base+".freqs.eg"))
	if err != nil {
		return nil, fmt.Errorf("bsbidx: reading %q freqs: %w", term, err)
	}
	if len(eg) < 4 {
		return nil, fmt.Errorf("%w: %q freqs file too short for length prefix", ErrTruncatedArtefact, term)
	}
	count := int(binary.LittleEndian.Uint32(eg[:4]))

	docIDs := VByteDecodeList(vb)
	if dgaps {
		docIDs = RestoreDGaps(docIDs)
	}
	freqs, err := EliasGammaDecodeList(eg[4:], count)
	if err != nil {
		return nil, fmt.Errorf("bsbidx: decoding %q freqs: %w", term, err)
	}
	if len(docIDs) != len(freqs) {
		return nil, fmt.Errorf("%w: %q has %d docids but %d freqs", ErrBadPostingSize, term, len(docIDs), len(freqs))
	}

	postings := make([]Posting, len(docIDs))
	for i := range docIDs {
		postings[i] = Posting{DocID: docIDs[i], Freq: freqs[i]}
	}
	return postings, nil
}

// sanitizeTermFilename maps a term to a filesystem-safe basename. Tokens
// extracted by the tokenizer are almost always plain words or numbers, but
// URL/email tokens can contain '/', so path separators are escaped rather
// than trusted verbatim.
func sanitizeTermFilename(term string) string {
	return strings.NewReplacer("/", "_SLASH_", "\\", "_BSLASH_").Replace(term)
}
