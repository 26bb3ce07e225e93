package bsbidx

import (
	"encoding/binary"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING RECORD
// ═══════════════════════════════════════════════════════════════════════════════

// PostingSize is the fixed on-disk width, in bytes, of a final posting
// record: two little-endian uint32 fields, DocID then Freq.
const PostingSize = 8

// Posting is the final ⟨DocID, Freq⟩ pair stored in postings.bin.
type Posting struct {
	DocID uint32
	Freq  uint32
}

// Bytes serialises p into its fixed 8-byte little-endian layout.
func (p Posting) Bytes() []byte {
	buf := make([]byte, PostingSize)
	binary.LittleEndian.PutUint32(buf[0:4], p.DocID)
	binary.LittleEndian.PutUint32(buf[4:8], p.Freq)
	return buf
}

// PostingFromBytes parses a single posting record out of buf, which must be
// at least PostingSize bytes long.
func PostingFromBytes(buf []byte) (Posting, error) {
	if len(buf) < PostingSize {
		return Posting{}, fmt.Errorf("bsbidx: short posting buffer: got %d bytes, need %d", len(buf), PostingSize)
	}
	return Posting{
		DocID: binary.LittleEndian.Uint32(buf[0:4]),
		Freq:  binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// PostingsFromBytes parses a whole contiguous run of posting records.
func PostingsFromBytes(buf []byte) ([]Posting, error) {
	if len(buf)%PostingSize != 0 {
		return nil, fmt.Errorf("bsbidx: posting buffer length %d is not a multiple of %d", len(buf), PostingSize)
	}
	n := len(buf) / PostingSize
	out := make([]Posting, n)
	for i := 0; i < n; i++ {
		p, err := PostingFromBytes(buf[i*PostingSize : (i+1)*PostingSize])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// PartialPosting is the ⟨TermID, DocID, Freq⟩ triple produced during
// ingestion, before terms are grouped into final posting lists.
type PartialPosting struct {
	TermID uint32
	DocID  uint32
	Freq   uint32
}

// PartialPostingSize is the fixed on-disk width of a partial-run record.
const PartialPostingSize = 12

// Bytes serialises a partial posting into its fixed 12-byte little-endian layout.
func (p PartialPosting) Bytes() []byte {
	buf := make([]byte, PartialPostingSize)
	binary.LittleEndian.PutUint32(buf[0:4], p.TermID)
	binary.LittleEndian.PutUint32(buf[4:8], p.DocID)
	binary.LittleEndian.PutUint32(buf[8:12], p.Freq)
	return buf
}

// PartialPostingFromBytes parses a single partial-run record.
func PartialPostingFromBytes(buf []byte) (PartialPosting, error) {
	if len(buf) < PartialPostingSize {
		return PartialPosting{}, fmt.Errorf("bsbidx: short partial-posting buffer: got %d bytes, need %d", len(buf), PartialPostingSize)
	}
	return PartialPosting{
		TermID: binary.LittleEndian.Uint32(buf[0:4]),
		DocID:  binary.LittleEndian.Uint32(buf[4:8]),
		Freq:   binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// less reports whether p sorts before o under the (TermID, DocID) order
// used throughout chunk files and the BSBI merge.
func (p PartialPosting) less(o PartialPosting) bool {
	if p.TermID != o.TermID {
		return p.TermID < o.TermID
	}
	return p.DocID < o.DocID
}
