package bsbidx

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SKIP LISTS OVER POSTING LISTS (C6)
// ═══════════════════════════════════════════════════════════════════════════════
// Unlike the teacher's token-position skip list (a mutable, probabilistic
// tower structure supporting insert/delete), a posting-list skip list here
// is a small, immutable, sorted sample computed once at merge time: entries
// at posting positions 0, k, 2k, … where k = floor(sqrt(df)). Too short a
// posting list (df < 4, i.e. k < 2) gets no skip list at all.
// ═══════════════════════════════════════════════════════════════════════════════

// SkipEntry is one sampled point in a posting list: the DocID stored there
// and the byte offset (within postings.bin) at which that posting begins.
type SkipEntry struct {
	DocID  uint32
	Offset int64
}

// PostingSkipList is the ordered sequence of samples for one term's
// posting list. A nil/empty list means "no skip list" (df < 4).
type PostingSkipList []SkipEntry

// SkipInterval returns k = floor(sqrt(df)), the sampling interval spec.md
// §4.6 specifies. A df with k < 2 gets no skip list.
func SkipInterval(df int) int {
	if df <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(df)))
}

// BuildPostingSkipList samples postings at positions 0, k, 2k, … where
// k = SkipInterval(len(postings)), using byteOffsetOf to compute each
// sampled posting's file offset. Returns nil when k < 2.
//
// sampled tracks which positions have already been recorded, using a
// bitset rather than a map — this is the one call site in the repository
// that exercises bits-and-blooms/bitset directly rather than through
// roaring's internal use of it.
func BuildPostingSkipList(postings []Posting, byteOffsetOf func(pos int) int64) PostingSkipList {
	df := len(postings)
	k := SkipInterval(df)
	if k < 2 {
		return nil
	}

	sampled := bitset.New(uint(df))
	var out PostingSkipList
	for pos := 0; pos < df; pos += k {
		if sampled.Test(uint(pos)) {
			continue
		}
		sampled.Set(uint(pos))
		out = append(out, SkipEntry{
			DocID:  postings[pos].DocID,
			Offset: byteOffsetOf(pos),
		})
	}
	return out
}

// SkipCursor walks a PostingSkipList forward, enforcing spec.md §4.6's
// invariant that the cursor never moves backwards within a traversal.
type SkipCursor struct {
	entries PostingSkipList
	idx     int // index of the last entry returned by AdvanceTo
}

// NewSkipCursor returns a cursor positioned before the first sample.
func NewSkipCursor(entries PostingSkipList) *SkipCursor {
	return &SkipCursor{entries: entries, idx: -1}
}

// AdvanceTo looks for the largest sample whose DocID is <= target and whose
// byte offset exceeds currentOffset, without moving the cursor before its
// current position. It returns that offset and true if such a sample
// exists and moving to it would advance the posting reader forward;
// otherwise it returns (0, false) ("no skip possible") and leaves the
// cursor where it was.
func (c *SkipCursor) AdvanceTo(target uint32, currentOffset int64) (int64, bool) {
	best := -1
	for i := c.idx + 1; i < len(c.entries); i++ {
		e := c.entries[i]
		if e.DocID > target {
			break
		}
		if e.Offset <= currentOffset {
			continue
		}
		best = i
	}
	if best == -1 {
		return 0, false
	}
	c.idx = best
	return c.entries[best].Offset, true
}
