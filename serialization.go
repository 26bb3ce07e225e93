package bsbidx

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ON-DISK ARTEFACT SERIALISATION
// ═══════════════════════════════════════════════════════════════════════════════
// vocabulary.dat, skips.dat, metadata.dat, and doc_vectors.dat each use a
// documented, stable binary layout: a leading count, then fixed-plus-length-
// prefixed records. All multi-byte integers are little-endian.
// ═══════════════════════════════════════════════════════════════════════════════

// VocabEntry is a vocabulary.dat record: where a term's posting list
// begins and how many postings it has.
type VocabEntry struct {
	Offset uint64
	DF     uint32
}

// Vocabulary maps a term string to its posting-list location.
type Vocabulary map[string]VocabEntry

// SkipTable maps a term string to its (possibly empty) posting skip list.
type SkipTable map[string]PostingSkipList

// Metadata maps a DocID to its document name.
type Metadata map[uint32]string

// DocVector is the supplemental per-document term-frequency cache
// (SPEC_FULL §13), persisted so C9/C10 need not re-derive it from postings.
type DocVector struct {
	Length uint32
	Freqs  map[string]uint32
}

// CollectionModel bundles the language-model inputs C10 needs: the total
// token count across the whole collection, each term's collection
// frequency, and every document's term-frequency vector.
type CollectionModel struct {
	TotalTokens    uint64
	CollectionFreq map[string]uint64
	DocVectors     map[uint32]DocVector
}

func writeUint16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func writeUint32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func writeUint64(buf *bytes.Buffer, v uint64) { binary.Write(buf, binary.LittleEndian, v) }

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("bsbidx: term %q exceeds the 65535-byte length-prefix limit", s)
	}
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) readUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrTruncatedArtefact
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrTruncatedArtefact
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrTruncatedArtefact
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	l, err := r.readUint16()
	if err != nil {
		return "", err
	}
	if r.pos+int(l) > len(r.data) {
		return "", ErrTruncatedArtefact
	}
	s := string(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return s, nil
}

// EncodeVocabulary serialises v as: u32 term_count, then per term
// {u16 length, term bytes, u64 offset, u32 df}.
func EncodeVocabulary(v Vocabulary) ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(v)))
	for term, entry := range v {
		if err := writeString(&buf, term); err != nil {
			return nil, err
		}
		writeUint64(&buf, entry.Offset)
		writeUint32(&buf, entry.DF)
	}
	return buf.Bytes(), nil
}

// DecodeVocabulary inverts EncodeVocabulary.
func DecodeVocabulary(data []byte) (Vocabulary, error) {
	r := &byteReader{data: data}
	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	v := make(Vocabulary, count)
	for i := uint32(0); i < count; i++ {
		term, err := r.readString()
		if err != nil {
			return nil, err
		}
		offset, err := r.readUint64()
		if err != nil {
			return nil, err
		}
		df, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		v[term] = VocabEntry{Offset: offset, DF: df}
	}
	return v, nil
}

// EncodeSkips serialises s as: u32 term_count, then per term
// {u16 length, term bytes, u32 skip_count, then skip_count * (u32 docid, u64 offset)}.
func EncodeSkips(s SkipTable) ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(s)))
	for term, entries := range s {
		if err := writeString(&buf, term); err != nil {
			return nil, err
		}
		writeUint32(&buf, uint32(len(entries)))
		for _, e := range entries {
			writeUint32(&buf, e.DocID)
			writeUint64(&buf, uint64(e.Offset))
		}
	}
	return buf.Bytes(), nil
}

// DecodeSkips inverts EncodeSkips.
func DecodeSkips(data []byte) (SkipTable, error) {
	r := &byteReader{data: data}
	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	s := make(SkipTable, count)
	for i := uint32(0); i < count; i++ {
		term, err := r.readString()
		if err != nil {
			return nil, err
		}
		n, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		entries := make(PostingSkipList, n)
		for j := uint32(0); j < n; j++ {
			docID, err := r.readUint32()
			if err != nil {
				return nil, err
			}
			offset, err := r.readUint64()
			if err != nil {
				return nil, err
			}
			entries[j] = SkipEntry{DocID: docID, Offset: int64(offset)}
		}
		s[term] = entries
	}
	return s, nil
}

// EncodeMetadata serialises m as: u32 doc_count, then per doc
// {u32 docid, u16 namelen, name bytes}.
func EncodeMetadata(m Metadata) ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(m)))
	for docID, name := range m {
		writeUint32(&buf, docID)
		if err := writeString(&buf, name); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeMetadata inverts EncodeMetadata.
func DecodeMetadata(data []byte) (Metadata, error) {
	r := &byteReader{data: data}
	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	m := make(Metadata, count)
	for i := uint32(0); i < count; i++ {
		docID, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		m[docID] = name
	}
	return m, nil
}

// EncodeCollectionModel serialises cm as: u64 total_tokens, u32 cf_count,
// then per term {u16 length, bytes, u64 cf}, then u32 doc_count, then per
// doc {u32 docid, u32 doclen, u32 term_count, then term_count *
// {u16 length, bytes, u32 freq}}.
func EncodeCollectionModel(cm CollectionModel) ([]byte, error) {
	var buf bytes.Buffer
	writeUint64(&buf, cm.TotalTokens)

	writeUint32(&buf, uint32(len(cm.CollectionFreq)))
	for term, cf := range cm.CollectionFreq {
		if err := writeString(&buf, term); err != nil {
			return nil, err
		}
		writeUint64(&buf, cf)
	}

	writeUint32(&buf, uint32(len(cm.DocVectors)))
	for docID, dv := range cm.DocVectors {
		writeUint32(&buf, docID)
		writeUint32(&buf, dv.Length)
		writeUint32(&buf, uint32(len(dv.Freqs)))
		for term, freq := range dv.Freqs {
			if err := writeString(&buf, term); err != nil {
				return nil, err
			}
			writeUint32(&buf, freq)
		}
	}
	return buf.Bytes(), nil
}

// DecodeCollectionModel inverts EncodeCollectionModel.
func DecodeCollectionModel(data []byte) (CollectionModel, error) {
	r := &byteReader{data: data}
	cm := CollectionModel{}

	total, err := r.readUint64()
	if err != nil {
		return cm, err
	}
	cm.TotalTokens = total

	cfCount, err := r.readUint32()
	if err != nil {
		return cm, err
	}
	cm.CollectionFreq = make(map[string]uint64, cfCount)
	for i := uint32(0); i < cfCount; i++ {
		term, err := r.readString()
		if err != nil {
			return cm, err
		}
		cf, err := r.readUint64()
		if err != nil {
			return cm, err
		}
		cm.CollectionFreq[term] = cf
	}

	docCount, err := r.readUint32()
	if err != nil {
		return cm, err
	}
	cm.DocVectors = make(map[uint32]DocVector, docCount)
	for i := uint32(0); i < docCount; i++ {
		docID, err := r.readUint32()
		if err != nil {
			return cm, err
		}
		length, err := r.readUint32()
		if err != nil {
			return cm, err
		}
		termCount, err := r.readUint32()
		if err != nil {
			return cm, err
		}
		freqs := make(map[string]uint32, termCount)
		for j := uint32(0); j < termCount; j++ {
			term, err := r.readString()
			if err != nil {
				return cm, err
			}
			freq, err := r.readUint32()
			if err != nil {
				return cm, err
			}
			freqs[term] = freq
		}
		cm.DocVectors[docID] = DocVector{Length: length, Freqs: freqs}
	}
	return cm, nil
}
