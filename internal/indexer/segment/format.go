package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// index.spdx layout: a fixed header, four JSON blocks (analyzer config,
// dictionary, postings, documents) and a footer with a CRC32 over everything
// before it.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 96
	FooterSize    int    = 8
)

const (
	blockAnalyzer = iota
	blockDict
	blockPostings
	blockDocs
	numBlocks
)

// Header is the fixed-size preamble of an index file.
type Header struct {
	Magic        uint32
	Version      uint32
	Generation   uint64
	TermCount    uint32
	DocCount     uint32
	PostingCount uint64
	Blocks       [numBlocks]struct{ Offset, Size uint64 }
}

func (h *Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint64(b[8:16], h.Generation)
	binary.LittleEndian.PutUint32(b[16:20], h.TermCount)
	binary.LittleEndian.PutUint32(b[20:24], h.DocCount)
	binary.LittleEndian.PutUint64(b[24:32], h.PostingCount)
	for i, blk := range h.Blocks {
		off := 32 + i*16
		binary.LittleEndian.PutUint64(b[off:off+8], blk.Offset)
		binary.LittleEndian.PutUint64(b[off+8:off+16], blk.Size)
	}
	return b
}

func unmarshalHeader(b []byte) Header {
	h := Header{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		Generation:   binary.LittleEndian.Uint64(b[8:16]),
		TermCount:    binary.LittleEndian.Uint32(b[16:20]),
		DocCount:     binary.LittleEndian.Uint32(b[20:24]),
		PostingCount: binary.LittleEndian.Uint64(b[24:32]),
	}
	for i := range h.Blocks {
		off := 32 + i*16
		h.Blocks[i].Offset = binary.LittleEndian.Uint64(b[off : off+8])
		h.Blocks[i].Size = binary.LittleEndian.Uint64(b[off+8 : off+16])
	}
	return h
}

type dictBlock struct {
	Terms   []index.Term `json:"terms"`
	Offsets []uint32     `json:"offsets"`
}

// Encode serialises idx into the index.spdx byte layout. The output depends
// only on the index contents.
func Encode(idx *index.Index) ([]byte, error) {
	d := idx.Dictionary()
	db := dictBlock{
		Terms:   make([]index.Term, 0, d.Len()),
		Offsets: make([]uint32, 1, d.Len()+1),
	}
	postings := make([]index.Posting, 0, d.NumPostings())
	for t, pl := range d.All() {
		db.Terms = append(db.Terms, t)
		postings = append(postings, pl...)
		db.Offsets = append(db.Offsets, uint32(len(postings)))
	}

	blocks := make([][]byte, numBlocks)
	var err error
	if blocks[blockAnalyzer], err = json.Marshal(idx.AnalyzerConfig()); err != nil {
		return nil, fmt.Errorf("marshaling analyzer config: %w", err)
	}
	if blocks[blockDict], err = json.Marshal(db); err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	if blocks[blockPostings], err = json.Marshal(postings); err != nil {
		return nil, fmt.Errorf("marshaling postings: %w", err)
	}
	if blocks[blockDocs], err = json.Marshal(idx.Docs()); err != nil {
		return nil, fmt.Errorf("marshaling documents: %w", err)
	}

	h := Header{
		Magic:        MagicBytes,
		Version:      FormatVersion,
		Generation:   idx.Generation(),
		TermCount:    uint32(d.Len()),
		DocCount:     uint32(idx.NumDocs()),
		PostingCount: uint64(len(postings)),
	}
	offset := uint64(HeaderSize)
	size := HeaderSize + FooterSize
	for i, blk := range blocks {
		h.Blocks[i].Offset = offset
		h.Blocks[i].Size = uint64(len(blk))
		offset += uint64(len(blk))
		size += len(blk)
	}

	out := make([]byte, 0, size)
	out = append(out, h.marshal()...)
	for _, blk := range blocks {
		out = append(out, blk...)
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(out))
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)
	return append(out, footer...), nil
}

// Decode parses and validates an index file. Any mismatch is reported as a
// corruption error; a partially decoded index is never returned.
func Decode(data []byte) (*index.Index, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, corruptf("file is %d bytes, shorter than header and footer", len(data))
	}
	h := unmarshalHeader(data[:HeaderSize])
	if h.Magic != MagicBytes {
		return nil, corruptf("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, corruptf("unsupported format version %d", h.Version)
	}
	body := data[:len(data)-FooterSize]
	footer := data[len(data)-FooterSize:]
	if binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return nil, corruptf("bad footer magic")
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(body); want != got {
		return nil, corruptf("checksum mismatch: stored %08x, computed %08x", want, got)
	}

	block := func(i int) ([]byte, error) {
		b := h.Blocks[i]
		if b.Offset < uint64(HeaderSize) || b.Offset+b.Size > uint64(len(body)) || b.Offset+b.Size < b.Offset {
			return nil, corruptf("block %d spans [%d, %d) outside the file", i, b.Offset, b.Offset+b.Size)
		}
		return body[b.Offset : b.Offset+b.Size], nil
	}

	var analyzerCfg config.AnalyzerConfig
	var db dictBlock
	var postings []index.Posting
	var docs []index.Document
	targets := []any{&analyzerCfg, &db, &postings, &docs}
	for i, target := range targets {
		raw, err := block(i)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, corruptf("decoding block %d: %v", i, err)
		}
	}
	if docs == nil {
		docs = []index.Document{}
	}
	if int(h.TermCount) != len(db.Terms) || int(h.DocCount) != len(docs) || h.PostingCount != uint64(len(postings)) {
		return nil, corruptf("header counts (%d terms, %d docs, %d postings) disagree with blocks (%d, %d, %d)",
			h.TermCount, h.DocCount, h.PostingCount, len(db.Terms), len(docs), len(postings))
	}
	return index.Assemble(h.Generation, analyzerCfg, db.Terms, db.Offsets, postings, docs)
}
