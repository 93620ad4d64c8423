// Package index holds the immutable inverted index of one generation: the
// term dictionary with positional postings and the stored documents.
package index

import (
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Index is read-only once built and safe for concurrent readers.
type Index struct {
	generation uint64
	analyzer   config.AnalyzerConfig
	dict       *TermDictionary
	docs       []Document
}

func (ix *Index) Generation() uint64 {
	return ix.generation
}

// AnalyzerConfig is the analysis chain the index was built with.
func (ix *Index) AnalyzerConfig() config.AnalyzerConfig {
	return ix.analyzer
}

func (ix *Index) NumDocs() int {
	return len(ix.docs)
}

func (ix *Index) Doc(id uint32) (Document, bool) {
	if int(id) >= len(ix.docs) {
		return Document{}, false
	}
	return ix.docs[id], true
}

// Docs returns the stored documents in id order. The slice is shared.
func (ix *Index) Docs() []Document {
	return ix.docs
}

func (ix *Index) Dictionary() *TermDictionary {
	return ix.dict
}

func (ix *Index) Postings(t Term) PostingsList {
	return ix.dict.Postings(t)
}

func (ix *Index) DocFreq(t Term) int {
	return ix.dict.DocFreq(t)
}

// Vocabulary yields the distinct term texts of field in ascending order.
func (ix *Index) Vocabulary(field string) iter.Seq[string] {
	return ix.dict.Field(field)
}

// Assemble rebuilds an Index from decoded parts and checks every structural
// invariant. Any violation is reported as ErrIndexCorrupt.
func Assemble(generation uint64, analyzerCfg config.AnalyzerConfig, terms []Term, offsets []uint32, postings []Posting, docs []Document) (*Index, error) {
	dict := &TermDictionary{terms: terms, offsets: offsets, postings: postings}
	if err := validate(dict, docs); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexCorrupt, err)
	}
	return &Index{
		generation: generation,
		analyzer:   analyzerCfg,
		dict:       dict,
		docs:       docs,
	}, nil
}

func validate(d *TermDictionary, docs []Document) error {
	for i, doc := range docs {
		if doc.ID != uint32(i) {
			return fmt.Errorf("document %d has id %d", i, doc.ID)
		}
	}
	if len(d.offsets) != len(d.terms)+1 {
		return fmt.Errorf("%d offsets for %d terms", len(d.offsets), len(d.terms))
	}
	if d.offsets[0] != 0 || int(d.offsets[len(d.terms)]) != len(d.postings) {
		return fmt.Errorf("offsets do not span the postings")
	}
	for i := 1; i < len(d.offsets); i++ {
		if d.offsets[i] <= d.offsets[i-1] {
			return fmt.Errorf("term %s has no postings", d.terms[i-1])
		}
	}
	for i, t := range d.terms {
		if i > 0 && d.terms[i-1].Compare(t) >= 0 {
			return fmt.Errorf("term %s out of order", t)
		}
		var prev uint32
		for j, p := range d.PostingsAt(i) {
			if j > 0 && p.DocID <= prev {
				return fmt.Errorf("term %s: doc ids not increasing at %d", t, p.DocID)
			}
			prev = p.DocID
			if int(p.DocID) >= len(docs) {
				return fmt.Errorf("term %s: doc id %d out of range", t, p.DocID)
			}
			if p.Freq == 0 || int(p.Freq) != len(p.Positions) {
				return fmt.Errorf("term %s doc %d: freq %d with %d positions", t, p.DocID, p.Freq, len(p.Positions))
			}
			for k := 1; k < len(p.Positions); k++ {
				if p.Positions[k] <= p.Positions[k-1] {
					return fmt.Errorf("term %s doc %d: positions not increasing", t, p.DocID)
				}
			}
		}
	}
	return nil
}
