package index

import (
	"github.com/google/btree"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

type termAcc struct {
	term     Term
	postings []Posting
}

// Builder accumulates documents into an ordered term tree. It is not safe for
// concurrent use; callers feed it documents in their final id order.
type Builder struct {
	terms        *btree.BTreeG[*termAcc]
	docs         []Document
	numPositions int
}

func NewBuilder() *Builder {
	return &Builder{
		terms: btree.NewG(32, func(a, b *termAcc) bool {
			return a.term.Less(b.term)
		}),
	}
}

// Add assigns the next document id to doc and records its postings.
func (b *Builder) Add(doc AnalyzedDocument) uint32 {
	id := uint32(len(b.docs))
	b.docs = append(b.docs, Document{ID: id, Stored: doc.Stored, Modified: doc.Modified})

	for _, f := range doc.Fields {
		perTerm := make(map[string]*Posting)
		order := make([]string, 0)
		for _, tok := range f.Tokens {
			p, ok := perTerm[tok.Term]
			if !ok {
				p = &Posting{DocID: id, Positions: make([]uint32, 0, 2)}
				perTerm[tok.Term] = p
				order = append(order, tok.Term)
			}
			p.Freq++
			p.Positions = append(p.Positions, uint32(tok.Position))
		}
		for _, text := range order {
			key := &termAcc{term: Term{Field: f.Field, Text: text}}
			acc, ok := b.terms.Get(key)
			if !ok {
				acc = key
				b.terms.ReplaceOrInsert(acc)
			}
			acc.postings = append(acc.postings, *perTerm[text])
			b.numPositions += len(perTerm[text].Positions)
		}
	}
	return id
}

func (b *Builder) NumDocs() int {
	return len(b.docs)
}

// Build freezes the accumulated documents into an Index. The tree already
// yields terms in order, so the arena is written front to back without a
// sort. The Builder must not be used afterwards.
func (b *Builder) Build(generation uint64, analyzerCfg config.AnalyzerConfig) *Index {
	n := b.terms.Len()
	dict := &TermDictionary{
		terms:    make([]Term, 0, n),
		offsets:  make([]uint32, 1, n+1),
		postings: make([]Posting, 0),
	}
	arena := make([]uint32, 0, b.numPositions)
	b.terms.Ascend(func(acc *termAcc) bool {
		for _, p := range acc.postings {
			start := len(arena)
			arena = append(arena, p.Positions...)
			dict.postings = append(dict.postings, Posting{
				DocID:     p.DocID,
				Freq:      p.Freq,
				Positions: arena[start:len(arena):len(arena)],
			})
		}
		dict.terms = append(dict.terms, acc.term)
		dict.offsets = append(dict.offsets, uint32(len(dict.postings)))
		return true
	})
	b.terms.Clear(false)

	return &Index{
		generation: generation,
		analyzer:   analyzerCfg,
		dict:       dict,
		docs:       b.docs,
	}
}
