// Package executor evaluates queries against one index generation: it finds
// the matching documents, scores them with TF-IDF and keeps the best hits.
package executor

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// ScoredDocument is one ranked hit. Path is nil when the document has no
// stored path.
type ScoredDocument struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
	Path  *string `json:"path"`
}

// Result holds the best hits and the true number of matching documents.
type Result struct {
	TotalHits int              `json:"total_hits"`
	Hits      []ScoredDocument `json:"hits"`
}

// Search returns up to maxResults hits for q, best first. A nil query
// matches nothing.
func Search(idx *index.Index, q query.Query, maxResults int) (*Result, error) {
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", apperrors.ErrInvalidInput, maxResults)
	}
	if q == nil {
		return &Result{Hits: []ScoredDocument{}}, nil
	}
	matched, err := match(idx, q)
	if err != nil {
		return nil, err
	}

	terms := resolveTerms(idx, q.QueryTerms())
	top := ranker.NewTopK(maxResults)
	it := matched.Iterator()
	for it.HasNext() {
		docID := it.Next()
		top.Push(ranker.ScoredDoc{DocID: docID, Score: score(terms, docID, idx.NumDocs())})
	}

	ranked := top.Sorted()
	hits := make([]ScoredDocument, len(ranked))
	for i, r := range ranked {
		hits[i] = ScoredDocument{DocID: r.DocID, Score: r.Score}
		if doc, ok := idx.Doc(r.DocID); ok {
			if p, ok := doc.Path(); ok {
				hits[i].Path = &p
			}
		}
	}
	return &Result{TotalHits: int(matched.GetCardinality()), Hits: hits}, nil
}

type termPostings struct {
	term     index.Term
	postings index.PostingsList
}

func resolveTerms(idx *index.Index, terms []index.Term) []termPostings {
	out := make([]termPostings, len(terms))
	for i, t := range terms {
		out[i] = termPostings{term: t, postings: idx.Postings(t)}
	}
	return out
}

// score sums tfWeight * idf over every query term, duplicates included.
func score(terms []termPostings, docID uint32, numDocs int) float64 {
	var total float64
	for _, tp := range terms {
		p, ok := tp.postings.Find(docID)
		if !ok {
			continue
		}
		total += ranker.TFWeight(int(p.Freq)) * ranker.IDF(numDocs, tp.postings.DocFreq())
	}
	return total
}

// match returns the set of documents satisfying q.
func match(idx *index.Index, q query.Query) (*roaring.Bitmap, error) {
	switch q := q.(type) {
	case *query.TermQuery:
		return docSet(idx.Postings(q.Term)), nil
	case *query.PhraseQuery:
		return matchPhrase(idx, q), nil
	case *query.BooleanQuery:
		if len(q.Clauses) == 0 {
			return roaring.New(), nil
		}
		sets := make([]*roaring.Bitmap, 0, len(q.Clauses))
		for _, c := range q.Clauses {
			s, err := match(idx, c)
			if err != nil {
				return nil, err
			}
			if s.IsEmpty() {
				return s, nil
			}
			sets = append(sets, s)
		}
		return roaring.FastAnd(sets...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported query type %T", apperrors.ErrInternal, q)
	}
}

func docSet(pl index.PostingsList) *roaring.Bitmap {
	return roaring.BitmapOf(pl.DocIDs()...)
}

func matchPhrase(idx *index.Index, q *query.PhraseQuery) *roaring.Bitmap {
	if len(q.Terms) == 0 {
		return roaring.New()
	}
	lists := make([]index.PostingsList, len(q.Terms))
	sets := make([]*roaring.Bitmap, len(q.Terms))
	for i, t := range q.Terms {
		lists[i] = idx.Postings(t)
		if len(lists[i]) == 0 {
			return roaring.New()
		}
		sets[i] = docSet(lists[i])
	}
	candidates := roaring.FastAnd(sets...)
	if len(q.Terms) == 1 {
		return candidates
	}

	out := roaring.New()
	positions := make([][]uint32, len(lists))
	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		for i, pl := range lists {
			p, _ := pl.Find(docID)
			positions[i] = p.Positions
		}
		if phraseMatches(positions, q.Slop) {
			out.Add(docID)
		}
	}
	return out
}

// phraseMatches reports whether positions can be aligned so that each
// consecutive pair of terms is between 1 and 1+slop positions apart.
func phraseMatches(positions [][]uint32, slop int) bool {
	reach := positions[0]
	for i := 1; i < len(positions); i++ {
		next := make([]uint32, 0, len(positions[i]))
		j := 0
		for _, p := range positions[i] {
			for j < len(reach) && int64(reach[j])+1+int64(slop) < int64(p) {
				j++
			}
			if j < len(reach) && reach[j] < p {
				next = append(next, p)
			}
		}
		if len(next) == 0 {
			return false
		}
		reach = next
	}
	return true
}
