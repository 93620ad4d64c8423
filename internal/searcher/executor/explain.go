package executor

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// TermExplanation is the score breakdown of one query term in one document.
type TermExplanation struct {
	Term         string  `json:"term"`
	TF           int     `json:"tf"`
	DF           int     `json:"df"`
	NumDocs      int     `json:"num_docs"`
	TFWeight     float64 `json:"tf_weight"`
	IDF          float64 `json:"idf"`
	Contribution float64 `json:"contribution"`
}

// Explanation breaks a document's score into per-term contributions.
type Explanation struct {
	DocID   uint32            `json:"doc_id"`
	Query   string            `json:"query"`
	Matched bool              `json:"matched"`
	Score   float64           `json:"score"`
	Terms   []TermExplanation `json:"terms"`
}

// Explain computes the breakdown for docID. The numbers equal what Search
// uses; Score is 0 when the document does not match q.
func Explain(idx *index.Index, q query.Query, docID uint32) (*Explanation, error) {
	if _, ok := idx.Doc(docID); !ok {
		return nil, fmt.Errorf("%w: document %d (index has %d)", apperrors.ErrDocumentNotFound, docID, idx.NumDocs())
	}
	exp := &Explanation{DocID: docID, Terms: []TermExplanation{}}
	if q == nil {
		return exp, nil
	}
	exp.Query = q.String()

	matched, err := match(idx, q)
	if err != nil {
		return nil, err
	}
	exp.Matched = matched.Contains(docID)

	n := idx.NumDocs()
	for _, tp := range resolveTerms(idx, q.QueryTerms()) {
		te := TermExplanation{
			Term:    tp.term.String(),
			DF:      tp.postings.DocFreq(),
			NumDocs: n,
		}
		if p, ok := tp.postings.Find(docID); ok {
			te.TF = int(p.Freq)
		}
		te.TFWeight = ranker.TFWeight(te.TF)
		te.IDF = ranker.IDF(n, te.DF)
		te.Contribution = te.TFWeight * te.IDF
		exp.Terms = append(exp.Terms, te)
	}
	if exp.Matched {
		exp.Score = score(resolveTerms(idx, q.QueryTerms()), docID, n)
	}
	return exp, nil
}

// String renders the explanation as an indented tree.
func (e *Explanation) String() string {
	var sb strings.Builder
	if !e.Matched {
		fmt.Fprintf(&sb, "%.4f = no match for %s in doc %d\n", 0.0, e.Query, e.DocID)
	} else {
		fmt.Fprintf(&sb, "%.4f = sum of:\n", e.Score)
	}
	for _, t := range e.Terms {
		fmt.Fprintf(&sb, "  %.4f = weight(%s in %d), product of:\n", t.Contribution, t.Term, e.DocID)
		fmt.Fprintf(&sb, "    %.4f = tf = log2(1+freq), freq=%d\n", t.TFWeight, t.TF)
		fmt.Fprintf(&sb, "    %.4f = idf = log2(numDocs/docFreq), numDocs=%d, docFreq=%d\n", t.IDF, t.NumDocs, t.DF)
	}
	return sb.String()
}
