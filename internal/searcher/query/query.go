// Package query turns query text into executable Query values. Text is
// analysed with the same chain the index was built with, and each term may
// be rewritten by a Resolver (spell correction) before the query is formed.
package query

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// Query is one of *TermQuery, *PhraseQuery or *BooleanQuery.
type Query interface {
	// QueryTerms lists every constituent term in query order, duplicates
	// included.
	QueryTerms() []index.Term
	String() string
	isQuery()
}

// TermQuery matches documents containing Term.
type TermQuery struct {
	Term index.Term
}

// PhraseQuery matches documents where Terms occur in order and each
// consecutive pair is between 1 and 1+Slop positions apart.
type PhraseQuery struct {
	Terms []index.Term
	Slop  int
}

// BooleanQuery matches documents satisfying every clause.
type BooleanQuery struct {
	Clauses []Query
}

func (*TermQuery) isQuery()    {}
func (*PhraseQuery) isQuery()  {}
func (*BooleanQuery) isQuery() {}

func (q *TermQuery) QueryTerms() []index.Term {
	return []index.Term{q.Term}
}

func (q *TermQuery) String() string {
	return q.Term.String()
}

func (q *PhraseQuery) QueryTerms() []index.Term {
	return q.Terms
}

func (q *PhraseQuery) String() string {
	var sb strings.Builder
	if len(q.Terms) > 0 {
		sb.WriteString(q.Terms[0].Field)
		sb.WriteString(`:"`)
	}
	for i, t := range q.Terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	sb.WriteByte('"')
	if q.Slop > 0 {
		sb.WriteByte('~')
		sb.WriteString(strconv.Itoa(q.Slop))
	}
	return sb.String()
}

func (q *BooleanQuery) QueryTerms() []index.Term {
	var out []index.Term
	for _, c := range q.Clauses {
		out = append(out, c.QueryTerms()...)
	}
	return out
}

func (q *BooleanQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		parts[i] = "+" + c.String()
	}
	return strings.Join(parts, " ")
}
