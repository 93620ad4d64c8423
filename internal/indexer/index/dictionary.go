package index

import (
	"iter"
	"sort"
)

// TermDictionary maps every term to its postings. Terms, offsets and postings
// are flat slices: postings[offsets[i]:offsets[i+1]] belong to terms[i], and
// every Posting.Positions aliases one shared positions arena.
type TermDictionary struct {
	terms    []Term
	offsets  []uint32
	postings []Posting
}

func (d *TermDictionary) Len() int {
	return len(d.terms)
}

// NumPostings is the total number of (term, document) pairs.
func (d *TermDictionary) NumPostings() int {
	return len(d.postings)
}

// Lookup returns the ordinal of t.
func (d *TermDictionary) Lookup(t Term) (int, bool) {
	i := sort.Search(len(d.terms), func(i int) bool {
		return d.terms[i].Compare(t) >= 0
	})
	if i < len(d.terms) && d.terms[i] == t {
		return i, true
	}
	return 0, false
}

// Term returns the term at ordinal i.
func (d *TermDictionary) Term(i int) Term {
	return d.terms[i]
}

// PostingsAt returns the postings of the term at ordinal i. The slice is
// shared and must not be modified.
func (d *TermDictionary) PostingsAt(i int) PostingsList {
	return PostingsList(d.postings[d.offsets[i]:d.offsets[i+1]:d.offsets[i+1]])
}

// Postings returns nil when t is absent.
func (d *TermDictionary) Postings(t Term) PostingsList {
	i, ok := d.Lookup(t)
	if !ok {
		return nil
	}
	return d.PostingsAt(i)
}

func (d *TermDictionary) DocFreq(t Term) int {
	i, ok := d.Lookup(t)
	if !ok {
		return 0
	}
	return int(d.offsets[i+1] - d.offsets[i])
}

// All yields every term with its postings in term order.
func (d *TermDictionary) All() iter.Seq2[Term, PostingsList] {
	return func(yield func(Term, PostingsList) bool) {
		for i, t := range d.terms {
			if !yield(t, d.PostingsAt(i)) {
				return
			}
		}
	}
}

// Field yields the texts of one field's terms in ascending order.
func (d *TermDictionary) Field(field string) iter.Seq[string] {
	start := sort.Search(len(d.terms), func(i int) bool {
		return d.terms[i].Field >= field
	})
	return func(yield func(string) bool) {
		for i := start; i < len(d.terms) && d.terms[i].Field == field; i++ {
			if !yield(d.terms[i].Text) {
				return
			}
		}
	}
}
