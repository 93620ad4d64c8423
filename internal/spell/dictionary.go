// Package spell suggests in-vocabulary replacements for misspelled terms.
// A Dictionary is derived from exactly one index generation: its vocabulary
// is the set of terms of one field, and candidates are found through an
// n-gram index of roaring bitmaps over vocabulary ordinals.
package spell

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// FileName is the name of the persisted dictionary inside a generation.
const FileName = "spell.db"

// Dictionary is immutable once built and safe for concurrent use.
type Dictionary struct {
	generation uint64
	field      string
	gramSize   int
	minSim     float64
	words      []string
	grams      map[string]*roaring.Bitmap
}

// Build derives a dictionary from the terms of field in dict.
func Build(dict *index.TermDictionary, field string, generation uint64, cfg config.SpellConfig) *Dictionary {
	var words []string
	for w := range dict.Field(field) {
		words = append(words, w)
	}
	return fromWords(words, field, generation, cfg.GramSize, cfg.MinSimilarity)
}

// fromWords expects words sorted and distinct, as the term dictionary
// yields them.
func fromWords(words []string, field string, generation uint64, gramSize int, minSim float64) *Dictionary {
	d := &Dictionary{
		generation: generation,
		field:      field,
		gramSize:   max(gramSize, 1),
		minSim:     minSim,
		words:      words,
		grams:      make(map[string]*roaring.Bitmap),
	}
	sizes := indexSizes(d.gramSize)
	for ord, w := range words {
		for _, g := range grams([]rune(w), sizes) {
			bm, ok := d.grams[g]
			if !ok {
				bm = roaring.New()
				d.grams[g] = bm
			}
			bm.Add(uint32(ord))
		}
	}
	for _, bm := range d.grams {
		bm.RunOptimize()
	}
	return d
}

func (d *Dictionary) Generation() uint64 {
	return d.generation
}

func (d *Dictionary) Field() string {
	return d.field
}

func (d *Dictionary) Len() int {
	return len(d.words)
}

// Exists reports whether term is in the vocabulary.
func (d *Dictionary) Exists(term string) bool {
	i := sort.SearchStrings(d.words, term)
	return i < len(d.words) && d.words[i] == term
}

type candidate struct {
	word string
	dist int
	dice float64
}

// Suggest returns up to k vocabulary terms close to term, best first: fewest
// edits, then most shared grams, then alphabetical. term itself is never
// returned. No suggestion yields an empty slice.
func (d *Dictionary) Suggest(term string, k int) []string {
	if k <= 0 || term == "" || len(d.words) == 0 {
		return []string{}
	}
	q := []rune(term)
	sizes := gramSizes(len(q), d.gramSize)
	qGrams := grams(q, sizes)

	bitmaps := make([]*roaring.Bitmap, 0, len(qGrams))
	for _, g := range qGrams {
		if bm, ok := d.grams[g]; ok {
			bitmaps = append(bitmaps, bm)
		}
	}
	if len(bitmaps) == 0 {
		return []string{}
	}

	var cands []candidate
	it := roaring.FastOr(bitmaps...).Iterator()
	for it.HasNext() {
		w := d.words[it.Next()]
		if w == term {
			continue
		}
		r := []rune(w)
		dist := editDistance(q, r)
		if 1-float64(dist)/float64(len(q)) < d.minSim {
			continue
		}
		cands = append(cands, candidate{word: w, dist: dist, dice: dice(qGrams, grams(r, sizes))})
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.dice != b.dice {
			return a.dice > b.dice
		}
		return a.word < b.word
	})

	out := make([]string, 0, min(k, len(cands)))
	for _, c := range cands[:min(k, len(cands))] {
		out = append(out, c.word)
	}
	return out
}
