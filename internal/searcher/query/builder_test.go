package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/spell"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var plain = config.AnalyzerConfig{Stemmer: "none", StopWords: "none"}

func newBuilder(t *testing.T, resolver Resolver, opts ...Option) *Builder {
	t.Helper()
	a, err := analyzer.New(plain)
	require.NoError(t, err)
	return NewBuilder(a, resolver, opts...)
}

func spellResolver(t *testing.T, texts ...string) SpellResolver {
	t.Helper()
	b := index.NewBuilder()
	for _, text := range texts {
		var toks []analyzer.Token
		for pos, w := range strings.Fields(text) {
			toks = append(toks, analyzer.Token{Term: w, Position: pos})
		}
		b.Add(index.AnalyzedDocument{Fields: []index.FieldTokens{{Field: "contents", Tokens: toks}}})
	}
	ix := b.Build(1, plain)
	dict := spell.Build(ix.Dictionary(), "contents", 1, config.SpellConfig{GramSize: 3, MinSimilarity: 0.5})
	return SpellResolver{Dict: dict, Field: "contents"}
}

func term(text string) index.Term {
	return index.Term{Field: "contents", Text: text}
}

func TestParseSingleTerm(t *testing.T) {
	q, corrected, err := newBuilder(t, nil).Parse("Cat", "contents")
	require.NoError(t, err)
	assert.False(t, corrected)
	assert.Equal(t, &TermQuery{Term: term("cat")}, q)
	assert.Equal(t, "contents:cat", q.String())
}

func TestParseBareWordsFormPhrase(t *testing.T) {
	q, _, err := newBuilder(t, nil, WithSlop(1)).Parse("cat sat", "contents")
	require.NoError(t, err)
	assert.Equal(t, &PhraseQuery{Terms: []index.Term{term("cat"), term("sat")}, Slop: 1}, q)
	assert.Equal(t, `contents:"cat sat"~1`, q.String())
}

func TestParseKeepsEveryPhraseTerm(t *testing.T) {
	q, _, err := newBuilder(t, nil).Parse(`"sat cat mat"`, "contents")
	require.NoError(t, err)
	p, ok := q.(*PhraseQuery)
	require.True(t, ok)
	assert.Equal(t, []index.Term{term("sat"), term("cat"), term("mat")}, p.Terms)
	assert.Equal(t, 0, p.Slop)
}

func TestParseExplicitSlopAndClauses(t *testing.T) {
	q, _, err := newBuilder(t, nil).Parse(`"cat mat"~2 dog contents:"on the"`, "contents")
	require.NoError(t, err)
	bq, ok := q.(*BooleanQuery)
	require.True(t, ok)
	require.Len(t, bq.Clauses, 3)
	assert.Equal(t, &PhraseQuery{Terms: []index.Term{term("cat"), term("mat")}, Slop: 2}, bq.Clauses[0])
	assert.Equal(t, &TermQuery{Term: term("dog")}, bq.Clauses[1])
	assert.Equal(t, &PhraseQuery{Terms: []index.Term{term("on"), term("the")}}, bq.Clauses[2])
	assert.Equal(t, `+contents:"cat mat"~2 +contents:dog +contents:"on the"`, q.String())
	assert.Len(t, q.QueryTerms(), 5)
}

func TestParseFieldPrefix(t *testing.T) {
	q, _, err := newBuilder(t, nil).Parse("title:Go", "contents")
	require.NoError(t, err)
	assert.Equal(t, &TermQuery{Term: index.Term{Field: "title", Text: "go"}}, q)
}

func TestParseEmpty(t *testing.T) {
	b := newBuilder(t, nil)
	for _, text := range []string{"", "   ", `""`, "?! ..."} {
		q, corrected, err := b.Parse(text, "contents")
		require.NoError(t, err, text)
		assert.Nil(t, q, text)
		assert.False(t, corrected)
	}
}

func TestParseErrors(t *testing.T) {
	b := newBuilder(t, nil, WithFields("contents"))
	tests := []struct {
		text string
		pos  int
		msg  string
	}{
		{`cat "sat on`, 4, "unbalanced quote"},
		{`:cat`, 0, "empty field prefix"},
		{`"cat sat"~x`, 9, "bad slop"},
		{`"cat sat"~2x`, 9, "bad slop"},
		{`ti*tle:cat`, 0, `bad field name "ti*tle"`},
		{`title:cat`, 0, `unknown field "title"`},
		{`contents: cat`, 9, "missing value after field prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, _, err := b.Parse(tt.text, "contents")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrParse)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.pos, pe.Pos)
			assert.Equal(t, tt.msg, pe.Msg)
		})
	}
}

func TestParseCorrectsMisspelling(t *testing.T) {
	b := newBuilder(t, spellResolver(t, "the cat sat on the mat"))

	q, corrected, err := b.Parse("teh", "contents")
	require.NoError(t, err)
	assert.True(t, corrected)
	assert.Equal(t, &TermQuery{Term: term("the")}, q)

	q, corrected, err = b.Parse("cat", "contents")
	require.NoError(t, err)
	assert.False(t, corrected)
	assert.Equal(t, &TermQuery{Term: term("cat")}, q)
}

func TestParseCorrectsInsidePhrase(t *testing.T) {
	b := newBuilder(t, spellResolver(t, "the cat sat on the mat"))
	q, corrected, err := b.Parse(`"teh cat"`, "contents")
	require.NoError(t, err)
	assert.True(t, corrected)
	assert.Equal(t, &PhraseQuery{Terms: []index.Term{term("the"), term("cat")}}, q)
}

func TestParseKeepsUnknownTermWithoutSuggestion(t *testing.T) {
	b := newBuilder(t, spellResolver(t, "the cat sat on the mat"))
	q, corrected, err := b.Parse("xylophone", "contents")
	require.NoError(t, err)
	assert.False(t, corrected)
	assert.Equal(t, &TermQuery{Term: term("xylophone")}, q)
}

func TestSpellResolverOtherField(t *testing.T) {
	r := spellResolver(t, "the cat")
	got, corrected := r.Resolve("title", "teh")
	assert.Equal(t, "teh", got)
	assert.False(t, corrected)
}
