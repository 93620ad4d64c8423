package spell

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var spellCfg = config.SpellConfig{Enabled: true, GramSize: 3, MinSimilarity: 0.5}

func buildDict(t *testing.T, texts ...string) *Dictionary {
	t.Helper()
	b := index.NewBuilder()
	for _, text := range texts {
		var toks []analyzer.Token
		for pos, w := range strings.Fields(text) {
			toks = append(toks, analyzer.Token{Term: w, Position: pos})
		}
		b.Add(index.AnalyzedDocument{Fields: []index.FieldTokens{{Field: "contents", Tokens: toks}}})
	}
	ix := b.Build(5, config.AnalyzerConfig{Stemmer: "none", StopWords: "none"})
	return Build(ix.Dictionary(), "contents", ix.Generation(), spellCfg)
}

func TestExistsForEveryIndexedTerm(t *testing.T) {
	d := buildDict(t, "the cat sat on the mat", "a dog chased the cat")
	for _, w := range []string{"the", "cat", "sat", "on", "mat", "a", "dog", "chased"} {
		assert.True(t, d.Exists(w), w)
	}
	assert.False(t, d.Exists("bird"))
	assert.False(t, d.Exists(""))
	assert.Equal(t, 8, d.Len())
	assert.Equal(t, uint64(5), d.Generation())
}

func TestSuggestTransposition(t *testing.T) {
	d := buildDict(t, "the cat sat on the mat")
	assert.Equal(t, []string{"the"}, d.Suggest("teh", 1))
}

func TestSuggestRanking(t *testing.T) {
	d := buildDict(t, "apple apply ample maple zebra")
	got := d.Suggest("appel", 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "apple", got[0])
	assert.NotContains(t, got, "zebra")
	assert.NotContains(t, got, "maple")

	q := []rune("appel")
	prev := 0
	for _, w := range got {
		dist := editDistance(q, []rune(w))
		assert.GreaterOrEqual(t, dist, prev, w)
		prev = dist
	}
}

func TestSuggestAcrossLengthClasses(t *testing.T) {
	d := fromWords([]string{"abcd", "abcdxyzzz"}, "contents", 1, 3, 0.5)
	assert.Equal(t, []string{"abcd", "abcdxyzzz"}, d.Suggest("abcdxy", 2))
}

func TestTopSuggestionIsClosestSharingAGram(t *testing.T) {
	words := []string{"at", "cart", "carton", "cartoon", "cat", "catalog", "scatter", "tar", "tart", "tartan"}
	d := fromWords(words, "contents", 1, 3, 0)
	for _, q := range []string{"ca", "cst", "crat", "cartn", "catlog", "scater", "tartaan", "cartoonist"} {
		got := d.Suggest(q, 1)
		require.Len(t, got, 1, q)
		qr := []rune(q)
		qGrams := grams(qr, gramSizes(len(qr), 3))
		best := editDistance(qr, []rune(got[0]))
		for _, w := range words {
			if w == q || dice(qGrams, grams([]rune(w), indexSizes(3))) == 0 {
				continue
			}
			assert.LessOrEqual(t, best, editDistance(qr, []rune(w)), "%s: %s beats %s", q, w, got[0])
		}
	}
}

func TestSuggestEdgeCases(t *testing.T) {
	d := buildDict(t, "cat mat sat")
	assert.NotContains(t, d.Suggest("cat", 5), "cat")
	assert.Equal(t, []string{}, d.Suggest("cat", 0))
	assert.Equal(t, []string{}, d.Suggest("qqqqqqqq", 3))
	assert.Len(t, d.Suggest("bat", 2), 2)
	assert.Equal(t, []string{"cat", "mat"}, d.Suggest("bat", 2))

	empty := fromWords(nil, "contents", 1, 3, 0.5)
	assert.Equal(t, []string{}, empty.Suggest("cat", 1))
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"teh", "the", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"ca", "abc", 3},
		{"ştiinţă", "stiinta", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance([]rune(tt.a), []rune(tt.b)), "%s/%s", tt.a, tt.b)
		assert.Equal(t, tt.want, editDistance([]rune(tt.b), []rune(tt.a)), "%s/%s", tt.b, tt.a)
	}
}

func TestGramSizes(t *testing.T) {
	assert.Equal(t, []int{3, 4}, gramSizes(8, 3))
	assert.Equal(t, []int{2, 3}, gramSizes(5, 3))
	assert.Equal(t, []int{1, 2}, gramSizes(3, 3))
	assert.Equal(t, []int{1, 2}, gramSizes(4, 2))
	assert.Equal(t, []string{"t", "e", "h", "te", "eh"}, grams([]rune("teh"), []int{1, 2}))
	assert.Equal(t, []int{1, 2, 3, 4}, indexSizes(3))
	assert.Equal(t, []int{1, 2}, indexSizes(1))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := buildDict(t, "the cat sat on the mat", "apple apply ample")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, d.Save(path))

	loaded, err := Load(path, 5)
	require.NoError(t, err)
	assert.Equal(t, d.words, loaded.words)
	assert.Equal(t, "contents", loaded.Field())
	assert.Equal(t, d.Suggest("teh", 3), loaded.Suggest("teh", 3))
	assert.Equal(t, d.Suggest("appel", 3), loaded.Suggest("appel", 3))
	assert.NoFileExists(t, path+".tmp")
}

func TestLoadRejectsOtherGeneration(t *testing.T) {
	d := buildDict(t, "cat")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, d.Save(path))
	_, err := Load(path, 6)
	assert.ErrorIs(t, err, apperrors.ErrIndexCorrupt)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a bolt file ", 512)), 0o644))
	_, err := Load(path, 1)
	assert.ErrorIs(t, err, apperrors.ErrIndexCorrupt)
}

func BenchmarkSuggest(b *testing.B) {
	words := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		words = append(words, strings.Repeat(string(rune('a'+i%26)), 1+i%4)+string(rune('a'+(i/26)%26))+"ing")
	}
	seen := map[string]bool{}
	var uniq []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			uniq = append(uniq, w)
		}
	}
	slices.Sort(uniq)
	d := fromWords(uniq, "contents", 1, 3, 0.5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Suggest("aabing", 5)
	}
}

