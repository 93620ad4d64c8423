// Package analyzer turns raw text into the normalised terms stored in the
// index. The same chain, selected by config.AnalyzerConfig, runs at index
// time and at query time: UAX#29 word segmentation, lower-casing, optional
// diacritic folding, a minimum length, stopword removal and stemming.
package analyzer

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Token is a single normalised term. Position counts kept tokens only, so the
// first surviving term is 0 and positions are consecutive after stopword
// removal.
type Token struct {
	Term     string
	Position int
}

// Analyzer is immutable after New and safe for concurrent use.
type Analyzer struct {
	cfg   config.AnalyzerConfig
	stop  map[string]struct{}
	stem  func(string) string
	fold  bool
	minLn int
}

// New builds the chain described by cfg.
func New(cfg config.AnalyzerConfig) (*Analyzer, error) {
	a := &Analyzer{
		cfg:   cfg,
		fold:  cfg.FoldDiacritics,
		minLn: max(cfg.MinTokenLength, 1),
	}

	list, ok := stopLists[cfg.StopWords]
	if !ok {
		return nil, fmt.Errorf("unknown stopword list %q", cfg.StopWords)
	}
	a.stop = make(map[string]struct{}, len(list))
	for _, w := range list {
		if a.fold {
			w = foldDiacritics(w)
		}
		a.stop[w] = struct{}{}
	}

	switch cfg.Stemmer {
	case "snowball":
		a.stem = snowballStem
	case "light":
		a.stem = lightStem
	case "none", "":
		a.stem = nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", cfg.Stemmer)
	}
	return a, nil
}

// Config returns the settings the analyzer was built with. Index generations
// persist it so queries are analysed identically.
func (a *Analyzer) Config() config.AnalyzerConfig {
	return a.cfg
}

// Analyze returns the lazily computed token sequence for text. Every range
// over the result re-runs the chain from the start. Every field is analyzed
// by the same chain, so field does not change the result.
func (a *Analyzer) Analyze(text, field string) iter.Seq[Token] {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return func(yield func(Token) bool) {
		seg := words.FromString(text)
		pos := 0
		for seg.Next() {
			term, ok := a.normalize(seg.Value())
			if !ok {
				continue
			}
			if !yield(Token{Term: term, Position: pos}) {
				return
			}
			pos++
		}
	}
}

// Terms collects the analysed terms of text in order.
func (a *Analyzer) Terms(text, field string) []string {
	var out []string
	for tok := range a.Analyze(text, field) {
		out = append(out, tok.Term)
	}
	return out
}

func (a *Analyzer) normalize(word string) (string, bool) {
	if !isWord(word) {
		return "", false
	}
	word = strings.ToLower(word)
	if a.fold {
		word = foldDiacritics(word)
	}
	if utf8.RuneCountInString(word) < a.minLn {
		return "", false
	}
	if _, isStop := a.stop[word]; isStop {
		return "", false
	}
	if a.stem != nil {
		if stemmed := a.stem(word); stemmed != "" {
			word = stemmed
		}
	}
	return word, true
}

// isWord reports whether a segment carries any letter or digit; whitespace
// and punctuation segments are dropped.
func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func foldDiacritics(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	// transform.Chain keeps state, so each call gets its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
