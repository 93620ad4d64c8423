package query

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// ParseError reports malformed query syntax. Pos is a byte offset into Query.
type ParseError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q", e.Msg, e.Pos, e.Query)
}

func (e *ParseError) Unwrap() error {
	return apperrors.ErrParse
}

type Option func(*Builder)

// WithSlop sets the slop of phrases that carry no explicit ~N suffix.
func WithSlop(n int) Option {
	return func(b *Builder) {
		b.slop = max(n, 0)
	}
}

// WithFields restricts field: prefixes to the given names.
func WithFields(names ...string) Option {
	return func(b *Builder) {
		b.fields = make(map[string]struct{}, len(names))
		for _, n := range names {
			b.fields[n] = struct{}{}
		}
	}
}

// Builder parses query text. It is safe for concurrent use.
//
// Syntax: bare words, "quoted phrases" with an optional ~N slop suffix, and
// field:word or field:"phrase". A run of consecutive bare words forms one
// clause. Distinct clauses are combined conjunctively.
type Builder struct {
	analyzer *analyzer.Analyzer
	resolver Resolver
	slop     int
	fields   map[string]struct{}
	logger   *slog.Logger
}

func NewBuilder(a *analyzer.Analyzer, resolver Resolver, opts ...Option) *Builder {
	if resolver == nil {
		resolver = Identity{}
	}
	b := &Builder{
		analyzer: a,
		resolver: resolver,
		logger:   slog.Default().With("component", "query-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type clause struct {
	field string
	text  string
	slop  int
}

// Parse builds the query for text against the default field. A nil Query
// with a nil error means the text analysed to nothing (for example only
// stopwords) and matches no documents. corrected is true when any term was
// replaced by the resolver.
func (b *Builder) Parse(text, field string) (Query, bool, error) {
	clauses, err := b.lex(text, field)
	if err != nil {
		return nil, false, err
	}

	var queries []Query
	corrected := false
	for _, c := range clauses {
		var terms []index.Term
		for _, raw := range b.analyzer.Terms(c.text, c.field) {
			resolved, changed := b.resolver.Resolve(c.field, raw)
			if changed {
				corrected = true
				b.logger.Debug("term corrected", "field", c.field, "from", raw, "to", resolved)
			}
			terms = append(terms, index.Term{Field: c.field, Text: resolved})
		}
		switch len(terms) {
		case 0:
		case 1:
			queries = append(queries, &TermQuery{Term: terms[0]})
		default:
			slop := c.slop
			if slop < 0 {
				slop = b.slop
			}
			queries = append(queries, &PhraseQuery{Terms: terms, Slop: slop})
		}
	}

	switch len(queries) {
	case 0:
		return nil, corrected, nil
	case 1:
		return queries[0], corrected, nil
	default:
		return &BooleanQuery{Clauses: queries}, corrected, nil
	}
}

func (b *Builder) lex(text, defField string) ([]clause, error) {
	var (
		out []clause
		run []string
	)
	flush := func() {
		if len(run) > 0 {
			out = append(out, clause{field: defField, text: strings.Join(run, " "), slop: -1})
			run = nil
		}
	}
	fail := func(pos int, msg string) error {
		return &ParseError{Query: text, Pos: pos, Msg: msg}
	}

	i := 0
	for i < len(text) {
		r, w := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += w
			continue
		}
		if r == '"' {
			flush()
			c, next, err := b.lexPhrase(text, i, defField)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
			i = next
			continue
		}

		start := i
		for i < len(text) {
			r, w := utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) || r == '"' {
				break
			}
			i += w
		}
		word := text[start:i]
		colon := strings.IndexByte(word, ':')
		if colon < 0 {
			run = append(run, word)
			continue
		}

		name, rest := word[:colon], word[colon+1:]
		if name == "" {
			return nil, fail(start, "empty field prefix")
		}
		if msg := b.checkField(name); msg != "" {
			return nil, fail(start, msg)
		}
		flush()
		if rest != "" {
			out = append(out, clause{field: name, text: rest, slop: -1})
			continue
		}
		if i < len(text) && text[i] == '"' {
			c, next, err := b.lexPhrase(text, i, name)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
			i = next
			continue
		}
		return nil, fail(start+colon+1, "missing value after field prefix")
	}
	flush()
	return out, nil
}

// lexPhrase reads a quoted phrase starting at the quote at text[start] and
// an optional ~N suffix. It returns the offset just past the phrase.
func (b *Builder) lexPhrase(text string, start int, field string) (clause, int, error) {
	end := strings.IndexByte(text[start+1:], '"')
	if end < 0 {
		return clause{}, 0, &ParseError{Query: text, Pos: start, Msg: "unbalanced quote"}
	}
	c := clause{field: field, text: text[start+1 : start+1+end], slop: -1}
	next := start + 1 + end + 1
	if next >= len(text) || text[next] != '~' {
		return c, next, nil
	}

	j := next + 1
	for j < len(text) && text[j] >= '0' && text[j] <= '9' {
		j++
	}
	badSlop := &ParseError{Query: text, Pos: next, Msg: "bad slop"}
	if j == next+1 {
		return clause{}, 0, badSlop
	}
	if j < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[j:]); !unicode.IsSpace(r) && r != '"' {
			return clause{}, 0, badSlop
		}
	}
	n, err := strconv.Atoi(text[next+1 : j])
	if err != nil {
		return clause{}, 0, badSlop
	}
	c.slop = n
	return c, j, nil
}

// checkField returns a non-empty message when name cannot be used as a field.
func (b *Builder) checkField(name string) string {
	for i, r := range name {
		ok := r == '_' || unicode.IsLetter(r) || (i > 0 && (unicode.IsDigit(r) || r == '.' || r == '-'))
		if !ok {
			return fmt.Sprintf("bad field name %q", name)
		}
	}
	if b.fields != nil {
		if _, ok := b.fields[name]; !ok {
			return fmt.Sprintf("unknown field %q", name)
		}
	}
	return ""
}
