package query

import "github.com/Adithya-Monish-Kumar-K/docsearch/internal/spell"

// Resolver rewrites one analysed query term. corrected reports whether the
// returned term differs from the input because of a correction.
type Resolver interface {
	Resolve(field, term string) (resolved string, corrected bool)
}

// Identity keeps every term as is.
type Identity struct{}

func (Identity) Resolve(_, term string) (string, bool) {
	return term, false
}

// SpellResolver replaces terms missing from Dict with the dictionary's top
// suggestion. Terms of other fields, and terms with no suggestion, go to
// Next (Identity when nil); an out-of-vocabulary term with no suggestion
// simply matches nothing.
type SpellResolver struct {
	Dict  *spell.Dictionary
	Field string
	Next  Resolver
}

func (s SpellResolver) Resolve(field, term string) (string, bool) {
	next := s.Next
	if next == nil {
		next = Identity{}
	}
	if s.Dict == nil || field != s.Field || s.Dict.Exists(term) {
		return next.Resolve(field, term)
	}
	if best := s.Dict.Suggest(term, 1); len(best) > 0 {
		return best[0], true
	}
	return next.Resolve(field, term)
}
