package index

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
)

// Stored field names.
const (
	FieldPath = "path"
)

// Document is the stored side of an indexed document. IDs are dense, starting
// at 0 in source order.
type Document struct {
	ID       uint32            `json:"id"`
	Stored   map[string]string `json:"stored,omitempty"`
	Modified time.Time         `json:"modified"`
}

// Path returns the stored path; ok is false when the document has none.
func (d Document) Path() (string, bool) {
	p, ok := d.Stored[FieldPath]
	return p, ok
}

// FieldTokens is the analysed content of one indexed field.
type FieldTokens struct {
	Field  string
	Tokens []analyzer.Token
}

// AnalyzedDocument is what the Builder consumes: stored values plus the
// token streams of each indexed field.
type AnalyzedDocument struct {
	Stored   map[string]string
	Modified time.Time
	Fields   []FieldTokens
}
