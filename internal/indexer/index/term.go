package index

import (
	"cmp"
	"strings"
)

// Term is a (field, text) pair. Terms order by field first, then by the bytes
// of the text.
type Term struct {
	Field string `json:"f"`
	Text  string `json:"t"`
}

func (t Term) Compare(o Term) int {
	if c := strings.Compare(t.Field, o.Field); c != 0 {
		return c
	}
	return cmp.Compare(t.Text, o.Text)
}

func (t Term) Less(o Term) bool {
	return t.Compare(o) < 0
}

func (t Term) String() string {
	return t.Field + ":" + t.Text
}
