// Package slug builds URL slugs from titles.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dalemusser/waffle/pantry/text"
)

// Make lowercases and folds title, keeps letters and digits, and joins runs of
// anything else with a single hyphen. An empty result becomes "item".
func Make(title string) string {
	folded := text.Fold(title)
	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "item"
	}
	return s
}

// WithSuffix appends -n for n > 1, used to make a taken slug unique.
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
