package clean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

var (
	disallowedCharsRe = regexp.MustCompile(`[^a-zA-Z0-9\s]+`)
	whitespaceRunRe   = regexp.MustCompile(`\s+`)
)

// CleanString trims s, removes everything except ASCII letters, digits and whitespace, and
// collapses whitespace runs to a single space. The result has no leading or trailing
// whitespace even when removed characters sat next to it, so CleanString is idempotent.
func CleanString(s string) string {
	s = strings.TrimSpace(s)
	s = disallowedCharsRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanText applies CleanString to text values. Any other value is returned unchanged.
func CleanText(v table.Value) table.Value {
	if v.Kind != table.KindText {
		return v
	}
	return table.Text(CleanString(v.Text))
}

// mapText rewrites text values with fn and leaves null (and other kinds) alone.
func mapText(v table.Value, fn func(string) string) table.Value {
	if v.Kind != table.KindText {
		return v
	}
	return table.Text(fn(v.Text))
}

// titleCase upper-cases every cased letter that follows an uncased character (or starts the
// string) and lower-cases the others. Apostrophes, dots and digits all start a new word:
// "o'neill" becomes "O'Neill" and "adidas.originals" becomes "Adidas.Originals".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			b.WriteRune(unicode.ToTitle(r))
		case cased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

func lowerCase(s string) string {
	// cases.Caser is stateful; build one per call.
	return cases.Lower(language.Und).String(s)
}
