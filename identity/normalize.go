package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// NormalizeName strips all whitespace (ASCII and ideographic) and folds
// full-width digits and Latin letters to their half-width forms.
// Other full-width characters such as katakana are left untouched.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(foldASCII(r))
	}
	return b.String()
}

// NameMatchKey is the case-insensitive key used for fallback name lookups
func NameMatchKey(s string) string {
	return strings.ToLower(NormalizeName(s))
}

func foldASCII(r rune) rune {
	p := width.LookupRune(r)
	if p.Kind() != width.EastAsianFullwidth {
		return r
	}
	n := p.Narrow()
	if n == 0 || n > unicode.MaxASCII {
		return r
	}
	if unicode.IsDigit(n) || unicode.IsLetter(n) {
		return n
	}
	return r
}
