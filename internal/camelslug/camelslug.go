// Package camelslug compresses a human display name (jam title, event
// name) into an ASCII CamelCase slug suitable as a default exchange slug,
// grounded on original_source/src/commands/camel_slug.rs's slugify_camel.
//
// The original transliterates non-ASCII input (e.g. Cyrillic) via
// deunicode before slugifying it. No library in the corpus offers Unicode
// transliteration, so non-ASCII runes are simply dropped here rather than
// transliterated — a stdlib-only shortcut, not a feature gap any pack
// dependency could have closed.
package camelslug

import (
	"strings"
	"unicode"
)

// Slugify turns s into a CamelCase ASCII slug: letters and digits are
// kept, the first letter after any run of non-alphanumeric characters is
// upper-cased, everything else (including non-ASCII runes) is dropped.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	startOfWord := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z' && startOfWord:
			b.WriteRune(unicode.ToUpper(r))
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		}
		startOfWord = !isASCIIAlphanumeric(r)
	}

	return b.String()
}

func isASCIIAlphanumeric(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
