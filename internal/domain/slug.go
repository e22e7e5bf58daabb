package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented characters and drops the combining marks,
// then discards anything still outside ASCII ("São" → "Sao", "°" → "").
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// foldASCII applies asciiFold, falling back to the input on transform errors
// (which cannot occur for the transforms chained above, but the API returns one).
func foldASCII(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		return s
	}
	return folded
}

// Slugify derives a lowercase, underscore-delimited ASCII identifier from a
// station or file name: accents stripped, non-alphanumeric runs collapsed to a
// single underscore, no leading or trailing underscore. Idempotent.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range foldASCII(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r + ('a' - 'A'))
		default:
			pending = true
		}
	}
	return b.String()
}

// Station identifies the target weather station. The slug is computed once so
// every archive-member check reuses it.
type Station struct {
	Name string
	slug string
}

// NewStation builds a Station from a human-readable name.
func NewStation(name string) Station {
	return Station{Name: name, slug: Slugify(name)}
}

// Slug returns the canonical station slug, e.g. "sao_luiz_do_paraitinga".
func (s Station) Slug() string { return s.slug }

// Matches reports whether an archive member filename belongs to this station.
// Containment rather than equality: member names vary in padding and date
// ranges across years, but always embed the station name.
func (s Station) Matches(filename string) bool {
	return s.slug != "" && strings.Contains(Slugify(filename), s.slug)
}
