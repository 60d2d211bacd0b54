package grading

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentity turns a free-text student name into the key used to match it against the
// roster: compatibility-decomposed, stripped of accents, upper-cased, trimmed and with inner
// whitespace collapsed. "Pérez  García, josé " and "PEREZ GARCIA, JOSE" share the same key.
// NormalizeIdentity(NormalizeIdentity(s)) == NormalizeIdentity(s) for every s.
func NormalizeIdentity(raw string) string {
	if raw == "" {
		return ""
	}
	// a transformer chain is not safe for concurrent use, build one per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, raw)
	if err != nil {
		s = raw
	}
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
