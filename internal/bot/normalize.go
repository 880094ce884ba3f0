package bot

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left behind by NFD decomposition, so
// "café" and "cafe" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes raw user input: lowercase, accent removal,
// punctuation/symbol removal, whitespace collapse. Total and idempotent;
// all keyword matching in the engine runs on its output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := strings.ToLower(text)

	if stripped, _, err := transform.String(stripMarks, t); err == nil {
		t = stripped
	}

	t = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, t)

	return strings.Join(strings.Fields(t), " ")
}
