package mediastore

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var articles = []string{"the ", "an ", "a "}

// SortKey builds the *_key column value for a display name.
//
// Keys are case folded and stripped of diacritics, Han characters are spelled in pinyin,
// and a leading English article is dropped, so "The Beatles" sorts with "Beatles".
// Casers and transformers must not be shared between goroutines, so each call builds its own.
func SortKey(name string) string {
	s := cases.Fold().String(strings.TrimSpace(name))
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripper, s); err == nil {
		s = out
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			if py := pinyin.LazyConvert(string(r), nil); len(py) > 0 {
				b.WriteString(py[0])
				b.WriteByte(' ')
				continue
			}
		}
		b.WriteRune(r)
	}

	key := strings.Join(strings.Fields(b.String()), " ")
	for _, a := range articles {
		if rest, ok := strings.CutPrefix(key, a); ok && rest != "" {
			return rest
		}
	}
	return key
}
