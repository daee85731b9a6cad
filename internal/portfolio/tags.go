package portfolio

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTags merges repository topics with catalog tags into a sorted set
// of kebab-case tags.
func NormalizeTags(topics, custom []string) []string {
	tags := make([]string, 0, len(topics)+len(custom))
	for _, list := range [][]string{topics, custom} {
		for _, t := range list {
			if n := normalizeTag(t); n != "" {
				tags = append(tags, n)
			}
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

// normalizeTag lower-cases s, folds accented letters onto their base letter
// and collapses every run of other characters into a single hyphen.
func normalizeTag(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}
