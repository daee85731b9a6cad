package portfolio

import "strings"

// Slug derives the URL-safe identifier of a repository. Distinct repositories
// may share a slug when their names only differ in replaced characters.
func Slug(owner, name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, strings.ToLower(owner+"-"+name))
}
