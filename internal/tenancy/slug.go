package tenancy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparate = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify turns a company name into a URL-safe slug, dropping accents
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	s := slugSeparate.ReplaceAllString(strings.ToLower(plain), "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is a well-formed slug
func ValidSlug(s string) bool {
	return len(s) <= 100 && slugPattern.MatchString(s)
}
