package shared

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugRegex     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)
	diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// MaxSlugLength is the maximum length of a generated slug.
const MaxSlugLength = 100

// IsValidSlug checks if a slug is valid: lowercase letters, numbers,
// and single hyphens, 3-100 characters.
func IsValidSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > MaxSlugLength {
		return false
	}
	return slugRegex.MatchString(slug)
}

// GenerateSlug derives a URL-safe slug from a display name.
// Diacritics are folded to their base characters so names like
// "Équipe Produit" become "equipe-produit".
func GenerateSlug(name string) string {
	folded, _, err := transform.String(diacriticFold, name)
	if err != nil {
		folded = name
	}
	slug := strings.ToLower(folded)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxSlugLength {
		slug = strings.Trim(slug[:MaxSlugLength], "-")
	}
	return slug
}
