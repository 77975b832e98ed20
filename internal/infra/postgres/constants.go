package postgres

import "strings"

// Shared ORDER BY fragment; listings default to newest first.
const orderByCreatedAtDesc = " ORDER BY created_at DESC"

// escapeLikePattern escapes LIKE/ILIKE metacharacters in user-supplied
// search terms. % and _ would otherwise act as wildcards and let a
// search term match far more rows than intended.
func escapeLikePattern(s string) string {
	// Backslash is the escape character, so it goes first.
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// wrapLikePattern escapes a term and wraps it for substring search:
// wrapLikePattern("okr") returns "%okr%".
func wrapLikePattern(s string) string {
	return "%" + escapeLikePattern(s) + "%"
}
