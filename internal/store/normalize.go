package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a student name for lookup (lowercase, no diacritics).
func NormalizeName(name string) string {
	return strings.ToLower(RemoveDiacritics(name))
}

// FilterByName returns the students whose normalized name contains the
// normalized query. An empty query returns the input unchanged.
func FilterByName(students []Student, query string) []Student {
	if query == "" {
		return students
	}
	q := NormalizeName(query)
	var matched []Student
	for _, s := range students {
		if strings.Contains(NormalizeName(s.Name), q) {
			matched = append(matched, s)
		}
	}
	return matched
}
