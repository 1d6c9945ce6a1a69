package source

import (
	"strings"
	"unicode"
)

// Year sanity window for parcel construction years. Anything outside is
// auditor noise (0, 9999, typos) and the parcel is rejected at load.
const (
	MinYearBuilt = 1776
	MaxYearBuilt = 2027
)

// SaneYear reports whether year is a plausible construction year.
func SaneYear(year int) bool {
	return year >= MinYearBuilt && year <= MaxYearBuilt
}

// containsLetters reports whether s has any alphabetic rune. Parcel ids
// with letters are condo/annex pseudo-parcels and carry no usable year.
func containsLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// CleanParcelID normalizes an auditor parcel id: strips a trailing "-00"
// unit suffix, then removes dashes and surrounding whitespace.
func CleanParcelID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "-00") {
		s = s[:len(s)-3]
	}
	return strings.ReplaceAll(s, "-", "")
}

// ValidParcelID reports whether the raw id should be kept at all.
func ValidParcelID(s string) bool {
	return s != "" && !containsLetters(s)
}
