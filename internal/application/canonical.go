package application

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// abbreviations maps folded company-name tokens to their canonical spelling.
var abbreviations = map[string]string{
	"corp": "corporation",
	"co":   "company",
	"inc":  "inc",
	"llc":  "llc",
	"&":    "and",
}

// legalSuffixes are dropped when comparing names for suffix-insensitive equality.
var legalSuffixes = map[string]bool{
	"llc":         true,
	"inc":         true,
	"corporation": true,
	"company":     true,
	"corp":        true,
}

// canonicalTokens splits a company or folder name into comparable tokens:
// NFKC-normalized, case-folded, parentheticals removed, punctuation dropped
// and common abbreviations expanded.
func canonicalTokens(s string) []string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = parenthetical.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&", " & ")

	raw := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
	})

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if canon, ok := abbreviations[tok]; ok {
			tok = canon
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// canonicalName joins canonicalTokens with single spaces.
func canonicalName(s string) string {
	return strings.Join(canonicalTokens(s), " ")
}

// CleanCompanyName returns the upper-case canonical form of a company name
// used for matching records across exports.
func CleanCompanyName(name string) string {
	return strings.ToUpper(canonicalName(name))
}

// stripLegalSuffixes removes legal-form tokens (LLC, INC, ...) from a
// canonical name.
func stripLegalSuffixes(canonical string) string {
	var kept []string
	for _, tok := range strings.Fields(strings.ToLower(canonical)) {
		if !legalSuffixes[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// containsTokens reports whether needle appears in haystack as a contiguous
// run of whole tokens.
func containsTokens(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
