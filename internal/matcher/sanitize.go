package matcher

import (
	"regexp"
	"strings"
)

var (
	dotComPattern      = regexp.MustCompile(`(?i)\.com`)
	nonAlnumPattern    = regexp.MustCompile(`[^A-Za-z0-9]+`)
	referenceNumberRun = regexp.MustCompile(`[0-9]{4,25}`)
)

// Sanitize strips merchant noise from a description: ".com" suffixes,
// punctuation, and runs of 4 to 25 digits (order and reference numbers).
// The result is lower-cased with single spaces between tokens.
func Sanitize(description string) string {
	s := dotComPattern.ReplaceAllString(description, "")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = referenceNumberRun.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokens returns the whitespace-delimited tokens of Sanitize(description).
func Tokens(description string) []string {
	return strings.Fields(Sanitize(description))
}
