package retrieval

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[가-힣A-Za-z]+|\d+(?:[.,]\d+)?`)

// Tokenize lower-cases s and returns its Hangul/Latin letter runs and
// numbers (with decimal or thousands separators).
func Tokenize(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}
