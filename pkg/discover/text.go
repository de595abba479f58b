package discover

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// indexWord returns the byte offset of the first occurrence of needle in
// s that is not glued to a surrounding letter or digit, or -1.
func indexWord(s, needle string) int {
	if needle == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(s[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

func containsWord(s, needle string) bool {
	return indexWord(s, needle) >= 0
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// excerpt shortens s to at most n runes for use as edge evidence.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
