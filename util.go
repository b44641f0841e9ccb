package main

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerateUUID returns a random v4 UUID string
func GenerateUUID() string {
	return uuid.NewString()
}

// ClampInt restricts v to [min, max]
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// truncate trims whitespace and cuts s to at most n runes
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
