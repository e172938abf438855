// Package pickupcode issues the one-time custody handoff codes that gate
// the delivered -> received transition. The code is read aloud between two
// co-present humans, so it favors legibility over secrecy: fixed width,
// no ambiguous characters (0/O, 1/I).
package pickupcode

import (
	"crypto/rand"
	"strings"
)

const (
	// Length of every generated code.
	Length = 6

	charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Generate returns a new fixed-width handoff code.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf), nil
}

// Matches compares a supplied code against the stored one. Comparison is
// case-insensitive and whitespace-tolerant since codes are typed by hand.
func Matches(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return stored == normalize(supplied)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
