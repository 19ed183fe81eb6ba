package core

import (
	"crypto/sha256"
	"regexp"
)

const (
	// IDPrefix is prepended to every constraint identifier.
	IDPrefix = "nt-"

	idSuffixLen = 6
	base36      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var idPattern = regexp.MustCompile(`^nt-[0-9a-z]{6}$`)

// GenerateID derives a deterministic identifier from the semantic fields of a constraint.
//
// The digest covers text, category and typeLabel concatenated without a separator.
// Identifiers already on disk were produced with this exact byte layout, so it must not change.
// The first 24 bits of the SHA-256 digest are rendered as 6 base36 characters.
func GenerateID(text, category, typeLabel string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte(category))
	h.Write([]byte(typeLabel))
	sum := h.Sum(nil)

	n := uint32(sum[0])<<16 | uint32(sum[1])<<8 | uint32(sum[2])
	return IDPrefix + encodeBase36(n, idSuffixLen)
}

// ValidID reports whether id has the form nt-xxxxxx with a lowercase base36 suffix.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// encodeBase36 renders n in base36, left-padded with zeros to width characters.
func encodeBase36(n uint32, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = base36[n%36]
		n /= 36
	}
	return string(buf)
}
