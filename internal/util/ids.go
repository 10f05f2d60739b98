package util

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates a short random identifier with the given prefix,
// e.g. NewID("ses") -> "ses_k2c09x41qh3v".
func NewID(prefix string) (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	if prefix == "" {
		return id, nil
	}
	return prefix + "_" + id, nil
}

// MustNewID is NewID for startup paths where id generation cannot
// reasonably fail.
func MustNewID(prefix string) string {
	id, err := NewID(prefix)
	if err != nil {
		panic(err)
	}
	return id
}

// NormalizeLabel standardizes concept labels for comparison: trimmed,
// whitespace collapsed, single line.
func NormalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.Join(strings.Fields(value), " ")
}

// Clamp01 limits v to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
