package match

import (
	"errors"
	"strings"
)

// ErrInvalidABN indicates a value that cannot be read as an 11-digit ABN.
var ErrInvalidABN = errors.New("invalid abn")

// NormalizeABN strips spaces, hyphens, and dots from an ABN and verifies the
// remainder is exactly 11 digits.
func NormalizeABN(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == ' ' || r == '-' || r == '.':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", ErrInvalidABN
		}
	}
	digits := b.String()
	if len(digits) != 11 {
		return "", ErrInvalidABN
	}
	return digits, nil
}
