package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// NewNumericCode returns a uniformly random decimal code of the given length,
// zero-padded, e.g. "004271".
func NewNumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	s := n.String()
	return strings.Repeat("0", digits-len(s)) + s, nil
}
