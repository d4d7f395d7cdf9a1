package auth

import (
	"errors"
	"strings"
)

var ErrMissingBearer = errors.New("missing or invalid Authorization header")

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingBearer
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", ErrMissingBearer
	}
	return tok, nil
}
