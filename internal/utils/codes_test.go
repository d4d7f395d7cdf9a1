package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericCode(t *testing.T) {
	six := regexp.MustCompile(`^[0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, six, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)

	code, err := NewNumericCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	code, err = NewNumericCode(10)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{10}$`, code)
}
