package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{3}-[a-z0-9]{4}-[a-z0-9]{3}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Regexp(t, pattern, code)
		seen[code] = true
	}
	// 36^10 combinations; 100 draws colliding would point at a broken RNG.
	require.Len(t, seen, 100)
}
