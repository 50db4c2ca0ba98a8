package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RandomTokens(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := RandomTokens{}.NewToken()
		require.NoError(t, err)
		assert.Len(t, tok, 32)
		assert.Regexp(t, `^[A-Z2-7]+$`, tok)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
