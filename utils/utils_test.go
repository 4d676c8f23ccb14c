package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndAuthenticate(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, Authenticate(string(hash), "s3cret"))
	assert.False(t, Authenticate(string(hash), "wrong"))
	assert.False(t, Authenticate("not-a-hash", "s3cret"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestNormalizeAccountID(t *testing.T) {
	assert.Equal(t, "2742928629", NormalizeAccountID("274-292-8629"))
	assert.Equal(t, "2742928629", NormalizeAccountID(" 2742928629 "))
}
