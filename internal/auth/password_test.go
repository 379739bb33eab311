package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("hunter22", hash))
	assert.False(t, VerifyPassword("hunter23", hash))
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword("samepassword", h1))
	assert.True(t, VerifyPassword("samepassword", h2))
}

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	salt, key, ok := strings.Cut(hash, "$")
	require.True(t, ok)
	assert.Len(t, salt, 64) // 32 bytes hex
	assert.Len(t, key, 64)  // 32 bytes hex
}

func TestVerifyPassword_MalformedStored(t *testing.T) {
	assert.False(t, VerifyPassword("pw", ""))
	assert.False(t, VerifyPassword("pw", "nodollar"))
	assert.False(t, VerifyPassword("pw", "$"))
	assert.False(t, VerifyPassword("pw", "salt$not-hex"))
}
