package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("P4ssword")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.True(t, VerifyPassword(hash, "P4ssword"))
	assert.False(t, VerifyPassword(hash, "p4ssword"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("P4ssword")
	require.NoError(t, err)
	h2, err := HashPassword("P4ssword")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-hash", "P4ssword"))
	assert.False(t, VerifyPassword("$argon2id$v=19$garbage", "P4ssword"))
}
