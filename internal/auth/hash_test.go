package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("Secr3t!pass")
	require.NoError(t, err)
	assert.Contains(t, hash, "$")

	ok, err := VerifyPassword("Secr3t!pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("Secr3t!pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts differ")
}

func TestVerify_BadFormat(t *testing.T) {
	_, err := VerifyPassword("x", "no-dollar")
	assert.Error(t, err)
	_, err = VerifyPassword("x", "!!$!!")
	assert.Error(t, err)
}
