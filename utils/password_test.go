package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash)
	assert.True(t, CheckPassword(hash, "correct-horse-battery"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
}

func TestHashPasswordTropCourt(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestCheckPasswordHashVide(t *testing.T) {
	assert.False(t, CheckPassword("", "n'importe quoi"))
}
