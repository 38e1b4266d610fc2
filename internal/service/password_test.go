package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Secr3t!")
	require.NoError(t, err)
	require.NotEqual(t, "Secr3t!", hash)
	require.True(t, hasher.Verify("Secr3t!", hash))
	require.False(t, hasher.Verify("secr3t!", hash))
	require.False(t, hasher.Verify("Secr3t!", ""))

	_, err = hasher.Hash("")
	require.Error(t, err)
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	t.Parallel()

	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	require.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestGenerateTempPassword(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for i := 0; i < 64; i++ {
		pw, err := generateTempPassword()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(pw)
		require.NoError(t, err)
		require.Len(t, raw, tempPasswordBytes)

		_, dup := seen[pw]
		require.False(t, dup)
		seen[pw] = struct{}{}
	}
}
