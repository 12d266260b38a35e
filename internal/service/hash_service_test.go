package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	valid, err := svc.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestArgon2HashService_Verify_WrongPassword(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("correct horse battery staple")
	require.NoError(t, err)

	valid, err := svc.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestArgon2HashService_Hash_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashService()

	h1, err := svc.Hash("password")
	require.NoError(t, err)
	h2, err := svc.Hash("password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_Verify_Malformed(t *testing.T) {
	svc := NewArgon2HashService()

	tests := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$bad-params$c2FsdA$aGFzaA",
	}
	for _, hash := range tests {
		_, err := svc.Verify("password", hash)
		assert.Error(t, err, hash)
	}
}
