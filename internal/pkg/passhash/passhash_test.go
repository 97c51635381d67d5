package passhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "simple password", password: "Correct-Horse-9"},
		{name: "unicode password", password: "пароль-Страшный-7"},
		{name: "long password", password: strings.Repeat("x7!Q", 32)},
		{name: "empty password", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Hash(tt.password)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

			ok, err := Verify(tt.password, encoded)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = Verify(tt.password+"x", encoded)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same-password-1")
	require.NoError(t, err)
	second, err := Hash("same-password-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two hashes of one password must differ by salt")
}

func TestVerifyMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "not a hash", encoded: "plaintext"},
		{name: "wrong algorithm", encoded: "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "missing sections", encoded: "$argon2id$v=19$m=65536,t=3,p=1"},
		{name: "bad salt encoding", encoded: "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Verify("anything", tt.encoded)
			assert.False(t, ok)
			assert.Error(t, err)
		})
	}
}

func TestVerifyIncompatibleVersion(t *testing.T) {
	ok, err := Verify("x", "$argon2id$v=18$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}
