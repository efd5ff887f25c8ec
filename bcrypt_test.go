package auth_test

import (
	"strings"
	"testing"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialVerifierHashIsSalted(t *testing.T) {
	first, err := fastHasher.Hash("correct horse battery")
	require.NoError(t, err)
	second, err := fastHasher.Hash("correct horse battery")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "correct horse battery")
	assert.True(t, fastHasher.Verify("correct horse battery", first))
	assert.True(t, fastHasher.Verify("correct horse battery", second))
}

func TestCredentialVerifierVerify(t *testing.T) {
	hash := mustHash(t, "s3cret-passphrase")

	tests := []struct {
		name   string
		secret string
		hash   string
		want   bool
	}{
		{"match", "s3cret-passphrase", hash, true},
		{"wrong secret", "s3cret-passphrasE", hash, false},
		{"empty secret", "", hash, false},
		{"empty hash", "s3cret-passphrase", "", false},
		{"malformed hash", "s3cret-passphrase", "not-a-bcrypt-hash", false},
		{"truncated hash", "s3cret-passphrase", hash[:20], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fastHasher.Verify(tt.secret, tt.hash))

			err := fastHasher.Compare(tt.secret, tt.hash)
			if tt.want {
				assert.NoError(t, err)
				return
			}
			assert.True(t, auth.IsInvalidCredentialsError(err))
		})
	}
}

func TestCredentialVerifierHashEmpty(t *testing.T) {
	_, err := fastHasher.Hash("")
	require.Error(t, err)
}

func TestCredentialVerifierLongSecrets(t *testing.T) {
	limit := strings.Repeat("a", auth.MaxPasswordBytes)
	over := limit + "b"
	longer := limit + "c"
	unicode := strings.Repeat("ü", auth.MaxPasswordBytes)

	for _, secret := range []string{limit, over, longer, unicode} {
		h, err := fastHasher.Hash(secret)
		require.NoError(t, err, "len %d", len(secret))
		assert.True(t, fastHasher.Verify(secret, h), "len %d", len(secret))
	}

	h := mustHash(t, over)
	assert.False(t, fastHasher.Verify(longer, h), "bytes past the bcrypt limit still count")
	assert.False(t, fastHasher.Verify(limit, h))
}

func TestCredentialVerifierCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, auth.NewCredentialVerifier(bcrypt.MinCost).Cost())

	def := auth.NewCredentialVerifier().Cost()
	assert.Equal(t, def, auth.NewCredentialVerifier(99).Cost())
	assert.Equal(t, def, auth.NewCredentialVerifier(1).Cost())
	assert.GreaterOrEqual(t, def, bcrypt.MinCost)
}

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		valid  bool
		reason string
	}{
		{"empty", "", false, "password is required"},
		{"seven characters", "abcdefg", false, "password must be at least 8 characters"},
		{"eight characters", "abcdefgh", true, ""},
		{"multibyte counted as runes", "pässwörd", true, ""},
		{"seven multibyte runes", "äöüäöüä", false, "password must be at least 8 characters"},
		{"bcrypt byte limit", strings.Repeat("a", auth.MaxPasswordBytes+1), false, "password must be at most 72 bytes"},
		{"at byte limit", strings.Repeat("a", auth.MaxPasswordBytes), true, ""},
		{"invalid utf8", "\xff\xfe\xfd\xfc\xfb\xfa\xf9\xf8", false, "password must be valid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := auth.ValidatePasswordPolicy(tt.secret)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, res, fastHasher.ValidatePasswordPolicy(tt.secret))
		})
	}
}

func TestRandomPasswordHash(t *testing.T) {
	h := auth.RandomPasswordHash()
	require.NotEmpty(t, h)
	assert.False(t, auth.VerifyPassword("", h))
	assert.Error(t, auth.ComparePasswordAndHash("password", h))
}
