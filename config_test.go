package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestOptionsFromEnv(t *testing.T) {
	opts, err := auth.OptionsFromEnv(envMap(map[string]string{
		auth.EnvSigningKey:           testSigningKey,
		auth.EnvTokenExpiration:      "48",
		auth.EnvIssuer:               "portal-staging",
		auth.EnvAudience:             "web, mobile ,,",
		auth.EnvCookieName:           "portal-session",
		auth.EnvEnvironment:          "production",
		auth.EnvRoleLookupTimeout:    "750ms",
		auth.EnvRejectedRouteDefault: "/authors",
		auth.EnvDebug:                "true",
		auth.EnvSeedAdminEmail:       "root@example.com",
	}))
	require.NoError(t, err)
	require.NoError(t, opts.Validate())

	assert.Equal(t, testSigningKey, opts.GetSigningKey())
	assert.Equal(t, 48, opts.GetTokenExpiration())
	assert.Equal(t, "portal-staging", opts.GetIssuer())
	assert.Equal(t, []string{"web", "mobile"}, opts.GetAudience())
	assert.Equal(t, "portal-session", opts.GetCookieName())
	assert.Equal(t, 750*time.Millisecond, opts.GetRoleLookupTimeout())
	assert.Equal(t, "/authors", opts.GetRejectedRouteDefault())
	assert.Equal(t, "rejected_route", opts.GetRejectedRouteKey())
	assert.Equal(t, auth.DefaultAuthScheme, opts.GetAuthScheme())
	assert.True(t, opts.Debug)
	assert.True(t, opts.IsProduction())
	assert.True(t, opts.GetSecureCookies())
	assert.Equal(t, "root@example.com", opts.SeedAdminEmail)
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	opts, err := auth.OptionsFromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 168, opts.TokenExpiration)
	assert.Equal(t, auth.DefaultCookieName, opts.CookieName)
	assert.Equal(t, auth.DefaultRoleLookupTimeout, opts.RoleLookupTimeout)
	assert.False(t, opts.IsProduction())
	assert.False(t, opts.GetSecureCookies())
	assert.Empty(t, opts.SigningKey)
}

func TestOptionsFromEnvInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		auth.EnvTokenExpiration:   "a week",
		auth.EnvRoleLookupTimeout: "soon",
		auth.EnvDebug:             "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			_, err := auth.OptionsFromEnv(envMap(map[string]string{key: value}))
			assert.Error(t, err)
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := func() *auth.Options {
		opts := auth.DefaultOptions()
		opts.SigningKey = testSigningKey
		return opts
	}

	require.NoError(t, valid().Validate())

	t.Run("signing key", func(t *testing.T) {
		for _, key := range []string{"", auth.InsecureDefaultSigningKey, "changeme", "too-short"} {
			opts := valid()
			opts.SigningKey = key
			err := opts.Validate()
			require.Error(t, err, "key %q", key)
			assert.True(t, auth.IsInsecureSigningKeyError(err), "key %q: %v", key, err)
		}
	})

	t.Run("remote rejected route default", func(t *testing.T) {
		opts := valid()
		opts.RejectedRouteDefault = "https://elsewhere.example.com"
		assert.Error(t, opts.Validate())

		opts.RejectedRouteDefault = "//elsewhere.example.com"
		assert.Error(t, opts.Validate())
	})

	t.Run("token expiration", func(t *testing.T) {
		opts := valid()
		opts.TokenExpiration = 0
		assert.Error(t, opts.Validate())
	})

	t.Run("lookup timeout", func(t *testing.T) {
		opts := valid()
		opts.RoleLookupTimeout = 0
		assert.Error(t, opts.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv(auth.EnvSigningKey, testSigningKey)
		t.Setenv(auth.EnvIssuer, "from-env")

		opts, err := auth.LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, "from-env", opts.Issuer)
	})

	t.Run("env file", func(t *testing.T) {
		for _, key := range []string{auth.EnvSigningKey, auth.EnvCookieName} {
			prev, had := os.LookupEnv(key)
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() {
				if had {
					os.Setenv(key, prev)
					return
				}
				os.Unsetenv(key)
			})
		}

		file := filepath.Join(t.TempDir(), ".env")
		content := auth.EnvSigningKey + "=" + testSigningKey + "\n" + auth.EnvCookieName + "=file-session\n"
		require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

		opts, err := auth.LoadConfig(file)
		require.NoError(t, err)
		assert.Equal(t, "file-session", opts.GetCookieName())
	})

	t.Run("missing signing key", func(t *testing.T) {
		t.Setenv(auth.EnvSigningKey, "")

		_, err := auth.LoadConfig()
		require.Error(t, err)
		assert.True(t, auth.IsInsecureSigningKeyError(err))
	})
}
