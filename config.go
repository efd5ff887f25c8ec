package auth

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Environment variable names read by LoadConfig
const (
	EnvSigningKey           = "PORTAL_AUTH_SIGNING_KEY"
	EnvTokenExpiration      = "PORTAL_AUTH_TOKEN_EXPIRATION"
	EnvIssuer               = "PORTAL_AUTH_ISSUER"
	EnvAudience             = "PORTAL_AUTH_AUDIENCE"
	EnvCookieName           = "PORTAL_AUTH_COOKIE_NAME"
	EnvEnvironment          = "PORTAL_AUTH_ENV"
	EnvRoleLookupTimeout    = "PORTAL_AUTH_ROLE_LOOKUP_TIMEOUT"
	EnvRejectedRouteKey     = "PORTAL_AUTH_REJECTED_ROUTE_KEY"
	EnvRejectedRouteDefault = "PORTAL_AUTH_REJECTED_ROUTE_DEFAULT"
	EnvDatabaseDSN          = "PORTAL_AUTH_DB_DSN"
	EnvAddr                 = "PORTAL_AUTH_ADDR"
	EnvDebug                = "PORTAL_AUTH_DEBUG"
	EnvSeedAdminEmail       = "PORTAL_AUTH_SEED_ADMIN_EMAIL"
	EnvSeedAdminPassword    = "PORTAL_AUTH_SEED_ADMIN_PASSWORD"
)

// Options is the concrete Config, loaded from the environment
type Options struct {
	SigningKey           string        `json:"-"`
	TokenExpiration      int           `json:"token_expiration"`
	Issuer               string        `json:"issuer"`
	Audience             []string      `json:"audience"`
	CookieName           string        `json:"cookie_name"`
	AuthScheme           string        `json:"auth_scheme"`
	Environment          string        `json:"environment"`
	RoleLookupTimeout    time.Duration `json:"role_lookup_timeout"`
	RejectedRouteKey     string        `json:"rejected_route_key"`
	RejectedRouteDefault string        `json:"rejected_route_default"`
	DatabaseDSN          string        `json:"database_dsn"`
	Addr                 string        `json:"addr"`
	Debug                bool          `json:"debug"`
	SeedAdminEmail       string        `json:"seed_admin_email"`
	SeedAdminPassword    string        `json:"-"`
}

var _ Config = (*Options)(nil)

// DefaultOptions returns the defaults. SigningKey is intentionally empty.
func DefaultOptions() *Options {
	return &Options{
		TokenExpiration:      int(DefaultTokenTTL / time.Hour),
		Issuer:               "portal-auth",
		CookieName:           DefaultCookieName,
		AuthScheme:           DefaultAuthScheme,
		Environment:          "development",
		RoleLookupTimeout:    DefaultRoleLookupTimeout,
		RejectedRouteKey:     "rejected_route",
		RejectedRouteDefault: "/dashboard",
		DatabaseDSN:          "file:portal-auth.db?cache=shared",
		Addr:                 ":8572",
	}
}

// LoadConfig loads the given env files, missing ones are skipped, then
// reads the environment over the defaults and validates the result.
func LoadConfig(files ...string) (*Options, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to load env file "+f)
		}
	}

	opts, err := OptionsFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// OptionsFromEnv reads options using getenv
func OptionsFromEnv(getenv func(string) string) (*Options, error) {
	opts := DefaultOptions()

	opts.SigningKey = getenv(EnvSigningKey)
	setString(&opts.Issuer, getenv(EnvIssuer))
	setString(&opts.CookieName, getenv(EnvCookieName))
	setString(&opts.Environment, getenv(EnvEnvironment))
	setString(&opts.RejectedRouteKey, getenv(EnvRejectedRouteKey))
	setString(&opts.RejectedRouteDefault, getenv(EnvRejectedRouteDefault))
	setString(&opts.DatabaseDSN, getenv(EnvDatabaseDSN))
	setString(&opts.Addr, getenv(EnvAddr))
	setString(&opts.SeedAdminEmail, getenv(EnvSeedAdminEmail))
	opts.SeedAdminPassword = getenv(EnvSeedAdminPassword)

	if v := strings.TrimSpace(getenv(EnvAudience)); v != "" {
		opts.Audience = nil
		for _, aud := range strings.Split(v, ",") {
			if aud = strings.TrimSpace(aud); aud != "" {
				opts.Audience = append(opts.Audience, aud)
			}
		}
	}

	if v := strings.TrimSpace(getenv(EnvTokenExpiration)); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, configError(EnvTokenExpiration, err)
		}
		opts.TokenExpiration = hours
	}

	if v := strings.TrimSpace(getenv(EnvRoleLookupTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, configError(EnvRoleLookupTimeout, err)
		}
		opts.RoleLookupTimeout = d
	}

	if v := strings.TrimSpace(getenv(EnvDebug)); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, configError(EnvDebug, err)
		}
		opts.Debug = debug
	}

	return opts, nil
}

// Validate checks the options. A missing or default signing key is an error.
func (o *Options) Validate() error {
	if err := CheckSigningKey(o.SigningKey); err != nil {
		return err
	}

	err := validation.ValidateStruct(o,
		validation.Field(&o.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&o.CookieName, validation.Required),
		validation.Field(&o.AuthScheme, validation.Required),
		validation.Field(&o.RoleLookupTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.RejectedRouteDefault, validation.By(localPath)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid auth configuration")
	}

	return nil
}

// IsProduction reports whether the environment is production
func (o *Options) IsProduction() bool {
	return strings.EqualFold(o.Environment, "production") || strings.EqualFold(o.Environment, "prod")
}

func (o *Options) GetSigningKey() string               { return o.SigningKey }
func (o *Options) GetTokenExpiration() int             { return o.TokenExpiration }
func (o *Options) GetIssuer() string                   { return o.Issuer }
func (o *Options) GetAudience() []string               { return o.Audience }
func (o *Options) GetCookieName() string               { return o.CookieName }
func (o *Options) GetAuthScheme() string               { return o.AuthScheme }
func (o *Options) GetSecureCookies() bool              { return o.IsProduction() }
func (o *Options) GetRejectedRouteKey() string         { return o.RejectedRouteKey }
func (o *Options) GetRejectedRouteDefault() string     { return o.RejectedRouteDefault }
func (o *Options) GetRoleLookupTimeout() time.Duration { return o.RoleLookupTimeout }

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func localPath(value any) error {
	s, _ := value.(string)
	if s == "" || isLocalRedirect(s) {
		return nil
	}
	return errors.New("must be a local path", errors.CategoryValidation)
}

func configError(key string, err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "invalid value for "+key).
		WithMetadata(map[string]any{"key": key})
}
