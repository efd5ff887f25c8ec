package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging contract used across the package.
// glog loggers satisfy it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes a token is minted for
type Identity interface {
	ID() string
	Email() string
	Role() Role
}

// Config holds the auth configuration values
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetAuthScheme() string
	GetSecureCookies() bool
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetRoleLookupTimeout() time.Duration
}

// UserStore is the persistence collaborator. Implementations
// must return ErrIdentityNotFound when a record does not exist.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// RoleLookup returns the role currently stored for a user.
// The gate calls it for every admin path request.
type RoleLookup interface {
	CurrentRole(ctx context.Context, userID string) (Role, error)
}

// RoleLookupFunc adapts a function to RoleLookup
type RoleLookupFunc func(ctx context.Context, userID string) (Role, error)

// CurrentRole calls fn
func (fn RoleLookupFunc) CurrentRole(ctx context.Context, userID string) (Role, error) {
	return fn(ctx, userID)
}

// PasswordHasher hashes and checks secrets
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Compare(secret, hashed string) error
}

// TokenValidator validates raw tokens
type TokenValidator interface {
	Validate(token string) (AuthClaims, error)
}

// TokenService issues and validates identity tokens
type TokenService interface {
	TokenValidator
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// Authenticator is the credential flow surface used by HTTP handlers
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Register(ctx context.Context, req RegisterRequest) (string, error)
	ChangePassword(ctx context.Context, userID, current, next string) (string, error)
	TokenService() TokenService
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+format+"\n", args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+format+"\n", args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+format+"\n", args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+format+"\n", args...)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// NopLogger discards everything
func NopLogger() Logger {
	return nopLogger{}
}
