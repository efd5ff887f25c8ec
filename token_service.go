package auth

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of every issued token
	DefaultTokenTTL = 7 * 24 * time.Hour
	// MinSigningKeyLength is the shortest accepted HMAC secret, in bytes
	MinSigningKeyLength = 32
	// InsecureDefaultSigningKey is the placeholder shipped in sample env files.
	// It is always rejected.
	InsecureDefaultSigningKey = "change-me-to-a-long-random-secret"
)

var knownInsecureKeys = []string{
	InsecureDefaultSigningKey,
	"secret",
	"changeme",
	"change-me",
	"default",
	"your-secret-key",
}

// IssueClaims are the values a token is minted with
type IssueClaims struct {
	UserID string
	Email  string
	Role   Role
}

// TokenOption configures a TokenServiceImpl
type TokenOption func(*TokenServiceImpl)

// WithTokenTTL overrides the token lifetime
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(ts *TokenServiceImpl) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithIssuer sets the iss claim and requires it on validation
func WithIssuer(issuer string) TokenOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithAudience sets the aud claim and requires it on validation
func WithAudience(audience ...string) TokenOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = append(jwt.ClaimStrings{}, audience...)
	}
}

// WithClock injects the time source used for issuance and expiry checks
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new TokenService instance. The signing key
// is required and must not be a known default.
func NewTokenService(signingKey []byte, opts ...TokenOption) (*TokenServiceImpl, error) {
	if err := CheckSigningKey(string(signingKey)); err != nil {
		return nil, err
	}

	ts := &TokenServiceImpl{
		signingKey: append([]byte(nil), signingKey...),
		ttl:        DefaultTokenTTL,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds a token service from cfg
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	return NewTokenService([]byte(cfg.GetSigningKey()),
		WithTokenTTL(time.Duration(cfg.GetTokenExpiration())*time.Hour),
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
		WithTokenLogger(logger),
	)
}

// CheckSigningKey rejects empty, short and well known keys
func CheckSigningKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ErrInsecureSigningKey
	}

	for _, k := range knownInsecureKeys {
		if strings.EqualFold(trimmed, k) {
			return ErrInsecureSigningKey
		}
	}

	if len(key) < MinSigningKeyLength {
		return ErrInsecureSigningKey.Clone().
			WithMetadata(map[string]any{"min_length": MinSigningKeyLength})
	}

	return nil
}

// TTL returns the configured token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate mints a token for identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}
	return ts.Issue(IssueClaims{
		UserID: identity.ID(),
		Email:  identity.Email(),
		Role:   identity.Role(),
	})
}

// Issue mints a token valid for the configured TTL from now
func (ts *TokenServiceImpl) Issue(in IssueClaims) (string, error) {
	if in.UserID == "" {
		return "", ErrNoEmptyString.Clone().
			WithMetadata(map[string]any{"field": "user_id"})
	}
	if !in.Role.IsValid() {
		return "", ErrInvalidRole.Clone().
			WithMetadata(map[string]any{"role": string(in.Role)})
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   in.UserID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:       in.UserID,
		UserEmail: in.Email,
		UserRole:  in.Role,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Any returned error means the token must be treated as absent.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMalformed
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
		jwt.WithStrictDecoding(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Debug("token service: unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithCode(ErrTokenMalformed.Code).
			WithTextCode(TextCodeTokenMalformed)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		return nil, ErrTokenMalformed
	}

	if !claims.Role().IsValid() {
		ts.logger.Debug("token service: unknown role %q", claims.Role())
		return nil, ErrTokenMalformed
	}

	if !ts.acceptsAudience(claims.RegisteredClaims.Audience) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// acceptsAudience requires at least one configured audience in aud.
// No configured audience accepts any token.
func (ts *TokenServiceImpl) acceptsAudience(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		if slices.Contains(aud, want) {
			return true
		}
	}
	return false
}
