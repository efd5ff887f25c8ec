package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultCookieName carries the token for browser clients
	DefaultCookieName = "auth-token"
	// DefaultAuthScheme is the Authorization header scheme
	DefaultAuthScheme = "Bearer"
	// DefaultRoleLookupTimeout bounds the admin role lookup
	DefaultRoleLookupTimeout = 2 * time.Second

	tracerName = "github.com/goliatone/go-portal-auth"
)

// GateOption configures a Gate
type GateOption func(*Gate)

// WithPolicy replaces the route policy table
func WithPolicy(policy RoutePolicy) GateOption {
	return func(g *Gate) {
		g.policy = policy.withDefaults()
	}
}

// WithCookieName sets the token cookie name
func WithCookieName(name string) GateOption {
	return func(g *Gate) {
		if name != "" {
			g.cookieName = name
		}
	}
}

// WithAuthScheme sets the Authorization header scheme
func WithAuthScheme(scheme string) GateOption {
	return func(g *Gate) {
		if scheme != "" {
			g.authScheme = scheme
		}
	}
}

// WithRoleLookupTimeout bounds the admin role lookup
func WithRoleLookupTimeout(timeout time.Duration) GateOption {
	return func(g *Gate) {
		if timeout > 0 {
			g.lookupTimeout = timeout
		}
	}
}

// WithGateLogger sets the logger
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTracer sets the tracer used around role lookups
func WithTracer(tracer trace.Tracer) GateOption {
	return func(g *Gate) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// Gate decides, per request, whether to allow, redirect or deny.
// It holds no per request state and is safe for concurrent use.
type Gate struct {
	tokens        TokenValidator
	roles         RoleLookup
	policy        RoutePolicy
	cookieName    string
	authScheme    string
	lookupTimeout time.Duration
	logger        Logger
	tracer        trace.Tracer
}

// NewGate builds a gate. Both collaborators are required.
func NewGate(tokens TokenValidator, roles RoleLookup, opts ...GateOption) (*Gate, error) {
	if tokens == nil {
		return nil, errors.New("gate requires a token validator", errors.CategoryInternal).
			WithTextCode(TextCodeMissingCollaborator)
	}
	if roles == nil {
		return nil, errors.New("gate requires a role lookup", errors.CategoryInternal).
			WithTextCode(TextCodeMissingCollaborator)
	}

	g := &Gate{
		tokens:        tokens,
		roles:         roles,
		policy:        DefaultRoutePolicy(),
		cookieName:    DefaultCookieName,
		authScheme:    DefaultAuthScheme,
		lookupTimeout: DefaultRoleLookupTimeout,
		logger:        defLogger{},
		tracer:        otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g, nil
}

// NewGateFromConfig builds a gate using cfg values
func NewGateFromConfig(cfg Config, tokens TokenValidator, roles RoleLookup, opts ...GateOption) (*Gate, error) {
	base := []GateOption{
		WithCookieName(cfg.GetCookieName()),
		WithAuthScheme(cfg.GetAuthScheme()),
		WithRoleLookupTimeout(cfg.GetRoleLookupTimeout()),
	}
	return NewGate(tokens, roles, append(base, opts...)...)
}

// Policy returns the route table in use
func (g *Gate) Policy() RoutePolicy {
	return g.policy
}

// CookieName returns the token cookie name
func (g *Gate) CookieName() string {
	return g.cookieName
}

// ExtractToken reads the token cookie first and falls back to the
// Authorization header. The first non empty source wins.
func (g *Gate) ExtractToken(req Request) (string, bool) {
	if req == nil {
		return "", false
	}

	if v := strings.TrimSpace(req.Cookie(g.cookieName)); v != "" {
		return v, true
	}

	auth := strings.TrimSpace(req.Header("Authorization"))
	l := len(g.authScheme)
	if len(auth) > l+1 && strings.EqualFold(auth[:l], g.authScheme) && auth[l] == ' ' {
		if tok := strings.TrimSpace(auth[l+1:]); tok != "" {
			return tok, true
		}
	}

	return "", false
}

// Authenticate extracts and validates the request token. Any failure
// leaves the request anonymous.
func (g *Gate) Authenticate(req Request) (AuthClaims, bool) {
	raw, ok := g.ExtractToken(req)
	if !ok {
		return nil, false
	}

	claims, err := g.tokens.Validate(raw)
	if err != nil {
		switch {
		case IsTokenExpiredError(err):
			g.logger.Debug("gate: expired token on %s", req.Path())
		default:
			g.logger.Debug("gate: rejected token on %s: %v", req.Path(), err)
		}
		return nil, false
	}

	return claims, true
}

// Authorize applies the route policy to path for the given claims.
// A nil claims value means the request is anonymous.
func (g *Gate) Authorize(ctx context.Context, path string, claims AuthClaims) Decision {
	api := g.policy.IsAPI(path)

	switch g.policy.Classify(path) {
	case TierAdmin:
		if claims == nil {
			return g.unauthenticated(api)
		}
		role, err := g.currentRole(ctx, claims.UserID())
		if err != nil {
			if IsIdentityNotFoundError(err) {
				g.logger.Info("gate: user %s no longer exists, denying %s", claims.UserID(), path)
				return g.forbidden(api)
			}
			g.logger.Warn("gate: role lookup failed for %s on %s: %v", claims.UserID(), path, err)
			return Deny(http.StatusServiceUnavailable, ErrStoreUnavailable.Message, err)
		}
		if !role.IsAdmin() {
			return g.forbidden(api)
		}
		return Allow()

	case TierAuthenticated:
		if claims == nil {
			return g.unauthenticated(api)
		}
		return Allow()

	case TierGuestOnly:
		if claims != nil {
			return RedirectTo(g.policy.LandingPath, nil)
		}
		return Allow()
	}

	return Allow()
}

// Evaluate runs the full pipeline for req. A nil request is allowed
// anonymously, there is no path to protect.
func (g *Gate) Evaluate(ctx context.Context, req Request) (AuthClaims, Decision) {
	if req == nil {
		return nil, Allow()
	}
	claims, ok := g.Authenticate(req)
	if !ok {
		claims = nil
	}
	return claims, g.Authorize(ctx, req.Path(), claims)
}

func (g *Gate) unauthenticated(api bool) Decision {
	if api {
		return Deny(http.StatusUnauthorized, ErrUnauthenticated.Message, ErrUnauthenticated)
	}
	return RedirectTo(g.policy.LoginPath, ErrUnauthenticated)
}

func (g *Gate) forbidden(api bool) Decision {
	if api {
		return Deny(http.StatusForbidden, ErrInsufficientRole.Message, ErrInsufficientRole)
	}
	return RedirectTo(g.policy.UnprivilegedPath, ErrInsufficientRole)
}

type roleResult struct {
	role Role
	err  error
}

// currentRole reads the stored role, bounded by the lookup timeout and
// the request context. Lookup errors are never retried.
func (g *Gate) currentRole(ctx context.Context, userID string) (Role, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", storeUnavailable(err, "current_role")
	}

	ctx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "auth.gate.current_role",
		trace.WithAttributes(attribute.String("auth.user_id", userID)),
	)
	defer span.End()

	done := make(chan roleResult, 1)
	go func() {
		role, err := g.roles.CurrentRole(ctx, userID)
		done <- roleResult{role: role, err: err}
	}()

	var res roleResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "role lookup failed")
		if IsIdentityNotFoundError(res.err) || IsStoreUnavailableError(res.err) {
			return "", res.err
		}
		return "", storeUnavailable(res.err, "current_role")
	}

	span.SetAttributes(attribute.String("auth.role", res.role.String()))
	return res.role, nil
}
