package jwtware

import (
	"context"
	"net/http"
	"time"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
)

// Evaluator runs the access pipeline for a request. *auth.Gate implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, req auth.Request) (auth.AuthClaims, auth.Decision)
	Policy() auth.RoutePolicy
}

// ValidationListener is invoked after a token has been validated and the
// request allowed.
type ValidationListener func(ctx router.Context, claims auth.AuthClaims) error

// Config configures the gate middleware
type Config struct {
	// Gate is required
	Gate Evaluator
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// ContextKey is the Locals key claims are stored under
	ContextKey string
	// RejectedRouteKey names the cookie that remembers where an anonymous
	// visitor was going. Empty disables it.
	RejectedRouteKey string
	// SecureCookies marks the rejected route cookie Secure
	SecureCookies bool
	// ContextEnricher propagates claims to the standard context
	ContextEnricher     func(c context.Context, claims auth.AuthClaims) context.Context
	ValidationListeners []ValidationListener
	// DenyHandler renders denials. Defaults to a {"error": ...} JSON body.
	DenyHandler func(ctx router.Context, decision auth.Decision) error
	Logger      auth.Logger
}

// GetDefaultConfig fills the zero values of config
func GetDefaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Gate == nil {
		panic("jwtware: Gate is required")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultLocalsKey
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = auth.WithClaimsContext
	}

	if cfg.DenyHandler == nil {
		cfg.DenyHandler = defaultDenyHandler
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger()
	}

	return cfg
}

// New returns middleware enforcing the gate decision on every request
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			claims, decision := cfg.Gate.Evaluate(ctx.Context(), NewRequest(ctx))

			if claims != nil {
				ctx.Locals(cfg.ContextKey, claims)
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
			}

			switch decision.Kind {
			case auth.DecisionRedirect:
				cfg.Logger.Debug("jwtware: redirect %s -> %s", ctx.Path(), decision.Location)
				if claims == nil && decision.Location == cfg.Gate.Policy().LoginPath {
					auth.SetRejectedRouteCookie(ctx, cfg.RejectedRouteKey, cfg.SecureCookies, time.Now())
				}
				return ctx.Redirect(decision.Location, redirectStatus(ctx))

			case auth.DecisionDeny:
				cfg.Logger.Debug("jwtware: deny %s status=%d", ctx.Path(), decision.Status)
				return cfg.DenyHandler(ctx, decision)
			}

			if claims != nil {
				for _, listener := range cfg.ValidationListeners {
					if listener == nil {
						continue
					}
					if err := listener(ctx, claims); err != nil {
						return err
					}
				}
			}

			return ctx.Next()
		}
	}
}

func redirectStatus(ctx router.Context) int {
	if ctx.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func defaultDenyHandler(ctx router.Context, decision auth.Decision) error {
	return ctx.JSON(decision.Status, decision.Body())
}
