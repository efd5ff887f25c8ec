package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	rejectedRouteTTL     = 5 * time.Minute
	internalErrorMessage = "an unexpected server error occurred"
)

// RouteAuthenticator binds the credential flows to router requests and
// owns the token cookie.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	now            func() time.Time
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

// NewHTTPAuthenticator builds a RouteAuthenticator
func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("http authenticator requires an authenticator", errors.CategoryInternal).
			WithTextCode(TextCodeMissingCollaborator)
	}

	cookieDuration := DefaultTokenTTL
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
		now:            time.Now,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	if l != nil {
		a.Logger = l
	}
	return a
}

// GetCookieDuration returns the token cookie lifetime
func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Login verifies payload and sets the token cookie
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Debug("route authenticator: login error: %v", err)
		return "", err
	}

	a.setCookieToken(ctx, token)
	return token, nil
}

// Register creates an account and sets the token cookie
func (a *RouteAuthenticator) Register(ctx router.Context, req RegisterRequest) (string, error) {
	token, err := a.auth.Register(ctx.Context(), req)
	if err != nil {
		a.Logger.Debug("route authenticator: register error: %v", err)
		return "", err
	}

	a.setCookieToken(ctx, token)
	return token, nil
}

// ChangePassword updates the credential of userID and replaces the token cookie
func (a *RouteAuthenticator) ChangePassword(ctx router.Context, userID, current, next string) (string, error) {
	token, err := a.auth.ChangePassword(ctx.Context(), userID, current, next)
	if err != nil {
		a.Logger.Debug("route authenticator: change password error: %v", err)
		return "", err
	}

	a.setCookieToken(ctx, token)
	return token, nil
}

// Logout deletes the token cookie
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cookieName())
}

// GetRedirect returns the remembered route or the first default
func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	fallback := ""
	if len(def) > 0 {
		fallback = def[0]
	}

	rejectedRoute := a.cfg.GetRejectedRouteKey()
	if rejectedRoute == "" {
		return fallback
	}

	r := ctx.Cookies(rejectedRoute)
	if !isLocalRedirect(r) {
		return fallback
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault returns the remembered route or the configured default
func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	return a.GetRedirect(ctx, a.cfg.GetRejectedRouteDefault())
}

// SetRedirect remembers the current route so login can return to it
func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	SetRejectedRouteCookie(ctx, a.cfg.GetRejectedRouteKey(), a.cfg.GetSecureCookies(), a.now())
}

// SetRejectedRouteCookie stores the original URL of ctx under key for a short time
func SetRejectedRouteCookie(ctx router.Context, key string, secure bool, now time.Time) {
	if key == "" {
		return
	}
	ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    ctx.OriginalURL(),
		Path:     "/",
		MaxAge:   int(rejectedRouteTTL / time.Second),
		Expires:  now.Add(rejectedRouteTTL),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieName() string {
	if name := a.cfg.GetCookieName(); name != "" {
		return name
	}
	return DefaultCookieName
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName(),
		Value:    val,
		Path:     "/",
		MaxAge:   int(a.cookieDuration / time.Second),
		Expires:  a.now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  a.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	richErr := AsRichError(err)

	a.Logger.Debug("route authenticator: %s [%s] %s",
		richErr.Message, richErr.Category, print.MaybePrettyJSON(richErr.Metadata))

	return c.JSON(richErr.Code, ErrorBody{Error: richErr.Message})
}

// AsRichError converts err into a go-errors value with an HTTP code
func AsRichError(err error) *errors.Error {
	if err == nil {
		err = errors.New(internalErrorMessage, errors.CategoryInternal)
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, internalErrorMessage).
			WithCode(errors.CodeInternal)
	}

	if richErr.Code == 0 {
		richErr = richErr.Clone()
		switch richErr.Category {
		case errors.CategoryAuth:
			richErr.Code = errors.CodeUnauthorized
		case errors.CategoryAuthz:
			richErr.Code = errors.CodeForbidden
		case errors.CategoryValidation, errors.CategoryBadInput:
			richErr.Code = errors.CodeBadRequest
		case errors.CategoryNotFound:
			richErr.Code = errors.CodeNotFound
		case errors.CategoryConflict:
			richErr.Code = errors.CodeConflict
		case errors.CategoryExternal:
			richErr.Code = http.StatusServiceUnavailable
		default:
			richErr.Code = errors.CodeInternal
		}
	}

	if richErr.Category == errors.CategoryInternal {
		// internal details never reach the client
		richErr = richErr.Clone()
		richErr.Message = internalErrorMessage
	}

	return richErr
}

func isLocalRedirect(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") && !strings.Contains(path, "\\")
}
