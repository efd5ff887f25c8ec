package auth

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginPayload is what the login flow needs from a request
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// HTTPAuthenticator is the cookie aware surface the controller drives
type HTTPAuthenticator interface {
	Login(ctx router.Context, payload LoginPayload) (string, error)
	Register(ctx router.Context, req RegisterRequest) (string, error)
	ChangePassword(ctx router.Context, userID, current, next string) (string, error)
	Logout(ctx router.Context)
	GetRedirectOrDefault(ctx router.Context) string
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

// RegisterAuthRoutes mounts the JSON auth endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.signup.post")
	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("auth.logout.post")
	app.Get(controller.Routes.Me, controller.Me).
		SetName("account.me.get")
	app.Post(controller.Routes.Password, controller.ChangePasswordPost).
		SetName("account.password.post")
}

// AuthControllerRoutes are the endpoint paths
type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Me       string
	Password string
}

// AuthController serves the JSON auth endpoints
type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Tokens       TokenValidator
	LocalsKey    string
	ErrorHandler func(c router.Context, err error) error
}

// AuthControllerOption configures an AuthController
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithControllerRoutes overrides the endpoint paths
func WithControllerRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = &routes
		return c
	}
}

// WithControllerDebug dumps payloads to the logger
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithLocalsKey sets where the gate middleware stored the claims
func WithLocalsKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.LocalsKey = key
		}
		return c
	}
}

// NewAuthController builds the controller. auther and tokens are required.
func NewAuthController(auther HTTPAuthenticator, tokens TokenValidator, opts ...AuthControllerOption) *AuthController {
	if auther == nil {
		panic("missing HTTPAuthenticator in auth controller")
	}
	if tokens == nil {
		panic("missing TokenValidator in auth controller")
	}

	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: jsonErrHandler,
		Auther:       auther,
		Tokens:       tokens,
		LocalsKey:    DefaultLocalsKey,
		Routes: &AuthControllerRoutes{
			Login:    "/api/auth/login",
			Logout:   "/api/auth/logout",
			Register: "/api/auth/signup",
			Me:       "/api/account/me",
			Password: "/api/account/password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules. The password policy runs in the flow.
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

// SessionUser is the user summary returned by the endpoints
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// SessionResponse is returned after every flow that mints a token
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
	Redirect  string      `json:"redirect,omitempty"`
}

// LoginPost verifies credentials, sets the cookie and returns the session
func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badRequest(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, badRequest(err))
	}

	if a.Debug {
		a.Logger.Debug("auth controller: login %s", print.MaybePrettyJSON(map[string]string{
			"identifier": payload.Identifier,
		}))
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.session(ctx, http.StatusOK, token, a.Auther.GetRedirectOrDefault(ctx))
}

// RegistrationCreate creates an author account and signs it in
func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badRequest(err))
	}

	token, err := a.Auther.Register(ctx, *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.session(ctx, http.StatusCreated, token, "")
}

// LogOut deletes the token cookie
func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user
func (a *AuthController) Me(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.LocalsKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user":       sessionUser(claims),
		"expires_at": claims.Expires(),
	})
}

// ChangePasswordPost replaces the password of the authenticated user and
// issues a new token
func (a *AuthController) ChangePasswordPost(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.LocalsKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	payload := new(ChangePasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badRequest(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, badRequest(err))
	}

	token, err := a.Auther.ChangePassword(ctx, claims.UserID(), payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.session(ctx, http.StatusOK, token, "")
}

func (a *AuthController) session(ctx router.Context, status int, token, redirect string) error {
	claims, err := a.Tokens.Validate(token)
	if err != nil {
		a.Logger.Error("auth controller: freshly issued token failed validation: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(status, SessionResponse{
		Token:     token,
		ExpiresAt: claims.Expires(),
		User:      sessionUser(claims),
		Redirect:  redirect,
	})
}

func sessionUser(claims AuthClaims) SessionUser {
	return SessionUser{
		ID:    claims.UserID(),
		Email: claims.Email(),
		Role:  claims.Role(),
	}
}

func badRequest(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid request: "+err.Error()).
		WithCode(errors.CodeBadRequest)
}

func jsonErrHandler(c router.Context, err error) error {
	richErr := AsRichError(err)
	return c.JSON(richErr.Code, ErrorBody{Error: richErr.Message})
}
