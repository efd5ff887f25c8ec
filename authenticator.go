package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RegisterRequest is the input for a new account
type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
}

// Validate checks the request fields. The password policy is applied separately.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Length(0, 120)),
		validation.Field(&r.Password, validation.Required),
	)
}

// Auther runs the login, signup and password change flows.
// Each successful flow mints a fresh token.
type Auther struct {
	provider *UserProvider
	tokens   TokenService
	logger   Logger
	now      func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider *UserProvider, tokens TokenService) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithLogger sets the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock sets the time source used for record timestamps
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the token service used to mint tokens
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credentials and returns a signed token
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", ErrMismatchedHashAndPassword
	}

	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		if !IsInvalidCredentialsError(err) {
			s.logger.Error("auther: login for %s failed: %v", identifier, err)
		}
		return "", err
	}

	s.logger.Debug("auther: login %s role=%s", identity.ID(), identity.Role())
	return s.tokens.Generate(identity)
}

// Register creates an author account and returns a signed token for it
func (s *Auther) Register(ctx context.Context, req RegisterRequest) (string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := req.Validate(); err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid registration").
			WithCode(errors.CodeBadRequest)
	}

	if res := ValidatePasswordPolicy(req.Password); !res.Valid {
		return "", weakPassword(res.Reason)
	}

	store := s.provider.Store()
	if _, err := store.GetByIdentifier(ctx, req.Email); err == nil {
		return "", ErrIdentityExists
	} else if !IsIdentityNotFoundError(err) && !errors.IsNotFound(err) {
		return "", storeUnavailable(err, "get_by_identifier")
	}

	hash, err := s.provider.Hasher().Hash(req.Password)
	if err != nil {
		return "", err
	}

	now := s.now()
	user, err := store.Create(ctx, &User{
		ID:                uuid.New(),
		Role:              RoleAuthor,
		Name:              req.Name,
		Email:             req.Email,
		PasswordHash:      hash,
		PasswordChangedAt: &now,
	})
	if err != nil {
		if IsIdentityExistsError(err) {
			return "", err
		}
		return "", storeUnavailable(err, "create")
	}

	s.logger.Info("auther: registered %s", user.ID)
	return s.tokens.Generate(NewUserIdentity(user))
}

// ChangePassword checks current, stores a hash of next and returns a
// new token carrying the role currently stored for the user
func (s *Auther) ChangePassword(ctx context.Context, userID, current, next string) (string, error) {
	if res := ValidatePasswordPolicy(next); !res.Valid {
		return "", weakPassword(res.Reason)
	}

	store := s.provider.Store()
	user, err := store.GetByID(ctx, userID)
	if err != nil {
		if IsIdentityNotFoundError(err) || errors.IsNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", storeUnavailable(err, "get_by_id")
	}
	if user == nil {
		return "", ErrIdentityNotFound
	}

	hasher := s.provider.Hasher()
	if err := hasher.Compare(current, user.PasswordHash); err != nil {
		return "", ErrMismatchedHashAndPassword
	}

	hash, err := hasher.Hash(next)
	if err != nil {
		return "", err
	}

	if err := store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return "", storeUnavailable(err, "update_password_hash")
	}

	now := s.now()
	user.PasswordHash = hash
	user.PasswordChangedAt = &now

	s.logger.Info("auther: password changed for %s", userID)
	return s.tokens.Generate(NewUserIdentity(user))
}

var _ Authenticator = (*Auther)(nil)
