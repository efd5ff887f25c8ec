package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// UserProvider resolves identities and roles from the user store
type UserProvider struct {
	store     UserStore
	hasher    PasswordHasher
	Validator func(*User) error
	logger    Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:     store,
		hasher:    defaultVerifier,
		logger:    defLogger{},
		Validator: defaultValidator,
	}
}

// WithLogger sets the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithHasher replaces the password hasher
func (u *UserProvider) WithHasher(h PasswordHasher) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// Hasher returns the password hasher in use
func (u *UserProvider) Hasher() PasswordHasher {
	return u.hasher
}

// Store returns the backing user store
func (u *UserProvider) Store() UserStore {
	return u.store
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// Unknown users and wrong passwords return the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if IsIdentityNotFoundError(err) || errors.IsNotFound(err) {
			// burn a compare so response time does not reveal unknown accounts
			_ = u.hasher.Compare(password, u.placeholderHash())
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, storeUnavailable(err, "get_by_identifier")
	}

	if user == nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.hasher.Compare(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewUserIdentity(user), nil
}

// FindIdentityByIdentifier returns the identity for identifier without
// checking credentials
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewUserIdentity(user), nil
}

// CurrentRole returns the stored role for userID. It satisfies RoleLookup.
// Missing users yield ErrIdentityNotFound, any other failure ErrStoreUnavailable.
func (u *UserProvider) CurrentRole(ctx context.Context, userID string) (Role, error) {
	user, err := u.store.GetByID(ctx, userID)
	if err != nil {
		if IsIdentityNotFoundError(err) || errors.IsNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", storeUnavailable(err, "get_by_id")
	}
	if user == nil {
		return "", ErrIdentityNotFound
	}
	return user.Role, nil
}

func (u *UserProvider) placeholderHash() string {
	u.dummyOnce.Do(func() {
		h, err := u.hasher.Hash("placeholder-credential")
		if err != nil {
			u.logger.Error("user provider: unable to build placeholder hash: %v", err)
			return
		}
		u.dummyHash = h
	})
	return u.dummyHash
}

var _ RoleLookup = (*UserProvider)(nil)

func defaultValidator(u *User) error {
	if u.Role.IsValid() {
		return nil
	}
	return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
		WithCode(errors.CodeForbidden).
		WithTextCode("INVALID_ROLE").
		WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
}
