package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProvider(store auth.UserStore) *auth.UserProvider {
	return auth.NewUserProvider(store).
		WithHasher(fastHasher).
		WithLogger(auth.NopLogger())
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	user := &auth.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		Role:         auth.RoleReviewer,
		PasswordHash: mustHash(t, "analytical-engine"),
	}

	t.Run("Successful verification", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ada@example.com").Return(user, nil).Once()

		identity, err := newTestProvider(store).VerifyIdentity(ctx, "ada@example.com", "analytical-engine")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, auth.RoleReviewer, identity.Role())
		assert.Equal(t, "ada@example.com", identity.Email())

		store.AssertExpectations(t)
	})

	t.Run("Unknown user and wrong password look the same", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ada@example.com").Return(user, nil).Once()
		store.On("GetByIdentifier", ctx, "nobody@example.com").Return(nil, auth.ErrIdentityNotFound).Once()

		provider := newTestProvider(store)

		_, wrongPassword := provider.VerifyIdentity(ctx, "ada@example.com", "difference-engine")
		_, unknownUser := provider.VerifyIdentity(ctx, "nobody@example.com", "difference-engine")

		require.Error(t, wrongPassword)
		require.Error(t, unknownUser)
		assert.True(t, auth.IsInvalidCredentialsError(wrongPassword))
		assert.True(t, auth.IsInvalidCredentialsError(unknownUser))
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

		store.AssertExpectations(t)
	})

	t.Run("Store failure", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ada@example.com").Return(nil, errors.New("connection refused")).Once()

		_, err := newTestProvider(store).VerifyIdentity(ctx, "ada@example.com", "analytical-engine")
		require.Error(t, err)
		assert.True(t, auth.IsStoreUnavailableError(err))
		assert.False(t, auth.IsInvalidCredentialsError(err))
	})

	t.Run("Unknown stored role", func(t *testing.T) {
		broken := *user
		broken.Role = auth.Role("superuser")

		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ada@example.com").Return(&broken, nil).Once()

		_, err := newTestProvider(store).VerifyIdentity(ctx, "ada@example.com", "analytical-engine")
		assert.Error(t, err)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: uuid.New(), Email: "ada@example.com", Role: auth.RoleAuthor}

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "ada@example.com").Return(user, nil).Once()
	store.On("GetByIdentifier", ctx, "nobody@example.com").Return(nil, auth.ErrIdentityNotFound).Once()

	provider := newTestProvider(store)

	identity, err := provider.FindIdentityByIdentifier(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	_, err = provider.FindIdentityByIdentifier(ctx, "nobody@example.com")
	assert.True(t, auth.IsIdentityNotFoundError(err))
}

func TestUserProviderCurrentRole(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	tests := []struct {
		name     string
		user     *auth.User
		storeErr error
		role     auth.Role
		check    func(error) bool
	}{
		{"stored role", &auth.User{Role: auth.RoleAdmin}, nil, auth.RoleAdmin, nil},
		{"missing user", nil, auth.ErrIdentityNotFound, "", auth.IsIdentityNotFoundError},
		{"nil user", nil, nil, "", auth.IsIdentityNotFoundError},
		{"store down", nil, errors.New("timeout"), "", auth.IsStoreUnavailableError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockUserStore)
			store.On("GetByID", mock.Anything, id).Return(tt.user, tt.storeErr).Once()

			role, err := newTestProvider(store).CurrentRole(ctx, id)
			assert.Equal(t, tt.role, role)
			if tt.check == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, tt.check(err), "got %v", err)
			}
		})
	}
}
