package repository

import (
	"context"
	"database/sql"
	"testing"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupUserRepo(t *testing.T) (*UserRepository, func()) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	repo := NewUserRepository(bunDB)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return repo, cleanup
}

func seedUser(t *testing.T, repo *UserRepository, email string, role auth.Role) *auth.User {
	user, err := repo.Create(context.Background(), &auth.User{
		Email:        email,
		Name:         "Test User",
		Role:         role,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	ctx := context.Background()
	created := seedUser(t, repo, "Ada@Example.com", auth.RoleAuthor)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	require.NotNil(t, created.CreatedAt)

	byEmail, err := repo.GetByIdentifier(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, auth.RoleAuthor, byEmail.Role)

	byIdentifierID, err := repo.GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Email, byIdentifierID.Email)

	byID, err := repo.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.PasswordHash, byID.PasswordHash)
}

func TestUserRepositoryNotFound(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"unknown email", func() error {
			_, err := repo.GetByIdentifier(ctx, "nobody@example.com")
			return err
		}},
		{"empty identifier", func() error {
			_, err := repo.GetByIdentifier(ctx, "  ")
			return err
		}},
		{"unknown id", func() error {
			_, err := repo.GetByID(ctx, uuid.NewString())
			return err
		}},
		{"malformed id", func() error {
			_, err := repo.GetByID(ctx, "not-a-uuid")
			return err
		}},
		{"update hash of unknown id", func() error {
			return repo.UpdatePasswordHash(ctx, uuid.NewString(), "hash")
		}},
		{"update role of unknown id", func() error {
			return repo.UpdateRole(ctx, uuid.NewString(), auth.RoleAdmin)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, auth.IsIdentityNotFoundError(err), "got %v", err)
		})
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	seedUser(t, repo, "dup@example.com", auth.RoleAuthor)

	_, err := repo.Create(context.Background(), &auth.User{
		Email:        "DUP@example.com",
		Role:         auth.RoleReviewer,
		PasswordHash: "x",
	})
	require.Error(t, err)
	assert.True(t, auth.IsIdentityExistsError(err))
}

func TestUserRepositoryUpdatePasswordHash(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "pw@example.com", auth.RoleAuthor)

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID.String(), "new-hash"))

	got, err := repo.GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.NotNil(t, got.PasswordChangedAt)
}

func TestUserRepositoryUpdateRole(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "rev@example.com", auth.RoleReviewer)

	err := repo.UpdateRole(ctx, user.ID.String(), auth.Role("superuser"))
	require.Error(t, err)

	require.NoError(t, repo.UpdateRole(ctx, user.ID.String(), auth.RoleAdmin))

	got, err := repo.GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, got.Role)
}

func TestUserRepositoryBacksRoleLookup(t *testing.T) {
	repo, cleanup := setupUserRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "promo@example.com", auth.RoleAuthor)
	provider := auth.NewUserProvider(repo).WithLogger(auth.NopLogger())

	role, err := provider.CurrentRole(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAuthor, role)

	require.NoError(t, repo.UpdateRole(ctx, user.ID.String(), auth.RoleAdmin))

	role, err = provider.CurrentRole(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, role)

	_, err = provider.CurrentRole(ctx, uuid.NewString())
	assert.True(t, auth.IsIdentityNotFoundError(err))
}
