package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-portal-auth"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// UserRepository implements auth.UserStore using Bun.
type UserRepository struct {
	db  bun.IDB
	now func() time.Time
}

var _ auth.UserStore = (*UserRepository)(nil)

// NewUserRepository creates a new repository.
func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// EnsureSchema creates the users table if it does not exist.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create users table")
	}
	return nil
}

// GetByIdentifier finds a user by id or by email, case insensitive.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, auth.ErrIdentityNotFound
	}

	if id, err := uuid.Parse(identifier); err == nil {
		return r.getByUUID(ctx, id)
	}

	user := new(auth.User)
	err := r.db.NewSelect().
		Model(user).
		Where("lower(?TableAlias.email) = ?", strings.ToLower(identifier)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err, "get_by_identifier")
	}
	return user, nil
}

// GetByID finds a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, auth.ErrIdentityNotFound
	}
	return r.getByUUID(ctx, uid)
}

func (r *UserRepository) getByUUID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	user := new(auth.User)
	err := r.db.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err, "get_by_id")
	}
	return user, nil
}

// Create inserts user. Emails are stored lower case.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if !user.Role.IsValid() {
		user.Role = auth.RoleAuthor
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	now := r.now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, auth.ErrIdentityExists
		}
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to create user")
	}

	return user, nil
}

// UpdatePasswordHash stores a new password hash for id.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return auth.ErrIdentityNotFound
	}

	now := r.now()
	res, err := r.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("password_hash = ?", hash).
		Set("password_changed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", uid).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to update password hash")
	}
	return requireAffected(res)
}

// UpdateRole changes the stored role for id. Admin paths see the change
// on the next request; other paths when the user next gets a token.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role auth.Role) error {
	if !role.IsValid() {
		_, err := auth.ParseRole(string(role))
		return err
	}

	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return auth.ErrIdentityNotFound
	}

	res, err := r.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("user_role = ?", role).
		Set("updated_at = ?", r.now()).
		Where("id = ?", uid).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to update role")
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to read affected rows")
	}
	if n == 0 {
		return auth.ErrIdentityNotFound
	}
	return nil
}

func mapNotFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ErrIdentityNotFound
	}
	return errors.Wrap(err, errors.CategoryExternal, "user lookup failed").
		WithMetadata(map[string]any{"operation": op})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
