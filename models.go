package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record kept by the user store
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Role              Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name              string     `bun:"name" json:"name,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	PasswordChangedAt *time.Time `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserIdentity adapts a User to the Identity interface
type UserIdentity struct {
	user *User
}

// NewUserIdentity wraps user
func NewUserIdentity(user *User) UserIdentity {
	return UserIdentity{user: user}
}

// ID returns the user id
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Email returns the user email
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the stored role
func (u UserIdentity) Role() Role {
	if u.user == nil {
		return ""
	}
	return u.user.Role
}
