package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,nullzero" json:"email,omitempty"`
	HashedPassword string     `bun:"hashed_password,notnull" json:"-"`
	Active         bool       `bun:"is_active,notnull" json:"is_active"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserView is the public projection of a User returned by HTTP handlers
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsActive bool   `json:"is_active"`
}

// ViewOf projects identity into a UserView. Users get their email populated.
func ViewOf(identity Identity) UserView {
	if isNilIdentity(identity) {
		return UserView{}
	}

	view := UserView{
		ID:       identity.ID(),
		Username: identity.Username(),
		IsActive: identity.IsActive(),
	}

	if emailer, ok := identity.(interface{ Email() string }); ok {
		view.Email = emailer.Email()
	}

	return view
}
