package auth

import "github.com/google/uuid"

// UserIdentity exposes a stored User as an Identity.
type UserIdentity struct {
	user *User
}

var _ Identity = UserIdentity{}

var emptyUser = &User{}

// NewIdentityFromUser returns nil for a nil user so lookups can report "not found".
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

func (u UserIdentity) record() *User {
	if u.user == nil {
		return emptyUser
	}
	return u.user
}

// ID is the textual uuid, empty for a zero record.
func (u UserIdentity) ID() string {
	if id := u.record().ID; id != uuid.Nil {
		return id.String()
	}
	return ""
}

func (u UserIdentity) Username() string     { return u.record().Username }
func (u UserIdentity) Email() string        { return u.record().Email }
func (u UserIdentity) PasswordHash() string { return u.record().HashedPassword }
func (u UserIdentity) IsActive() bool       { return u.record().Active }

// User returns the underlying record, nil for the zero value.
func (u UserIdentity) User() *User {
	return u.user
}
