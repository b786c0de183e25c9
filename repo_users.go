package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user record store
type Users interface {
	CreateSchema(ctx context.Context) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) CreateSchema(ctx context.Context) error {
	_, err := a.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create users table")
	}
	return nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

// GetByUsernameTx matches the username exactly. GetByIdentifier is not used
// since it switches to the id column for uuid shaped input.
func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record, err := a.Repository.GetTx(ctx, tx, repository.SelectBy("username", "=", username))
	if err != nil {
		return nil, mapStoreError(err, "failed to get user by username")
	}
	return record, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.getByIDTx(ctx, a.db, id)
}

func (a *users) getByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, mapStoreError(err, "failed to get user by id")
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record == nil {
		return nil, errors.New("user record must not be nil", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}
	return created, nil
}

func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	record, err := a.Repository.UpdateTx(ctx, a.db, &User{ID: id},
		repository.UpdateSetColumn("is_active", active),
		repository.UpdateSetColumn("updated_at", time.Now()),
	)
	if err != nil {
		return nil, mapStoreError(err, "failed to update user status")
	}
	return record, nil
}

func (a *users) SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := a.Repository.UpdateTx(ctx, a.db, &User{ID: id},
		repository.UpdateSetColumn("hashed_password", passwordHash),
		repository.UpdateSetColumn("updated_at", time.Now()),
	)
	if err != nil {
		return mapStoreError(err, "failed to update password hash")
	}
	return nil
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := a.getByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := a.Repository.DeleteTx(ctx, tx, record); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
		}
		return nil
	})
}

func prepareUserDefaults(record *User) {
	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

// mapStoreError covers sql.ErrNoRows and the zero rows updated case
func mapStoreError(err error, message string) error {
	if repository.IsRecordNotFound(err) {
		return ErrIdentityNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, message)
}

// both sqlite drivers and postgres report duplicates with these fragments
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
