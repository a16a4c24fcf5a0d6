package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/vcards/internal/shared"
)

var (
	ErrNotFound      = fmt.Errorf("user %w", shared.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("username or email %w", shared.ErrDuplicate)
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidInput  = errors.New("invalid user data")
	ErrLastAdmin     = errors.New("the last active admin cannot be removed")
)

// User is a stored account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Surname      string
	Patronymic   string
	PhoneNumber  string
	Address      string
	Disabled     bool
	Role         shared.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the request-scoped view of u.
func (u User) Principal() shared.Principal {
	return shared.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Name:        u.Name,
		Surname:     u.Surname,
		Patronymic:  u.Patronymic,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Disabled:    u.Disabled,
		Role:        u.Role,
	}
}

// RegisterInput is a self-service signup.
type RegisterInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
	Name        string
	Surname     string
	Patronymic  string
	Address     string
}

// UpdateInput changes an account. Nil fields are left untouched;
// CurrentPassword must match the stored digest.
type UpdateInput struct {
	CurrentPassword string
	Username        *string
	Password        *string
	Email           *string
	PhoneNumber     *string
	Name            *string
	Surname         *string
	Patronymic      *string
	Address         *string
}

// Patch is the persisted form of an UpdateInput.
type Patch struct {
	Username     *string
	PasswordHash *string
	Email        *string
	PhoneNumber  *string
	Name         *string
	Surname      *string
	Patronymic   *string
	Address      *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.Email == nil && p.PhoneNumber == nil &&
		p.Name == nil && p.Surname == nil && p.Patronymic == nil && p.Address == nil
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}
