package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// DefaultAdminPassword is the placeholder bootstrap password. Deployments
// must override it.
const DefaultAdminPassword = "adminqwerty"

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u User) (int64, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error
	ToggleDisabled(ctx context.Context, id int64) (bool, error)
	SetRole(ctx context.Context, id int64, role shared.Role) error
	AdminExists(ctx context.Context) (bool, error)
	CountActiveAdmins(ctx context.Context) (int, error)
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	hasher *auth.Hasher
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher *auth.Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, logger: logger}
}

// Register creates a user-role account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	u := User{
		Username:    NormalizeUsername(in.Username),
		Email:       NormalizeEmail(in.Email),
		Name:        strings.TrimSpace(in.Name),
		Surname:     strings.TrimSpace(in.Surname),
		Patronymic:  strings.TrimSpace(in.Patronymic),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Address:     strings.TrimSpace(in.Address),
		Role:        shared.RoleUser,
	}
	if !ValidUsername(u.Username) || u.Email == "" || u.Name == "" || u.Surname == "" {
		return nil, ErrInvalidInput
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.hashError(err)
	}
	u.PasswordHash = digest
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	s.logger.Info("user registered", slog.Int64("user_id", id), slog.String("username", u.Username))
	return &u, nil
}

// Get returns user id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateAccount changes the caller's own account after re-checking the
// current password.
func (s *Service) UpdateAccount(ctx context.Context, id int64, in UpdateInput) (*User, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(in.CurrentPassword, current.PasswordHash) {
		return nil, ErrWrongPassword
	}

	var p Patch
	if in.Username != nil {
		v := NormalizeUsername(*in.Username)
		if !ValidUsername(v) {
			return nil, ErrInvalidInput
		}
		p.Username = &v
	}
	if in.Email != nil {
		v := NormalizeEmail(*in.Email)
		if v == "" {
			return nil, ErrInvalidInput
		}
		p.Email = &v
	}
	if in.Password != nil {
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, s.hashError(err)
		}
		p.PasswordHash = &digest
	}
	p.PhoneNumber = trimmed(in.PhoneNumber)
	p.Name = trimmed(in.Name)
	p.Surname = trimmed(in.Surname)
	p.Patronymic = trimmed(in.Patronymic)
	p.Address = trimmed(in.Address)

	if err := s.repo.Update(ctx, id, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// DeleteUser removes user id. The last active admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.keepAnAdmin(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// ToggleDisabled flips whether user id may authenticate. The last active
// admin cannot be disabled.
func (s *Service) ToggleDisabled(ctx context.Context, id int64) (bool, error) {
	if err := s.keepAnAdmin(ctx, id); err != nil {
		return false, err
	}
	disabled, err := s.repo.ToggleDisabled(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("user activity changed", slog.Int64("user_id", id), slog.Bool("disabled", disabled))
	return disabled, nil
}

// SetRole assigns role to user id.
func (s *Service) SetRole(ctx context.Context, id int64, role shared.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrUnknownRole, role)
	}
	if role != shared.RoleAdmin {
		if err := s.keepAnAdmin(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return err
	}
	s.logger.Info("user role changed", slog.Int64("user_id", id), slog.String("role", string(role)))
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless an admin exists.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	exists, err := s.repo.AdminExists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if seed.Password == "" {
		seed.Password = DefaultAdminPassword
	}
	if seed.Password == DefaultAdminPassword {
		s.logger.Warn("bootstrap admin uses the placeholder password; set ADMIN_PASSWORD")
	}
	digest, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return false, s.hashError(err)
	}
	u := User{
		Username:     NormalizeUsername(seed.Username),
		Email:        NormalizeEmail(seed.Email),
		PasswordHash: digest,
		Name:         "Admin",
		Surname:      "Admin",
		Role:         shared.RoleAdmin,
	}
	if !ValidUsername(u.Username) {
		return false, fmt.Errorf("users: bootstrap admin username %q: %w", seed.Username, ErrInvalidInput)
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return false, fmt.Errorf("users: bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", slog.Int64("user_id", id), slog.String("username", u.Username))
	return true, nil
}

// keepAnAdmin fails with ErrLastAdmin when user id is the only enabled
// admin. Concurrent removals of two admins are not serialised.
func (s *Service) keepAnAdmin(ctx context.Context, id int64) error {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if target.Role != shared.RoleAdmin || target.Disabled {
		return nil
	}
	n, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) hashError(err error) error {
	if errors.Is(err, auth.ErrSecretTooLong) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
