package users

import (
	"context"
	"sync"

	"github.com/odyssey-erp/vcards/internal/shared"
)

type fakeRepo struct {
	mu     sync.Mutex
	users  map[int64]*User
	nextID int64
	err    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*User), nextID: 1}
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) Create(ctx context.Context, u User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, ErrDuplicate
		}
	}
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = &u
	return u.ID, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]User, 0, len(f.users))
	for id := int64(1); id < f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, p Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range f.users {
		if otherID == id {
			continue
		}
		if (p.Username != nil && *p.Username == other.Username) || (p.Email != nil && *p.Email == other.Email) {
			return ErrDuplicate
		}
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&u.Username, p.Username)
	apply(&u.PasswordHash, p.PasswordHash)
	apply(&u.Email, p.Email)
	apply(&u.PhoneNumber, p.PhoneNumber)
	apply(&u.Name, p.Name)
	apply(&u.Surname, p.Surname)
	apply(&u.Patronymic, p.Patronymic)
	apply(&u.Address, p.Address)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) ToggleDisabled(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return false, ErrNotFound
	}
	u.Disabled = !u.Disabled
	return u.Disabled, nil
}

func (f *fakeRepo) SetRole(ctx context.Context, id int64, role shared.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeRepo) AdminExists(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.users {
		if u.Role == shared.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CountActiveAdmins(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, u := range f.users {
		if u.Role == shared.RoleAdmin && !u.Disabled {
			n++
		}
	}
	return n, nil
}
