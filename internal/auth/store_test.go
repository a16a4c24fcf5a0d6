package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/vcards/internal/shared"
)

type memoryStore struct {
	mu         sync.Mutex
	identities map[int64]*Identity
	err        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{identities: make(map[int64]*Identity)}
}

func (m *memoryStore) add(t *testing.T, hasher *Hasher, p shared.Principal, secret string) {
	t.Helper()
	digest, err := hasher.Hash(secret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[p.ID] = &Identity{Principal: p, PasswordHash: digest}
}

func (m *memoryStore) setDisabled(id int64, disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[id].Principal.Disabled = disabled
}

func (m *memoryStore) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, id)
}

func (m *memoryStore) FindByIdentity(ctx context.Context, identity string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, record := range m.identities {
		field := record.Principal.Username
		if strings.Contains(identity, "@") {
			field = record.Principal.Email
		}
		if strings.EqualFold(field, identity) {
			copied := *record
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryStore) FindByID(ctx context.Context, id int64) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	record, ok := m.identities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

var errStoreDown = errors.New("connection refused")

func testHasher() *Hasher {
	return NewHasher(bcrypt.MinCost)
}

func alice() shared.Principal {
	return shared.Principal{
		ID:       7,
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Surname:  "Liddell",
		Role:     shared.RoleUser,
	}
}
