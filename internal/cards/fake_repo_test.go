package cards

import (
	"context"
	"sync"
	"time"
)

type fakeRepo struct {
	mu        sync.Mutex
	cards     map[int64]*Card
	nextID    int64
	taken     map[string]bool
	collide   int
	err       error
	freezeErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cards: make(map[int64]*Card), taken: make(map[string]bool), nextID: 1}
}

func (f *fakeRepo) Create(ctx context.Context, c Card) (int64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	if f.collide > 0 {
		f.collide--
		return 0, time.Time{}, errNumberTaken
	}
	if f.taken[c.Number] {
		return 0, time.Time{}, errNumberTaken
	}
	c.ID = f.nextID
	c.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.nextID++
	f.taken[c.Number] = true
	f.cards[c.ID] = &c
	return c.ID, c.CreatedAt, nil
}

func (f *fakeRepo) lookup(id, ownerID int64) (*Card, error) {
	c, ok := f.cards[id]
	if !ok || (ownerID != AnyOwner && c.CarrierID != ownerID) {
		return nil, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) Get(ctx context.Context, id, ownerID int64) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, err := f.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	copied := *c
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID int64) ([]Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []Card
	for id := int64(1); id < f.nextID; id++ {
		c, ok := f.cards[id]
		if !ok || (ownerID != AnyOwner && c.CarrierID != ownerID) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id, ownerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, err := f.lookup(id, ownerID); err != nil {
		return err
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeRepo) Modify(ctx context.Context, id, ownerID int64, fn func(*Card) error) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, err := f.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	working := *c
	if err := fn(&working); err != nil {
		return nil, err
	}
	*c = working
	return &working, nil
}

func (f *fakeRepo) FreezeExpired(ctx context.Context, today time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.freezeErr != nil {
		return 0, f.freezeErr
	}
	var n int64
	for _, c := range f.cards {
		if !c.Frozen && c.ExpiresOn.Before(today) {
			c.Frozen = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) put(c Card) *Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	f.nextID++
	f.cards[c.ID] = &c
	return &c
}
