package cards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/shared"
)

func epoch() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func alice() shared.Principal {
	return shared.Principal{ID: 7, Username: "alice", Name: "Alice", Surname: "Liddell", Role: shared.RoleUser}
}

type serviceFixture struct {
	service *Service
	repo    *fakeRepo
	clock   *clock.Fake
	hasher  *auth.Hasher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := newFakeRepo()
	clk := clock.NewFake(epoch())
	hasher := auth.NewHasher(bcrypt.MinCost)
	svc := NewService(ServiceConfig{
		Repo:          repo,
		Hasher:        hasher,
		Clock:         clk,
		ValidityYears: 4,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &serviceFixture{service: svc, repo: repo, clock: clk, hasher: hasher}
}

func TestIssueCard(t *testing.T) {
	f := newServiceFixture(t)

	issued, err := f.service.Issue(context.Background(), alice(), PaymentMastercard)
	require.NoError(t, err)

	assert.Equal(t, int64(1), issued.ID)
	assert.Equal(t, "ALICE LIDDELL", issued.CarrierName)
	assert.Equal(t, "2030-03-01", issued.ExpiresOnDate())
	assert.Equal(t, int64(7), issued.CarrierID)
	assert.False(t, issued.Frozen)
	assert.True(t, LuhnValid(issued.Number))
	assert.Len(t, issued.CVV, 3)

	stored := f.repo.cards[issued.ID]
	assert.NotEqual(t, issued.CVV, stored.CVVHash)
	assert.True(t, f.hasher.Verify(issued.CVV, stored.CVVHash))
}

func TestIssueRejectsUnknownNetwork(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.Issue(context.Background(), alice(), "amex")
	require.ErrorIs(t, err, ErrUnknownPaymentSystem)
	assert.Empty(t, f.repo.cards)
}

func TestIssueRetriesNumberCollision(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.collide = issueAttempts - 1

	issued, err := f.service.Issue(context.Background(), alice(), PaymentVisa)
	require.NoError(t, err)
	assert.Equal(t, int64(1), issued.ID)
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.collide = issueAttempts

	_, err := f.service.Issue(context.Background(), alice(), PaymentVisa)
	require.ErrorIs(t, err, errNumberTaken)
}

func TestCarrierName(t *testing.T) {
	assert.Equal(t, "ALICE LIDDELL", CarrierName(shared.Principal{Name: " alice", Surname: "liddell "}))
	assert.Equal(t, "JOSÉ", CarrierName(shared.Principal{Name: "José"}))
}

func TestListAndDeleteScopedToOwner(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	mine, err := f.service.Issue(ctx, alice(), PaymentVisa)
	require.NoError(t, err)
	other, err := f.service.Issue(ctx, shared.Principal{ID: 9, Name: "Bob"}, PaymentMir)
	require.NoError(t, err)

	list, err := f.service.ListMine(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.service.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.ErrorIs(t, f.service.DeleteMine(ctx, 7, other.ID), ErrNotFound)
	require.NoError(t, f.service.DeleteMine(ctx, 7, mine.ID))
	require.NoError(t, f.service.DeleteAny(ctx, other.ID))
	assert.Empty(t, f.repo.cards)
}

func TestUnfreeze(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	frozen := f.repo.put(Card{CarrierID: 7, Frozen: true, ExpiresOn: Day(epoch()).AddDate(0, 0, -1)})

	card, err := f.service.UnfreezeMine(ctx, 7, frozen.ID, time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, card.Frozen)
	assert.Equal(t, "2028-01-31", card.ExpiresOnDate())
	assert.False(t, f.repo.cards[frozen.ID].Frozen)
}

func TestUnfreezeRules(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	frozen := f.repo.put(Card{CarrierID: 7, Frozen: true, ExpiresOn: Day(epoch())})
	active := f.repo.put(Card{CarrierID: 7, ExpiresOn: Day(epoch()).AddDate(1, 0, 0)})
	future := Day(epoch()).AddDate(1, 0, 0)

	_, err := f.service.UnfreezeMine(ctx, 7, frozen.ID, Day(epoch()))
	assert.ErrorIs(t, err, ErrInvalidExpiry, "today is not after today")

	_, err = f.service.UnfreezeMine(ctx, 7, active.ID, future)
	assert.ErrorIs(t, err, ErrNotFrozen)

	_, err = f.service.UnfreezeMine(ctx, 8, frozen.ID, future)
	assert.ErrorIs(t, err, ErrNotFound)

	card, err := f.service.UnfreezeAny(ctx, frozen.ID, future)
	require.NoError(t, err)
	assert.False(t, card.Frozen)
}

func TestServicePropagatesRepositoryErrors(t *testing.T) {
	f := newServiceFixture(t)
	boom := errors.New("db down")
	f.repo.err = boom

	_, err := f.service.Issue(context.Background(), alice(), PaymentVisa)
	assert.ErrorIs(t, err, boom)
	_, err = f.service.ListAll(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestExpiredAt(t *testing.T) {
	today := Day(epoch())
	assert.False(t, Card{ExpiresOn: today}.ExpiredAt(today))
	assert.True(t, Card{ExpiresOn: today.AddDate(0, 0, -1)}.ExpiredAt(today))
}
