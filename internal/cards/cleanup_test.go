package cards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/vcards/internal/jobs"
	"github.com/odyssey-erp/vcards/internal/platform/clock"
)

type purgerStub struct {
	cutoff time.Time
	purged int64
	err    error
}

func (p *purgerStub) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.purged, p.err
}

func TestCleanerFreezesAndPurges(t *testing.T) {
	repo := newFakeRepo()
	today := Day(epoch())
	repo.put(Card{CarrierID: 1, ExpiresOn: today.AddDate(0, 0, -1)})
	repo.put(Card{CarrierID: 1, ExpiresOn: today})
	repo.put(Card{CarrierID: 2, ExpiresOn: today.AddDate(-1, 0, 0), Frozen: true})
	purger := &purgerStub{purged: 4}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)

	cleaner := NewCleaner(repo, purger, 30*24*time.Hour, clock.NewFake(epoch()), metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	result, err := cleaner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CleanupResult{FrozenCards: 1, PurgedTransactions: 4}, result)
	assert.True(t, repo.cards[1].Frozen)
	assert.False(t, repo.cards[2].Frozen)
	assert.Equal(t, epoch().Add(-30*24*time.Hour), purger.cutoff)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["vcards_jobs_total"])
	assert.True(t, names["vcards_job_affected_rows_total"])
	failures, err := testutil.GatherAndCount(registry, "vcards_jobs_failures_total")
	require.NoError(t, err)
	assert.Zero(t, failures)
}

func TestCleanerReportsFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.freezeErr = errors.New("db down")
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)

	cleaner := NewCleaner(repo, &purgerStub{}, time.Hour, clock.NewFake(epoch()), metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := cleaner.Run(context.Background())
	require.Error(t, err)
	failures, err := testutil.GatherAndCount(registry, "vcards_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestCleanerWithoutPurger(t *testing.T) {
	repo := newFakeRepo()
	repo.put(Card{ExpiresOn: Day(epoch()).AddDate(0, 0, -3)})

	result, err := NewCleaner(repo, nil, 0, clock.NewFake(epoch()), nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.FrozenCards)
	assert.Zero(t, result.PurgedTransactions)
}
