package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidwatch/internal/fetch"
	"bidwatch/internal/filter"
	"bidwatch/internal/model"
	"bidwatch/internal/pipeline"
	"bidwatch/internal/store"
)

// ─── Test doubles ──────────────────────────────────────────────────────────

// failingFetcher always reports a transport error.
type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context) ([]model.Candidate, error) {
	return nil, errors.New("connection refused")
}

// memStore is an in-memory BidStore honouring the InsertIfAbsent contract.
type memStore struct {
	mu     sync.Mutex
	bids   []model.Bid
	nextID int64
	failOn string // external ID that triggers an injected insert error
}

func newMemStore() *memStore { return &memStore{nextID: 1} }

func (m *memStore) InsertIfAbsent(_ context.Context, bid model.Bid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bid.ExternalID == m.failOn {
		return false, errors.New("store unavailable")
	}
	for _, b := range m.bids {
		if b.ExternalID == bid.ExternalID {
			return false, nil
		}
	}
	bid.ID = m.nextID
	m.nextID++
	m.bids = append(m.bids, bid)
	return true, nil
}

func (m *memStore) ListAll(context.Context) ([]model.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Bid, len(m.bids))
	copy(out, m.bids)
	return out, nil
}

func (m *memStore) ToggleFavorite(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bids {
		if m.bids[i].ID == id {
			m.bids[i].IsFavorite = !m.bids[i].IsFavorite
		}
	}
	return nil
}

func testRules() filter.Rules {
	return filter.Rules{
		IncludeKeywords: []string{"인테리어", "실내건축", "리모델링", "환경개선", "의장"},
		ExcludeKeywords: []string{"폐기물", "용역", "전기", "통신", "소방", "구매"},
		MinimumPrice:    20_000_000,
	}
}

// ─── RunOnce ───────────────────────────────────────────────────────────────

func TestRunOnce_FiltersAndStoresSampleBatch(t *testing.T) {
	bids := newMemStore()
	p := pipeline.New(fetch.NewStaticFetcher(), testRules(), bids, nil, nil, nil, nil)

	stats, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stats{Fetched: 3, Eligible: 2, Inserted: 2}, stats)

	stored, err := bids.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "250,000,000", stored[0].Price)
	assert.Equal(t, "1,520,000,000", stored[1].Price)
	assert.Equal(t, model.StatusNew, stored[0].Status)
	assert.False(t, stored[0].IsFavorite)

	// The waste-disposal announcement must have been rejected.
	for _, b := range stored {
		assert.NotEqual(t, "202405-003", b.ExternalID)
	}
}

func TestRunOnce_SecondRunIsIdempotent(t *testing.T) {
	bids := newMemStore()
	p := pipeline.New(fetch.NewStaticFetcher(), testRules(), bids, nil, nil, nil, nil)
	ctx := context.Background()

	first, err := p.RunOnce(ctx)
	require.NoError(t, err)

	second, err := p.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Fetched, second.Fetched)
	assert.Equal(t, first.Eligible, second.Eligible)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, first.Inserted, second.Duplicates)

	stored, err := bids.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, first.Inserted)
}

func TestRunOnce_SeenCacheShortCircuitsRepeats(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	bids := newMemStore()
	cache := store.NewSeenCache(rdb)
	p := pipeline.New(fetch.NewStaticFetcher(), testRules(), bids, cache, rdb, nil, nil)
	ctx := context.Background()

	first, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	// Second run resolves duplicates from the cache, same observable stats.
	second, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Fetched, second.Fetched)
	assert.Equal(t, first.Eligible, second.Eligible)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Duplicates)
}

func TestRunOnce_FetchFailureAbortsRun(t *testing.T) {
	bids := newMemStore()
	p := pipeline.New(failingFetcher{}, testRules(), bids, nil, nil, nil, nil)

	stats, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, pipeline.Stats{}, stats)

	stored, _ := bids.ListAll(context.Background())
	assert.Empty(t, stored, "a failed fetch must leave the store unchanged")
}

func TestRunOnce_MalformedPriceStoredRaw(t *testing.T) {
	batch := []model.Candidate{{
		ExternalID: "202406-010",
		Title:      "청사 인테리어 보수",
		Agency:     "테스트청",
		PriceRaw:   "N/A",
		ClosingAt:  "2024-06-30 10:00",
		DetailLink: "#",
	}}
	bids := newMemStore()
	p := pipeline.New(fetch.NewStaticFetcherWith(batch), testRules(), bids, nil, nil, nil, nil)

	stats, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stats{Fetched: 1, Eligible: 1, Inserted: 1}, stats)

	stored, _ := bids.ListAll(context.Background())
	require.Len(t, stored, 1)
	assert.Equal(t, "N/A", stored[0].Price)
}

func TestRunOnce_StoreFailureAbortsRemainder(t *testing.T) {
	bids := newMemStore()
	bids.failOn = "202405-002"
	p := pipeline.New(fetch.NewStaticFetcher(), testRules(), bids, nil, nil, nil, nil)

	stats, err := p.RunOnce(context.Background())
	require.Error(t, err)

	// The first record was inserted before the failure; partial stats are
	// still reported.
	assert.Equal(t, 1, stats.Inserted)
	stored, _ := bids.ListAll(context.Background())
	assert.Len(t, stored, 1)
}

// ─── Store uniqueness under concurrency ────────────────────────────────────

func TestInsertIfAbsent_ConcurrentSameExternalID(t *testing.T) {
	bids := newMemStore()
	ctx := context.Background()

	const n = 32
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := bids.InsertIfAbsent(ctx, model.Bid{
				ExternalID: "202405-099",
				Title:      "동시성 테스트",
				Status:     model.StatusNew,
			})
			assert.NoError(t, err)
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for inserted := range results {
		if inserted {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent insert may win")

	stored, _ := bids.ListAll(ctx)
	assert.Len(t, stored, 1)
}
