package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

func newTestTracker() *Tracker {
	l := ledger.New(repository.NewMemoryTableStore(), ledger.Options{CacheTTL: time.Minute})
	return NewTracker(l.Discoveries())
}

func TestLogDiscovery_AssignsChronologicalIndexes(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	idx, created, err := tr.LogDiscovery(ctx, model.ItemKey{Category: "Students", Name: "Aria"}, "u1", "Ari")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, idx)

	idx, created, err = tr.LogDiscovery(ctx, model.ItemKey{Category: "Teachers", Name: "Mentor"}, "u2", "Ben")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, idx)

	idx, created, err = tr.LogDiscovery(ctx, model.ItemKey{Category: "Students", Name: "Aria"}, "u2", "Ben")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, idx)

	list, err := tr.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].DiscovererID)

	n, err := tr.CountBy(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLogDiscovery_ConcurrentFirstDiscoverersShareOneRecord(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()
	key := model.ItemKey{Category: "Legends", Name: "Founder"}

	const callers = 16
	indexes := make([]int, callers)
	createdCount := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, created, err := tr.LogDiscovery(ctx, key, "user", "User")
			assert.NoError(t, err)
			indexes[i] = idx
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		assert.Equal(t, 1, indexes[i])
		if createdCount[i] {
			created++
		}
	}
	assert.Equal(t, 1, created)

	all, err := tr.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
