package forecast_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// mockSource is a test source that returns configurable grids.
type mockSource struct {
	mu         sync.Mutex
	err        error
	fetchCount atomic.Int32
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) FetchGrid(_ context.Context, leadTime int) (*forecast.Grid, error) {
	m.fetchCount.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return threeByThree(leadTime), nil
}

func (m *mockSource) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newTestService(source forecast.Source, ttl, stale time.Duration) *forecast.Service {
	return forecast.NewService(forecast.ServiceConfig{
		Source:          source,
		Logger:          zerolog.New(io.Discard),
		CacheTTL:        ttl,
		StaleIfErrorTTL: stale,
	})
}

func TestService_Grid_Caches(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(source, 5*time.Minute, 0)
	ctx := context.Background()

	g1, err := svc.Grid(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, g1.LeadTime)
	assert.Equal(t, int32(1), source.fetchCount.Load())

	g2, err := svc.Grid(ctx, 3)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, int32(1), source.fetchCount.Load())

	_, err = svc.Grid(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.fetchCount.Load())
}

func TestService_Grid_CacheExpiry(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(source, 50*time.Millisecond, 0)
	ctx := context.Background()

	_, err := svc.Grid(ctx, 0)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = svc.Grid(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.fetchCount.Load())
}

func TestService_Grid_StaleIfError(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(source, 50*time.Millisecond, time.Hour)
	ctx := context.Background()

	first, err := svc.Grid(ctx, 0)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	source.setErr(errors.New("disk gone"))

	stale, err := svc.Grid(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, first, stale)
}

func TestService_Grid_SourceError(t *testing.T) {
	source := &mockSource{err: errors.New("disk gone")}
	svc := newTestService(source, time.Minute, time.Hour)

	_, err := svc.Grid(context.Background(), 0)
	assert.ErrorIs(t, err, forecast.ErrSourceUnavailable)
}

func TestService_Table(t *testing.T) {
	svc := newTestService(&mockSource{}, time.Minute, 0)
	box := &forecast.BoundingBox{North: 0.5, South: -0.5, West: -0.5, East: 0.5}

	table, err := svc.Table(context.Background(), []int{2, 0, 1}, box)
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, []int{0, 1, 2}, table.LeadTimes())

	// Tables never share row storage.
	table[0].Value = -1
	again, err := svc.Table(context.Background(), []int{0}, box)
	require.NoError(t, err)
	assert.Equal(t, 5.0, again[0].Value)
}

func TestService_WarmAndStatus(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(source, time.Minute, 0)

	assert.False(t, svc.CacheStatus().HasData())

	require.NoError(t, svc.Warm(context.Background(), []int{0, 1, 2}))
	status := svc.CacheStatus()
	assert.True(t, status.HasData())
	assert.ElementsMatch(t, []int{0, 1, 2}, status.LeadTimes)
	assert.Empty(t, status.Expired)
	assert.Equal(t, "mock", status.Source)

	svc.InvalidateCache()
	assert.False(t, svc.CacheStatus().HasData())
}

func TestService_Grid_Concurrent(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(source, time.Minute, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Grid(context.Background(), 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.fetchCount.Load())
}
