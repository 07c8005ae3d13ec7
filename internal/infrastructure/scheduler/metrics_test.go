package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/infrastructure/cache"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newMeteredPool returns a pool recording on a manual reader
func newMeteredPool(t *testing.T, cfg Config) (*WorkerPool, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	pool, err := NewWorkerPool(cfg, store, nil, WithMeter(provider.Meter(MeterName)))
	require.NoError(t, err)
	return pool, reader
}

// counterValue sums the data points of an int64 sum named name
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestWorkerPool_EnqueueCountersAreExported(t *testing.T) {
	pool, reader := newMeteredPool(t, testConfig())
	pool.Register("reminder", HandlerFunc(func(context.Context, *Job) error { return nil }))
	require.NoError(t, pool.Start(context.Background()))
	defer stopPool(t, pool)

	ctx := context.Background()
	for range 2 {
		_, err := pool.Enqueue(ctx, "reminder", reminderPayload{TaskID: "t"}, "reminder:t:1")
		require.NoError(t, err)
	}
	_, err := pool.Enqueue(ctx, "reminder", reminderPayload{TaskID: "u"}, "reminder:u:1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), counterValue(t, reader, "scheduler_jobs_enqueued_total"))
	assert.Equal(t, int64(1), counterValue(t, reader, "scheduler_jobs_duplicate_total"))
	assert.Eventually(t, func() bool {
		return counterValue(t, reader, "scheduler_jobs_succeeded_total") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerPool_RetryCountersAreExported(t *testing.T) {
	pool, reader := newMeteredPool(t, testConfig())

	var calls atomic.Int32
	pool.Register("broken", HandlerFunc(func(context.Context, *Job) error {
		calls.Add(1)
		return errors.New("smtp unavailable")
	}))
	require.NoError(t, pool.Start(context.Background()))
	defer stopPool(t, pool)

	_, err := pool.Enqueue(context.Background(), "broken", nil, "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return counterValue(t, reader, "scheduler_jobs_gave_up_total") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), counterValue(t, reader, "scheduler_jobs_retried_total"))
	assert.Equal(t, int64(0), counterValue(t, reader, "scheduler_jobs_succeeded_total"))

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.Retried)
	assert.Equal(t, int64(1), stats.GaveUp)
}

func TestWorkerPool_CountersCarryJobType(t *testing.T) {
	pool, reader := newMeteredPool(t, testConfig())
	pool.Register("reminder", HandlerFunc(func(context.Context, *Job) error { return nil }))
	require.NoError(t, pool.Start(context.Background()))
	defer stopPool(t, pool)

	_, err := pool.Enqueue(context.Background(), "reminder", nil, "")
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "scheduler_jobs_enqueued_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, ok := dp.Attributes.Value(attribute.Key("job_type"))
				found = ok && v.AsString() == "reminder"
			}
		}
	}
	assert.True(t, found)
}

func TestNewWorkerPool_DefaultsToGlobalMeter(t *testing.T) {
	pool, err := NewWorkerPool(testConfig(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, pool.metrics)
}
