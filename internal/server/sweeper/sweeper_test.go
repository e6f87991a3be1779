package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) DeleteExpired(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(&countingPurger{}, "not a schedule", nil, logging.Discard())
	assert.Error(t, err)
}

func TestSweep_PurgesAndCounts(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Store(ctx, &models.RefreshToken{Token: "dead", AccountID: "a", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, reg.Store(ctx, &models.RefreshToken{Token: "live", AccountID: "a", ExpiresAt: time.Now().Add(time.Hour)}))

	m := metrics.New(prometheus.NewRegistry())
	s, err := New(reg, "@every 1h", m, logging.Discard())
	require.NoError(t, err)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTokensSwept))
}

func TestSweep_Error(t *testing.T) {
	s, err := New(&countingPurger{err: errors.New("boom")}, "@every 1h", nil, logging.Discard())
	require.NoError(t, err)

	_, err = s.Sweep(context.Background())
	assert.EqualError(t, err, "boom")
	s.sweep()
}

func TestRun_FiresOnScheduleAndStops(t *testing.T) {
	p := &countingPurger{}
	s, err := New(p, "@every 1s", nil, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
