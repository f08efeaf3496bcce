package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("provider down")

// testBreaker returns a breaker whose clock is advanced by the returned func.
func testBreaker(cfg BreakerConfig) (*Breaker, func(time.Duration)) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker("scrapingbee", cfg)
	b.now = func() time.Time { return now }
	return b, func(d time.Duration) { now = now.Add(d) }
}

func failFetch(context.Context) (string, error) { return "", errDown }

func okFetch(context.Context) (string, error) { return "<html></html>", nil }

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker("jina", BreakerConfig{})
	assert.Equal(t, "jina", b.Name())
	assert.Equal(t, 5, b.cfg.Threshold)
	assert.Equal(t, 30*time.Second, b.cfg.Cooldown)
	assert.Equal(t, 1, b.cfg.Probes)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := Guard(ctx, b, failFetch)
		require.ErrorIs(t, err, errDown)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Failures())

	_, err := Guard(ctx, b, failFetch)
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, StateOpen, b.State())

	calls := 0
	_, err = Guard(ctx, b, func(context.Context) (string, error) {
		calls++
		return "", nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Contains(t, err.Error(), "scrapingbee")
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := testBreaker(BreakerConfig{Threshold: 3})
	ctx := context.Background()

	_, _ = Guard(ctx, b, failFetch)
	_, _ = Guard(ctx, b, failFetch)
	_, err := Guard(ctx, b, okFetch)
	require.NoError(t, err)
	assert.Zero(t, b.Failures())

	_, _ = Guard(ctx, b, failFetch)
	_, _ = Guard(ctx, b, failFetch)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name  string
		probe func(context.Context) (string, error)
		want  BreakerState
	}{
		{"successful probe closes", okFetch, StateClosed},
		{"failed probe reopens", failFetch, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, advance := testBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Minute})
			ctx := context.Background()

			_, _ = Guard(ctx, b, failFetch)
			require.Equal(t, StateOpen, b.State())

			advance(30 * time.Second)
			_, err := Guard(ctx, b, okFetch)
			require.ErrorIs(t, err, ErrBreakerOpen)

			advance(30 * time.Second)
			assert.Equal(t, StateHalfOpen, b.State())
			_, _ = Guard(ctx, b, tt.probe)
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreaker_ProbesRequired(t *testing.T) {
	b, advance := testBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Probes: 2})
	ctx := context.Background()

	_, _ = Guard(ctx, b, failFetch)
	advance(time.Second)

	_, _ = Guard(ctx, b, okFetch)
	assert.Equal(t, StateHalfOpen, b.State())
	_, _ = Guard(ctx, b, okFetch)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	b, _ := testBreaker(BreakerConfig{Threshold: 1})

	_, err := Guard(context.Background(), b, func(context.Context) (string, error) {
		return "", context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Failures())
}

func TestBreaker_CustomTrips(t *testing.T) {
	b, _ := testBreaker(BreakerConfig{
		Threshold: 1,
		Trips:     IsTransient,
	})

	_, _ = Guard(context.Background(), b, failFetch)
	assert.Equal(t, StateClosed, b.State(), "permanent errors do not count")

	_, _ = Guard(context.Background(), b, func(context.Context) (string, error) {
		return "", NewTransientError(errDown, 503)
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_OnTransition(t *testing.T) {
	type change struct {
		name     string
		from, to BreakerState
	}
	var got []change
	b, advance := testBreaker(BreakerConfig{
		Threshold: 1,
		Cooldown:  time.Second,
		OnTransition: func(name string, from, to BreakerState) {
			got = append(got, change{name, from, to})
		},
	})
	ctx := context.Background()

	_, _ = Guard(ctx, b, failFetch)
	advance(time.Second)
	_, _ = Guard(ctx, b, okFetch)

	assert.Equal(t, []change{
		{"scrapingbee", StateClosed, StateOpen},
		{"scrapingbee", StateOpen, StateHalfOpen},
		{"scrapingbee", StateHalfOpen, StateClosed},
	}, got)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

func TestBreakers_ForAndStates(t *testing.T) {
	bs := NewBreakers(BreakerConfig{Threshold: 1, Cooldown: time.Hour})

	a := bs.For("scrapingbee")
	assert.Same(t, a, bs.For("scrapingbee"))
	assert.NotSame(t, a, bs.For("local"))

	a.Record(errDown)
	assert.Equal(t, map[string]BreakerState{"scrapingbee": StateOpen, "local": StateClosed}, bs.States())
}

func TestBreakers_ConcurrentFor(t *testing.T) {
	bs := NewBreakers(DefaultBreakerConfig())

	var wg sync.WaitGroup
	got := make([]*Breaker, 20)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = bs.For("firecrawl")
		}()
	}
	wg.Wait()

	for _, b := range got {
		assert.Same(t, got[0], b)
	}
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(2, 10)
	assert.Equal(t, 2, cfg.Threshold)
	assert.Equal(t, 10*time.Second, cfg.Cooldown)
	assert.Equal(t, 1, cfg.Probes)

	def := FromCircuitConfig(0, -1)
	assert.Equal(t, 5, def.Threshold)
	assert.Equal(t, 30*time.Second, def.Cooldown)
}
