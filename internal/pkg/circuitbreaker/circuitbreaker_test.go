package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/circuitbreaker"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
)

var errOutage = apperror.ServiceUnavailable("notification endpoint unreachable")

// newBreaker builds a breaker on a fixed clock so cool-down expiry is
// driven by Advance instead of sleeping.
func newBreaker(maxFailures int, timeout time.Duration) (*circuitbreaker.CircuitBreaker, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:        "webhook",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		Clock:       clk,
	})
	return cb, clk
}

// trip records n transient failures.
func trip(t *testing.T, cb *circuitbreaker.CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error {
			return errOutage
		})
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newBreaker(3, time.Minute)

	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_SuccessKeepsClosed(t *testing.T) {
	cb, _ := newBreaker(3, time.Minute)

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAtFailureThreshold(t *testing.T) {
	cb, _ := newBreaker(3, time.Minute)

	trip(t, cb, 2)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.Equal(t, 2, cb.Failures())

	trip(t, cb, 1)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	// Open breaker rejects without invoking the call.
	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestCircuitBreaker_BusinessErrorsDoNotTrip(t *testing.T) {
	cb, _ := newBreaker(2, time.Minute)
	notFound := apperror.NotFound("user", 123)

	for i := 0; i < 10; i++ {
		err := cb.Execute(context.Background(), func(context.Context) error {
			return notFound
		})
		require.Error(t, err)
	}

	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb, clk := newBreaker(2, time.Minute)

	trip(t, cb, 2)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	clk.Advance(61 * time.Second)

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clk := newBreaker(2, time.Minute)

	trip(t, cb, 2)
	clk.Advance(61 * time.Second)

	trip(t, cb, 1)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	// The cool-down restarts from the probe failure.
	clk.Advance(30 * time.Second)
	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clk := newBreaker(2, time.Minute)

	trip(t, cb, 2)
	clk.Advance(61 * time.Second)

	// First probe is admitted and held open; the second is rejected.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "half-open")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newBreaker(2, time.Minute)

	trip(t, cb, 2)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestExecuteWithResult(t *testing.T) {
	cb, _ := newBreaker(2, time.Minute)

	result, err := circuitbreaker.ExecuteWithResult(context.Background(), cb,
		func(context.Context) (string, error) { return "delivered", nil })

	require.NoError(t, err)
	assert.Equal(t, "delivered", result)
}

func TestExecuteWithResult_OpenReturnsZeroValue(t *testing.T) {
	cb, _ := newBreaker(2, time.Minute)
	trip(t, cb, 2)

	result, err := circuitbreaker.ExecuteWithResult(context.Background(), cb,
		func(context.Context) (int, error) { return 42, nil })

	require.Error(t, err)
	assert.Equal(t, 0, result)
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	type change struct{ from, to circuitbreaker.State }

	var mu sync.Mutex
	var changes []change

	clk := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:        "webhook",
		MaxFailures: 2,
		Timeout:     time.Minute,
		Clock:       clk,
		OnStateChange: func(_ string, from, to circuitbreaker.State) {
			mu.Lock()
			changes = append(changes, change{from, to})
			mu.Unlock()
		},
	})

	trip(t, cb, 2)

	// The callback runs on its own goroutine.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, change{circuitbreaker.StateClosed, circuitbreaker.StateOpen}, changes[0])
}

func TestCircuitBreaker_ConcurrentSuccesses(t *testing.T) {
	cb, _ := newBreaker(100, time.Minute)

	var succeeded int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cb.Execute(context.Background(), func(context.Context) error { return nil }); err == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), succeeded)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newBreaker(3, time.Minute)

	trip(t, cb, 2)
	assert.Equal(t, 2, cb.Failures())

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_WrappedUnknownErrorCounts(t *testing.T) {
	cb, _ := newBreaker(1, time.Minute)

	err := cb.Execute(context.Background(), func(context.Context) error {
		return errors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", circuitbreaker.StateClosed.String())
	assert.Equal(t, "open", circuitbreaker.StateOpen.String())
	assert.Equal(t, "half-open", circuitbreaker.StateHalfOpen.String())
	assert.Equal(t, "unknown", circuitbreaker.State(99).String())
}

func TestDefaultConfig(t *testing.T) {
	config := circuitbreaker.DefaultConfig("webhook")

	assert.Equal(t, "webhook", config.Name)
	assert.Equal(t, 5, config.MaxFailures)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 1, config.MaxHalfOpenRequests)
	assert.Nil(t, config.Clock)
}
