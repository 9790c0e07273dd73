package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryRead_RecoversFromTransientFailure(t *testing.T) {
	calls := 0
	v, err := retryRead(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestRetryRead_DomainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	_, err := retryRead(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, domain.ErrProductNotFound
	})

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryRead_ExhaustedIsUpstreamUnavailable(t *testing.T) {
	calls := 0
	_, err := retryRead(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, readRetries+1, calls)
}

func TestRetryRead_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryRead(ctx, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("cart")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks)
}
