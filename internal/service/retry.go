package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/repository"
)

const readRetries = 3

// retryRead runs a read against a store, retrying transient failures with
// exponential backoff. Domain errors are returned on the first attempt.
// Exhausted retries surface as ErrUpstreamUnavailable.
func retryRead[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 2 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(eb, readRetries), ctx)

	v, err := backoff.RetryWithData(func() (T, error) {
		v, err := op(ctx)
		if err != nil && isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b)
	if err != nil && !isPermanent(err) {
		return v, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return v, err
}

func isPermanent(err error) bool {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr),
		domain.IsNotFound(err),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
