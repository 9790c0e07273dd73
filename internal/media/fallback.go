package media

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BucketAdmin is implemented by backends that manage a bucket.
type BucketAdmin interface {
	BucketName() string
	EnsureBucket(ctx context.Context) (bool, error)
	Buckets(ctx context.Context) ([]Bucket, error)
}

// FallbackStore writes to the primary backend and falls back to the local
// directory when the primary fails or its breaker is open.
type FallbackStore struct {
	primary Backend
	local   *LocalStore
	cb      *gobreaker.CircuitBreaker[Stored]
	log     *zap.Logger
}

// NewFallbackStore wraps primary in a circuit breaker. primary may be nil, in
// which case every image goes to local.
func NewFallbackStore(primary Backend, local *LocalStore, log *zap.Logger) *FallbackStore {
	s := &FallbackStore{primary: primary, local: local, log: log}
	s.cb = gobreaker.NewCircuitBreaker[Stored](gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

func (s *FallbackStore) Put(ctx context.Context, key, contentType string, data []byte) (Stored, error) {
	if s.primary != nil {
		stored, err := s.cb.Execute(func() (Stored, error) {
			return s.primary.Put(ctx, key, contentType, data)
		})
		if err == nil {
			return stored, nil
		}
		s.log.Warn("primary image store failed, using local storage",
			zap.String("key", key),
			zap.Error(err))
	}
	return s.local.Put(ctx, key, contentType, data)
}

// DeleteURL removes the object behind a URL issued by either backend. URLs
// neither backend recognises are reported as ErrNotOwned.
func (s *FallbackStore) DeleteURL(ctx context.Context, url string) error {
	if s.primary != nil {
		if key, ok := s.primary.KeyFor(url); ok {
			_, err := s.cb.Execute(func() (Stored, error) {
				return Stored{}, s.primary.Delete(ctx, key)
			})
			return err
		}
	}
	if key, ok := s.local.KeyFor(url); ok {
		return s.local.Delete(ctx, key)
	}
	return ErrNotOwned
}

func (s *FallbackStore) Admin() (BucketAdmin, error) {
	admin, ok := s.primary.(BucketAdmin)
	if !ok {
		return nil, ErrNoObjectStore
	}
	return admin, nil
}

// State reports the breaker state for the storage info endpoint.
func (s *FallbackStore) State() string {
	if s.primary == nil {
		return "disabled"
	}
	return s.cb.State().String()
}
