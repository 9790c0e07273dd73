package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	c "github.com/freshveggie/veggie-api/internal/cache"
	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/publisher"
	r "github.com/freshveggie/veggie-api/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartRemover is the part of the cart store the poller needs.
type CartRemover interface {
	DeleteCartUnchangedSince(ctx context.Context, id domain.CartIdentity, cutoff time.Time) error
}

// Poller consumes order events and drops the cart an order was placed from.
// Checkout already clears the cart inline; this catches the cases where that
// clear failed. A cart changed after the order was placed belongs to the next
// order and is left alone, so redelivered events are harmless.
type Poller struct {
	repo   CartRemover
	reader *kafka.Reader
	cache  c.CartCache
	log    *zap.Logger
}

func NewPoller(repo CartRemover, cache c.CartCache, topic string, log *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "veggie-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo: repo, reader: reader, cache: cache, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn("read order event failed", zap.Error(err))
			}
			continue
		}
		p.handle(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("close kafka reader failed", zap.Error(err))
	}
}

// handle reports whether a cart was cleared for the message.
func (p *Poller) handle(ctx context.Context, m kafka.Message) bool {
	if eventType(m) != r.EventOrderPlaced {
		return false
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.Warn("malformed order_placed event", zap.ByteString("key", m.Key), zap.Error(err))
		return false
	}
	id, ok := domain.ParseCartIdentity(event.CartID, "")
	if !ok || event.PlacedAt.IsZero() {
		return false
	}

	if err := p.repo.DeleteCartUnchangedSince(ctx, id, event.PlacedAt); err != nil && !errors.Is(err, r.ErrCartNotFound) {
		p.log.Error("delete cart failed",
			zap.String("order_number", event.OrderNumber),
			zap.String("cart_id", id.Key()),
			zap.Error(err))
	}
	if err := p.cache.Delete(ctx, id); err != nil {
		p.log.Warn("delete cached cart failed", zap.String("cart_id", id.Key()), zap.Error(err))
	}
	return true
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == publisher.EventTypeHeader {
			return string(h.Value)
		}
	}
	return ""
}
