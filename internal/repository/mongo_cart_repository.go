package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoCartRepository) GetCart(ctx context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"_id": id.Key()}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddLine stores line in the cart. When the cart already holds the same
// product and weight, that line takes line.Quantity instead of a new line
// being appended. The cart document is created on first use.
func (m *MongoCartRepository) AddLine(ctx context.Context, id domain.CartIdentity, line domain.CartLine) error {
	now := time.Now().UTC()

	filter := bson.M{
		"_id": id.Key(),
		"lines": bson.M{"$elemMatch": bson.M{
			"product_id":      line.ProductID,
			"selected_weight": line.SelectedWeight,
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"lines.$.quantity":   line.Quantity,
			"lines.$.updated_at": now,
			"updated_at":         now,
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update existing line: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	line.AddedAt = now
	line.UpdatedAt = now
	push := bson.M{
		"$push":        bson.M{"lines": line},
		"$set":         bson.M{"updated_at": now, "guest": id.IsGuest()},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err = m.collection.UpdateOne(ctx, bson.M{"_id": id.Key()}, push, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add new line: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) SetLineQuantity(ctx context.Context, id domain.CartIdentity, lineID string, quantity int) error {
	now := time.Now().UTC()

	filter := bson.M{
		"_id":           id.Key(),
		"lines.line_id": lineID,
	}
	update := bson.M{
		"$set": bson.M{
			"lines.$[elem].quantity":   quantity,
			"lines.$[elem].updated_at": now,
			"updated_at":               now,
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.line_id": lineID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

// RemoveLine is idempotent: removing a missing line or from a missing cart is not an error.
func (m *MongoCartRepository) RemoveLine(ctx context.Context, id domain.CartIdentity, lineID string) error {
	update := bson.M{
		"$pull": bson.M{
			"lines": bson.M{"line_id": lineID},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": id.Key()}, update); err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	return nil
}

// RemoveProduct drops every cart line referencing the product.
func (m *MongoCartRepository) RemoveProduct(ctx context.Context, productID string) error {
	filter := bson.M{"lines.product_id": productID}
	update := bson.M{
		"$pull": bson.M{
			"lines": bson.M{"product_id": productID},
		},
	}

	if _, err := m.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove product from carts: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) DeleteCart(ctx context.Context, id domain.CartIdentity) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id.Key()})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoCartRepository) DeleteCartUnchangedSince(ctx context.Context, id domain.CartIdentity, cutoff time.Time) error {
	filter := bson.M{
		"_id":        id.Key(),
		"updated_at": bson.M{"$lte": cutoff},
	}
	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

// CreateIndexes expires guest carts guestTTL after their last change.
// Registered carts are kept until checkout clears them.
func (m *MongoCartRepository) CreateIndexes(ctx context.Context, guestTTL time.Duration) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().
				SetName("guest_cart_ttl").
				SetExpireAfterSeconds(int32(guestTTL.Seconds())).
				SetPartialFilterExpression(bson.M{"guest": true}),
		},
		{
			Keys: bson.D{{Key: "lines.product_id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
