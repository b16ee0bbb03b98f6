package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

// OrderRepository implements repositories.OrderRepository using MongoDB
type OrderRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewOrderRepository creates a new MongoDB order repository
func NewOrderRepository(db *mongo.Database, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		collection: db.Collection("orders"),
		logger:     logger,
	}
}

// EnsureIndexes creates the indexes used by listing and retention
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	r.logger.Info("Order indexes created successfully")
	return nil
}

// Create implements repositories.OrderRepository
func (r *OrderRepository) Create(ctx context.Context, order *entities.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if err := order.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		r.logger.Error("Failed to create order", zap.Error(err), zap.String("order_id", order.ID))
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("session_id", order.SessionID),
		zap.Float64("total", order.Total))
	return nil
}

// GetByID implements repositories.OrderRepository
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	if id == "" {
		return nil, errors.New("order ID cannot be empty")
	}

	var order entities.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// List implements repositories.OrderRepository. Newest orders come first.
func (r *OrderRepository) List(ctx context.Context, limit int) ([]*entities.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*entities.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus implements repositories.OrderRepository
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrOrderNotFound
	}
	return nil
}

// Delete implements repositories.OrderRepository
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return repositories.ErrOrderNotFound
	}
	return nil
}

// PurgeBefore implements repositories.OrderRepository
func (r *OrderRepository) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": t}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge orders: %w", err)
	}
	return result.DeletedCount, nil
}
