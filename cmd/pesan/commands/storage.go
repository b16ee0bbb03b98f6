package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/adapters"
	"github.com/satriahrh/pesan/adapters/mongo"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/config"
)

// openOrders returns the MongoDB order store when MONGODB_URI is set and an
// in-memory one otherwise. The returned func releases it.
func openOrders(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.OrderRepository, func(), error) {
	if cfg.MongoURI == "" {
		logger.Info("MONGODB_URI not set, orders are kept in memory")
		return adapters.NewMemoryOrderRepository(), func() {}, nil
	}

	client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return nil, nil, err
	}

	orders := mongo.NewOrderRepository(client.Database, logger)
	if err := orders.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, nil, fmt.Errorf("failed to create order indexes: %w", err)
	}

	return orders, func() { _ = client.Close(context.Background()) }, nil
}
