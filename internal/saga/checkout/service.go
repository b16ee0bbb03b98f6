package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/saga"
)

// Service places orders using the order placement saga
type Service struct {
	sagaManager *saga.Manager
	logger      *zap.Logger
}

// NewService registers the order placement saga on sagaManager
func NewService(sagaManager *saga.Manager, orders repositories.OrderRepository, logger *zap.Logger) *Service {
	sagaManager.RegisterDefinition(NewOrderPlacementDefinition(orders, logger))
	return &Service{
		sagaManager: sagaManager,
		logger:      logger,
	}
}

// PlaceOrder snapshots items into an order for sessionID and runs the saga.
// The returned order is confirmed.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, items []entities.CartLineItem) (*entities.Order, error) {
	order := entities.NewOrder(sessionID, items)

	instance, err := s.sagaManager.Run(ctx, DefinitionID, saga.SagaData{DataKeyOrder: order})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("session_id", sessionID),
		zap.String("saga_id", string(instance.ID)),
		zap.Float64("total", order.Total))
	return order, nil
}

// ForSession binds the service to one ordering session
func (s *Service) ForSession(sessionID string) *SessionPlacer {
	return &SessionPlacer{service: s, sessionID: sessionID}
}

// SessionPlacer places orders on behalf of a single session
type SessionPlacer struct {
	service   *Service
	sessionID string
}

// PlaceOrder records items as an order of the bound session
func (p *SessionPlacer) PlaceOrder(ctx context.Context, items []entities.CartLineItem) (*entities.Order, error) {
	return p.service.PlaceOrder(ctx, p.sessionID, items)
}
