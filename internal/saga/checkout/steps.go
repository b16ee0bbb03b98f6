// Package checkout places orders through the saga manager: an order is
// validated, persisted as pending and then confirmed, and a persisted order
// is removed again if confirmation fails.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/saga"
)

// DefinitionID names the order placement saga
const DefinitionID = "order_placement"

// Data keys for the order placement saga
const (
	DataKeyOrder     = "order"
	DataKeyPersisted = "persisted"
)

// OrderPlacementDefinition defines the order placement saga
type OrderPlacementDefinition struct {
	orders  repositories.OrderRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewOrderPlacementDefinition creates the saga definition
func NewOrderPlacementDefinition(orders repositories.OrderRepository, logger *zap.Logger) *OrderPlacementDefinition {
	return &OrderPlacementDefinition{
		orders:  orders,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

func (d *OrderPlacementDefinition) ID() string {
	return DefinitionID
}

func (d *OrderPlacementDefinition) Timeout() time.Duration {
	return d.timeout
}

func (d *OrderPlacementDefinition) Steps() []saga.Step {
	return []saga.Step{
		&ValidateOrderStep{},
		&PersistOrderStep{orders: d.orders, logger: d.logger},
		&ConfirmOrderStep{orders: d.orders, logger: d.logger},
	}
}

func orderFrom(data saga.SagaData) (*entities.Order, error) {
	order, ok := data[DataKeyOrder].(*entities.Order)
	if !ok || order == nil {
		return nil, errors.New("missing or invalid order")
	}
	return order, nil
}

// ValidateOrderStep rejects malformed orders before anything is written
type ValidateOrderStep struct{}

func (s *ValidateOrderStep) ID() saga.StepID {
	return "validate_order"
}

func (s *ValidateOrderStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	order, err := orderFrom(data)
	if err != nil {
		return saga.StepResult{Error: err}
	}
	if err := order.Validate(); err != nil {
		return saga.StepResult{Error: fmt.Errorf("invalid order: %w", err)}
	}
	return saga.StepResult{Success: true}
}

func (s *ValidateOrderStep) Compensate(ctx context.Context, data saga.SagaData) error {
	return nil
}

// PersistOrderStep stores the order as pending
type PersistOrderStep struct {
	orders repositories.OrderRepository
	logger *zap.Logger
}

func (s *PersistOrderStep) ID() saga.StepID {
	return "persist_order"
}

func (s *PersistOrderStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	order, err := orderFrom(data)
	if err != nil {
		return saga.StepResult{Error: err}
	}

	order.Status = entities.OrderStatusPending
	if err := s.orders.Create(ctx, order); err != nil {
		return saga.StepResult{Error: fmt.Errorf("failed to persist order: %w", err)}
	}
	data[DataKeyPersisted] = true

	s.logger.Info("Order persisted", zap.String("order_id", order.ID))
	return saga.StepResult{Success: true, Data: order.ID}
}

func (s *PersistOrderStep) Compensate(ctx context.Context, data saga.SagaData) error {
	if persisted, _ := data[DataKeyPersisted].(bool); !persisted {
		return nil
	}
	order, err := orderFrom(data)
	if err != nil {
		return err
	}

	if err := s.orders.Delete(ctx, order.ID); err != nil && !errors.Is(err, repositories.ErrOrderNotFound) {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	data[DataKeyPersisted] = false
	s.logger.Info("Order removed", zap.String("order_id", order.ID))
	return nil
}

// ConfirmOrderStep marks a persisted order confirmed
type ConfirmOrderStep struct {
	orders repositories.OrderRepository
	logger *zap.Logger
}

func (s *ConfirmOrderStep) ID() saga.StepID {
	return "confirm_order"
}

func (s *ConfirmOrderStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	order, err := orderFrom(data)
	if err != nil {
		return saga.StepResult{Error: err}
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, entities.OrderStatusConfirmed); err != nil {
		return saga.StepResult{Error: fmt.Errorf("failed to confirm order: %w", err)}
	}
	order.Status = entities.OrderStatusConfirmed
	return saga.StepResult{Success: true, Data: order.Status}
}

func (s *ConfirmOrderStep) Compensate(ctx context.Context, data saga.SagaData) error {
	return nil
}
