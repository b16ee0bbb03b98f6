package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
// Orders are lost on restart; it backs the server when no MongoDB is configured.
type MemoryOrderRepository struct {
	mu        sync.RWMutex
	orders    map[string]*entities.Order            // id -> order
	bySession map[string]map[string]*entities.Order // session_id -> id -> order
}

// NewMemoryOrderRepository creates a new in-memory order repository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:    make(map[string]*entities.Order),
		bySession: make(map[string]map[string]*entities.Order),
	}
}

// Create implements OrderRepository interface
func (m *MemoryOrderRepository) Create(ctx context.Context, order *entities.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}

	// Generate ID if not provided
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	if err := order.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	orderCopy := copyOrder(order)
	m.orders[order.ID] = orderCopy
	if m.bySession[order.SessionID] == nil {
		m.bySession[order.SessionID] = make(map[string]*entities.Order)
	}
	m.bySession[order.SessionID][order.ID] = orderCopy

	return nil
}

// GetByID implements OrderRepository interface
func (m *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	if id == "" {
		return nil, errors.New("order ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, repositories.ErrOrderNotFound
	}

	// Return a copy to prevent external modifications
	return copyOrder(order), nil
}

// List implements OrderRepository interface. Newest orders come first.
func (m *MemoryOrderRepository) List(ctx context.Context, limit int) ([]*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Order, 0, len(m.orders))
	for _, order := range m.orders {
		result = append(result, copyOrder(order))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListBySession returns the orders placed in one session
func (m *MemoryOrderRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := m.bySession[sessionID]
	result := make([]*entities.Order, 0, len(orders))
	for _, order := range orders {
		result = append(result, copyOrder(order))
	}
	return result, nil
}

// UpdateStatus implements OrderRepository interface
func (m *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return repositories.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

// Delete implements OrderRepository interface
func (m *MemoryOrderRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("order ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return repositories.ErrOrderNotFound
	}
	m.remove(order)
	return nil
}

// PurgeBefore implements OrderRepository interface
func (m *MemoryOrderRepository) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for _, order := range m.orders {
		if order.CreatedAt.Before(t) {
			m.remove(order)
			purged++
		}
	}
	return purged, nil
}

// remove drops order from every index. Caller holds the write lock.
func (m *MemoryOrderRepository) remove(order *entities.Order) {
	delete(m.orders, order.ID)
	if sessionOrders := m.bySession[order.SessionID]; sessionOrders != nil {
		delete(sessionOrders, order.ID)
		if len(sessionOrders) == 0 {
			delete(m.bySession, order.SessionID)
		}
	}
}

func copyOrder(order *entities.Order) *entities.Order {
	orderCopy := *order
	orderCopy.Items = make([]entities.CartLineItem, len(order.Items))
	copy(orderCopy.Items, order.Items)
	return &orderCopy
}
