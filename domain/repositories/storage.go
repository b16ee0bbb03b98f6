package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/satriahrh/pesan/domain/entities"
)

// ErrOrderNotFound is returned when an order id is unknown
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines data access methods for orders
type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order) error
	GetByID(ctx context.Context, id string) (*entities.Order, error)
	List(ctx context.Context, limit int) ([]*entities.Order, error)
	UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) error
	Delete(ctx context.Context, id string) error
	// PurgeBefore deletes orders created before t and returns how many were removed
	PurgeBefore(ctx context.Context, t time.Time) (int64, error)
}

// CatalogSource loads the menu
type CatalogSource interface {
	Load(ctx context.Context) (*entities.Catalog, error)
}

// CredentialStore persists the assistant access credential
type CredentialStore interface {
	Load() (string, error)
	Save(apiKey string) error
}
