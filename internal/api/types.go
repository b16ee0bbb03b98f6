package api

import (
	"time"

	"github.com/satriahrh/pesan/domain/entities"
)

// KioskTokenRequest represents the request payload for kiosk authentication
type KioskTokenRequest struct {
	KioskID    string `json:"kiosk_id"`
	AccessCode string `json:"access_code"`
}

// KioskTokenResponse represents the response payload for kiosk authentication
type KioskTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	KioskID   string    `json:"kiosk_id"`
}

// MenuResponse lists the catalog
type MenuResponse struct {
	Categories []entities.Category `json:"categories"`
}

// SearchResponse lists the categories matching a query
type SearchResponse struct {
	Query      string              `json:"query"`
	Categories []entities.Category `json:"categories"`
}

// OrdersResponse lists stored orders, newest first
type OrdersResponse struct {
	Orders []*entities.Order `json:"orders"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
