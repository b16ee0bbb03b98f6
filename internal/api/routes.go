package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/auth"
	"github.com/satriahrh/pesan/internal/websocket"
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 200
)

// Dependencies are the services the routes expose
type Dependencies struct {
	Hub     *websocket.Hub
	Catalog *entities.Catalog
	Orders  repositories.OrderRepository
	// Issuer signs kiosk tokens. Nil leaves /ws and the order endpoints open.
	Issuer *auth.Issuer
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "pesan",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/menu", h.getMenu)
	v1.GET("/menu/search", h.searchMenu)

	orders := v1.Group("/orders", h.requireKiosk)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)

	v1.POST("/session/token", h.issueToken)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

func (h *handler) getMenu(c echo.Context) error {
	return c.JSON(http.StatusOK, MenuResponse{Categories: h.deps.Catalog.Categories})
}

func (h *handler) searchMenu(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_query",
			Message: "Query parameter q is required",
		})
	}

	results := h.deps.Catalog.Search(query)
	if results == nil {
		results = []entities.Category{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Categories: results})
}

func (h *handler) listOrders(c echo.Context) error {
	limit := defaultOrderLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxOrderLimit {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be between 1 and " + strconv.Itoa(maxOrderLimit),
			})
		}
		limit = n
	}

	orders, err := h.deps.Orders.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list orders",
		})
	}
	if orders == nil {
		orders = []*entities.Order{}
	}
	return c.JSON(http.StatusOK, OrdersResponse{Orders: orders})
}

func (h *handler) getOrder(c echo.Context) error {
	id := c.Param("id")
	order, err := h.deps.Orders.GetByID(c.Request().Context(), id)
	if errors.Is(err, repositories.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "order_not_found",
			Message: "Order " + id + " does not exist",
		})
	}
	if err != nil {
		h.logger.Error("Failed to get order", zap.String("order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get order",
		})
	}
	return c.JSON(http.StatusOK, order)
}

func (h *handler) issueToken(c echo.Context) error {
	if h.deps.Issuer == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Kiosk authentication is not configured",
		})
	}

	var req KioskTokenRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind kiosk token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.KioskID == "" || req.AccessCode == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Kiosk id and access code are required",
		})
	}

	token, expiresAt, err := h.deps.Issuer.IssueKioskToken(req.KioskID, req.AccessCode)
	if errors.Is(err, auth.ErrInvalidAccessCode) {
		h.logger.Warn("Kiosk authentication failed", zap.String("kiosk_id", req.KioskID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid access code",
		})
	}
	if err != nil {
		h.logger.Error("Failed to generate kiosk token",
			zap.String("kiosk_id", req.KioskID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Kiosk authenticated successfully", zap.String("kiosk_id", req.KioskID))

	return c.JSON(http.StatusOK, KioskTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		KioskID:   req.KioskID,
	})
}

// authenticate resolves the kiosk id of the request. With auth disabled every
// request is accepted with an empty kiosk id.
func (h *handler) authenticate(c echo.Context) (string, *ErrorResponse, int) {
	if h.deps.Issuer == nil {
		return "", nil, 0
	}

	// Browsers cannot set headers on websocket requests, so the query is
	// accepted too.
	token := c.QueryParam("token")
	if authHeader := c.Request().Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token == "" {
		return "", &ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		}, http.StatusUnauthorized
	}

	claims, err := h.deps.Issuer.ValidateToken(token)
	if err != nil {
		h.logger.Warn("Request rejected: invalid token", zap.Error(err))
		return "", &ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		}, http.StatusUnauthorized
	}

	if claims.Role != auth.RoleKiosk {
		h.logger.Warn("Request rejected: invalid role", zap.String("role", claims.Role))
		return "", &ErrorResponse{
			Error:   "invalid_role",
			Message: "Only kiosk tokens are accepted",
		}, http.StatusForbidden
	}

	return claims.KioskID, nil, 0
}

func (h *handler) requireKiosk(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, resp, status := h.authenticate(c); resp != nil {
			return c.JSON(status, resp)
		}
		return next(c)
	}
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (h *handler) websocketWithAuth(c echo.Context) error {
	kioskID, resp, status := h.authenticate(c)
	if resp != nil {
		return c.JSON(status, resp)
	}

	h.logger.Info("WebSocket connection accepted", zap.String("kiosk_id", kioskID))
	return websocket.HandleWebSocket(h.deps.Hub, c, kioskID, h.logger)
}
