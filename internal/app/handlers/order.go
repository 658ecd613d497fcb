package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/elite-cart/internal/domain/models"
	"github.com/linemk/elite-cart/internal/jwt/jwtmiddleware"
	"github.com/linemk/elite-cart/internal/service"
)

// CreateOrderRequest is the order payload: a non-empty list of items
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderResponse reports the placed order
type CreateOrderResponse struct {
	Message     string  `json:"message"`
	OrderID     int64   `json:"order_id"`
	Reference   string  `json:"reference"`
	TotalAmount float64 `json:"total_amount"`
	ItemsCount  int     `json:"items_count"`
}

// OrderListResponse wraps a user's order history
type OrderListResponse struct {
	Orders []*models.Order `json:"orders"`
	Count  int             `json:"count"`
}

// CreateOrderHandler handles POST /api/orders (token required)
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		items := make([]service.OrderItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, service.OrderItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		result, err := orderService.PlaceOrder(r.Context(), userID, items)
		if err != nil {
			logger.Warn("failed to place order", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, CreateOrderResponse{
			Message:     "Order created successfully",
			OrderID:     result.OrderID,
			Reference:   result.Reference,
			TotalAmount: result.TotalAmount,
			ItemsCount:  result.ItemsCount,
		})
	}
}

// GetUserOrdersHandler handles GET /api/orders/user/{userId} (token
// required, self only)
func GetUserOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetUserOrdersHandler"
		logger := log.With(slog.String("op", op))

		requesterID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid user id")
			return
		}

		orders, err := orderService.ListUserOrders(r.Context(), requesterID, targetID)
		if err != nil {
			logger.Warn("failed to list orders", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		writeJSON(w, logger, http.StatusOK, OrderListResponse{
			Orders: orders,
			Count:  len(orders),
		})
	}
}

// GetOrderHandler handles GET /api/orders/{id} (token required, owner only)
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		requesterID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		order, err := orderService.GetOrder(r.Context(), requesterID, orderID)
		if err != nil {
			logger.Warn("failed to get order", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, order)
	}
}
