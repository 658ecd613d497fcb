package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/elite-cart/internal/domain/models"
	"github.com/linemk/elite-cart/internal/storage"
)

// OrderItemInput is one requested position of a new order.
type OrderItemInput struct {
	ProductID int64
	Quantity  int
}

// OrderResult is what the caller gets back after a successful placement.
type OrderResult struct {
	OrderID     int64
	Reference   string
	TotalAmount float64
	ItemsCount  int
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, items []OrderItemInput) (*OrderResult, error)
	GetOrder(ctx context.Context, requesterID, orderID int64) (*models.Order, error)
	ListUserOrders(ctx context.Context, requesterID, targetUserID int64) ([]*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, productRepo storage.ProductStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// PlaceOrder validates the requested items against a locked snapshot,
// captures unit prices, persists the order with its line items and
// decrements stock, all inside one transaction. Either every side effect
// lands or none does.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, items []OrderItemInput) (*OrderResult, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting order transaction", slog.Int("items", len(items)))

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
	}
	for i, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return nil, fmt.Errorf("%s: %w", op, &InvalidOrderItemError{Index: i})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Lock every product row up front: the snapshot the validation and the
	// price capture see stays valid until commit.
	var total float64
	orderItems := make([]*models.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("failed to get product", slog.Int64("productID", item.ProductID), slog.Any("error", err))
			if errors.Is(err, storage.ErrProductNotFound) {
				return nil, fmt.Errorf("%s: %w", op, &ProductNotFoundError{ProductID: item.ProductID})
			}
			return nil, fmt.Errorf("%s: product %d: %w", op, item.ProductID, err)
		}

		if product.Stock < item.Quantity {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("insufficient stock",
				slog.Int64("productID", item.ProductID),
				slog.Int("stock", product.Stock),
				slog.Int("requested", item.Quantity))
			return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{ProductID: item.ProductID})
		}

		total += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, &models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price, // snapshot of the price at order time
		})
	}

	reference := uuid.NewString()
	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, &models.Order{
		Reference:   reference,
		UserID:      userID,
		TotalAmount: total,
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	for _, item := range orderItems {
		item.OrderID = orderID
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}

		// conditional decrement: even with the row lock held this must not
		// drive stock below zero
		if err := s.productRepo.DecrementStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to decrement stock", slog.Int64("productID", item.ProductID), slog.Any("error", err))
			if errors.Is(err, storage.ErrInsufficientStock) {
				return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{ProductID: item.ProductID})
			}
			return nil, fmt.Errorf("%s: product %d: %w", op, item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order placed successfully",
		slog.Int64("orderID", orderID),
		slog.Float64("total", total))

	return &OrderResult{
		OrderID:     orderID,
		Reference:   reference,
		TotalAmount: total,
		ItemsCount:  len(orderItems),
	}, nil
}

// GetOrder returns the order with its items. A requester who is not the
// owner gets ErrForbidden even though the order exists.
func (s *orderService) GetOrder(ctx context.Context, requesterID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("requesterID", requesterID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Warn("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.UserID != requesterID {
		logger.Warn("order belongs to another user", slog.Int64("ownerID", order.UserID))
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	order.Items = items

	return order, nil
}

// ListUserOrders returns the target user's orders newest-first with nested
// items. Users may list only their own orders.
func (s *orderService) ListUserOrders(ctx context.Context, requesterID, targetUserID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListUserOrders"
	logger := s.log.With(slog.String("op", op), slog.Int64("requesterID", requesterID), slog.Int64("targetUserID", targetUserID))

	if requesterID != targetUserID {
		logger.Warn("attempt to list orders of another user")
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, targetUserID)
	if err != nil {
		logger.Error("failed to get orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}

	for _, order := range orders {
		items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
		if err != nil {
			logger.Error("failed to get order items", slog.Int64("orderID", order.ID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
		}
		order.Items = items
	}

	return orders, nil
}
