package models

import "time"

// Order represents a placed order. Orders are append-only: once created
// they are never updated or deleted.
type Order struct {
	ID          int64        `json:"order_id"`
	Reference   string       `json:"reference"`
	UserID      int64        `json:"user_id"`
	TotalAmount float64      `json:"total_amount"`
	CreatedAt   time.Time    `json:"created_at"`
	Items       []*OrderItem `json:"items,omitempty"`
}

// OrderItem is a single line of an order. Price is the unit price of the
// product captured at order time and does not follow later price changes.
type OrderItem struct {
	ID        int64   `json:"order_item_id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
