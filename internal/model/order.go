package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each non-terminal status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses an admin may pick for an order in status s.
func (s OrderStatus) NextStatuses() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentPix        PaymentMethod = "pix"
	PaymentCreditCard PaymentMethod = "credit_card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentPix || m == PaymentCreditCard
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// GrandTotal is the amount charged: items plus shipping.
func (o Order) GrandTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.ShippingCost)
}

// OrderItem represents a line item in an order. Name and price are copied at
// purchase time and never follow later product edits.
type OrderItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"orderId"`
	ProductID       *uuid.UUID      `json:"productId,omitempty"`
	ProductName     string          `json:"productName"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
	Quantity        int             `json:"quantity"`
	SelectedSize    string          `json:"selectedSize"`
	SelectedColor   string          `json:"selectedColor"`
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems totals the subtotals of items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CheckoutRequest represents the request payload for placing an order from the session cart.
type CheckoutRequest struct {
	Address       Address       `json:"address"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// StatusUpdateRequest is the admin payload for moving an order to another status.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	Items        []OrderItem     `json:"items"`
	NextStatuses []OrderStatus   `json:"nextStatuses"`
}

// NewOrderResponse assembles an order with its items.
func NewOrderResponse(order Order, items []OrderItem) *OrderResponse {
	if items == nil {
		items = []OrderItem{}
	}
	return &OrderResponse{
		Order:        order,
		GrandTotal:   order.GrandTotal(),
		Items:        items,
		NextStatuses: order.Status.NextStatuses(),
	}
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
	Limit  int
	Offset int
}
