package validation

// OrderItemRequest is a single requested line item. Price is accepted for
// backwards compatibility with older storefront clients but never trusted; the
// catalog price is resolved server-side.
type OrderItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,min=1"` // must be >= 1
	Price     float64 `json:"price,omitempty"`
}

// DeliveryRequest carries the recipient details. Everything except the note is required.
type DeliveryRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	Zone    string `json:"zone" validate:"required"`
	Note    string `json:"note,omitempty"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,dive"` // at least one item
	Delivery         DeliveryRequest    `json:"delivery" validate:"required"`
	PaymentMethod    string             `json:"payment_method,omitempty"`
	IdempotencyToken string             `json:"idempotency_token,omitempty"`
	ShippingCost     *float64           `json:"shipping_cost,omitempty" validate:"omitempty,gte=0"`
	TotalAmount      *float64           `json:"total_amount,omitempty" validate:"omitempty,gte=0"` // advisory; recomputed server-side
}

// UpdateStatusRequest is the payload for a single status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BatchStatusRequest is the payload for the admin "mark selected" action.
type BatchStatusRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,dive,required"`
	Status   string   `json:"status" validate:"required"`
}
