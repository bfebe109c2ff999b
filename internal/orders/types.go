package orders

import "time"

// Order statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Order origins: how the order entered the system.
const (
	OriginWebGuest = "web_guest"
	OriginWebUser  = "web_user"
	OriginManual   = "manual"
)

// transitions is the explicit allow-table keyed by current status. delivered and
// cancelled are terminal; every non-terminal status may escape to cancelled.
var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ValidStatus reports whether s is one of the five enumerated statuses.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from -> to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrigin reports whether o is a known origin tag.
func ValidOrigin(o string) bool {
	return o == OriginWebGuest || o == OriginWebUser || o == OriginManual
}

// OrderItem is one line of an order. Price and Name are captured from the
// catalog at creation time and never re-derived afterwards.
type OrderItem struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"`
	Name      string  `dynamodbav:"name" json:"name"`
	Price     float64 `dynamodbav:"price" json:"price"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Image     string  `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// DeliveryDetails captures where and to whom the order ships.
type DeliveryDetails struct {
	Name    string `dynamodbav:"name" json:"name"`
	Phone   string `dynamodbav:"phone" json:"phone"`
	Address string `dynamodbav:"address" json:"address"`
	Zone    string `dynamodbav:"zone" json:"zone"`
	Note    string `dynamodbav:"note,omitempty" json:"note,omitempty"`
}

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	OrderID          string          `dynamodbav:"order_id" json:"order_id"` // PK, internal key
	Code             string          `dynamodbav:"code" json:"code"`         // human-facing KS-#### code, immutable
	UserID           string          `dynamodbav:"user_id,omitempty" json:"user_id,omitempty"`
	Items            []OrderItem     `dynamodbav:"items" json:"items"`
	Delivery         DeliveryDetails `dynamodbav:"delivery" json:"delivery"`
	TotalAmount      float64         `dynamodbav:"total_amount" json:"total_amount"`
	ShippingCost     float64         `dynamodbav:"shipping_cost" json:"shipping_cost"`
	Status           string          `dynamodbav:"status" json:"status"`
	PaymentMethod    string          `dynamodbav:"payment_method,omitempty" json:"payment_method,omitempty"`
	Guest            bool            `dynamodbav:"guest" json:"guest"`
	Origin           string          `dynamodbav:"origin" json:"origin"`
	IdempotencyToken string          `dynamodbav:"idempotency_token,omitempty" json:"idempotency_token,omitempty"`
	CreatedAt        time.Time       `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `dynamodbav:"updated_at" json:"updated_at"`
}
