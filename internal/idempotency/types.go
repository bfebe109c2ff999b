package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the idempotency DynamoDB table. It maps a
// client-supplied token to the order it produced, so a retried submission can
// be collapsed into the original order's code.
type Record struct {
	Token     string    `dynamodbav:"idempotency_key"` // PK
	Status    string    `dynamodbav:"status"`
	OrderID   string    `dynamodbav:"order_id,omitempty"`
	OrderCode string    `dynamodbav:"order_code,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
	ExpiresAt int64     `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds, 0 = never
	Note      string    `dynamodbav:"note,omitempty"`
}
