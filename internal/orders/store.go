package orders

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ksfood/orderflow/internal/aws"
)

// Index names on the orders table. createdIndex keys every order document under a
// constant partition so unfiltered listings stay a Query, sorted by creation time.
const (
	codeIndex    = "code-index"    // code (S)
	statusIndex  = "status-index"  // status (S), created_at (S)
	createdIndex = "created-index" // doc_type (S), created_at (S)

	docTypeOrder = "order"
)

// ErrStatusMismatch indicates a status-conditional update found a different
// current status than expected.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// storedOrder adds the constant partition attribute used by createdIndex.
type storedOrder struct {
	Order
	DocType string `dynamodbav:"doc_type"`
}

// Create persists a new order. The conditional put guards the internal key; the
// code is minted by the counter and never reused, so a key collision means a bug,
// not a retry path.
func (s *Store) Create(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(storedOrder{Order: order, DocType: docTypeOrder})
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("order key %s already exists: %w", order.OrderID, err)
		}
		return fmt.Errorf("put order: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Get fetches an order by its internal key. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w: %w", ErrStorageUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByCode fetches an order by its human-facing code. Returns (nil, nil) if not found.
func (s *Store) GetByCode(ctx context.Context, code string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                awsString(codeIndex),
		KeyConditionExpression:   awsString("#code = :c"),
		ExpressionAttributeNames: map[string]string{"#code": "code"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: code},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query by code: %w: %w", ErrStorageUnavailable, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns ErrStatusMismatch if the order's current status is not expectedStatus,
// which also covers an absent order (the condition never matches).
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       timeAttr(now),
		},
		ConditionExpression: awsString("#s = :expected"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update status: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// ListFilter narrows a listing. Zero values mean "no constraint".
type ListFilter struct {
	Status string
	Origin string
	From   time.Time
	To     time.Time
	Limit  int32
	Cursor string
}

// listCursor carries enough of DynamoDB's LastEvaluatedKey to resume a Query.
type listCursor struct {
	OrderID   string `json:"o"`
	Status    string `json:"s,omitempty"`
	CreatedAt string `json:"c"`
}

// List returns orders matching the filter, newest first, with an opaque cursor
// for the next page. Status-filtered listings ride statusIndex; everything else
// rides createdIndex with origin applied as a filter expression.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Order, string, error) {
	input := &dyn.QueryInput{
		TableName:                 &s.tableName,
		ScanIndexForward:          awsBool(false),
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}
	if f.Limit > 0 {
		input.Limit = awsInt32(f.Limit)
	}

	keyCond := ""
	names := map[string]string{}
	if f.Status != "" {
		input.IndexName = awsString(statusIndex)
		keyCond = "#s = :pk"
		names["#s"] = "status"
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: f.Status}
	} else {
		input.IndexName = awsString(createdIndex)
		keyCond = "doc_type = :pk"
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: docTypeOrder}
	}

	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		keyCond += " AND created_at BETWEEN :from AND :to"
		input.ExpressionAttributeValues[":from"] = timeAttr(f.From)
		input.ExpressionAttributeValues[":to"] = timeAttr(f.To)
	case !f.From.IsZero():
		keyCond += " AND created_at >= :from"
		input.ExpressionAttributeValues[":from"] = timeAttr(f.From)
	case !f.To.IsZero():
		keyCond += " AND created_at <= :to"
		input.ExpressionAttributeValues[":to"] = timeAttr(f.To)
	}
	input.KeyConditionExpression = &keyCond

	if f.Origin != "" {
		input.FilterExpression = awsString("#origin = :origin")
		names["#origin"] = "origin"
		input.ExpressionAttributeValues[":origin"] = &types.AttributeValueMemberS{Value: f.Origin}
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	if f.Cursor != "" {
		start, err := decodeCursor(f.Cursor, f.Status)
		if err != nil {
			return nil, "", newValidationError("cursor", "malformed page cursor")
		}
		input.ExclusiveStartKey = start
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list orders: %w: %w", ErrStorageUnavailable, err)
	}

	result := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, "", fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}

	next := ""
	if len(out.LastEvaluatedKey) > 0 {
		next, err = encodeCursor(out.LastEvaluatedKey)
		if err != nil {
			return nil, "", err
		}
	}
	return result, next, nil
}

func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	c := listCursor{}
	if v, ok := key["order_id"].(*types.AttributeValueMemberS); ok {
		c.OrderID = v.Value
	}
	if v, ok := key["status"].(*types.AttributeValueMemberS); ok {
		c.Status = v.Value
	}
	if v, ok := key["created_at"].(*types.AttributeValueMemberS); ok {
		c.CreatedAt = v.Value
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor, status string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var c listCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.OrderID == "" || c.CreatedAt == "" {
		return nil, errors.New("incomplete cursor")
	}
	key := map[string]types.AttributeValue{
		"order_id":   &types.AttributeValueMemberS{Value: c.OrderID},
		"created_at": &types.AttributeValueMemberS{Value: c.CreatedAt},
	}
	if status != "" {
		key["status"] = &types.AttributeValueMemberS{Value: status}
	} else {
		key["doc_type"] = &types.AttributeValueMemberS{Value: docTypeOrder}
	}
	return key, nil
}

func timeAttr(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

func awsString(s string) *string { return &s }

func awsInt32(n int32) *int32 { return &n }

func awsBool(b bool) *bool { return &b }
