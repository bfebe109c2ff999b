// Package counter mints the monotonically increasing sequence numbers behind
// human-facing order codes. Correctness under concurrent creation rests entirely
// on DynamoDB's atomic ADD: the increment-and-fetch is a single UpdateItem, never
// a read followed by a write.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ksfood/orderflow/internal/aws"
)

// OrderSequence is the counter name backing order codes.
const OrderSequence = "orderId"

// ErrStorageUnavailable indicates the counter table could not be reached.
// Callers minting an order code must abort the whole creation on it.
var ErrStorageUnavailable = errors.New("counter storage unavailable")

// Store holds one persisted integer per counter name.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore returns a Store bound to the counters table.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Ensure seeds the named counter at 0 if it does not exist. Called once at
// startup; the conditional put makes a racing second startup a no-op.
func (s *Store) Ensure(ctx context.Context, name string) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]types.AttributeValue{
			"counter_name": &types.AttributeValueMemberS{Value: name},
			"seq_value":    &types.AttributeValueMemberN{Value: "0"},
		},
		ConditionExpression: ptr("attribute_not_exists(counter_name)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil // already seeded
		}
		return fmt.Errorf("ensure counter %s: %w: %w", name, ErrStorageUnavailable, err)
	}
	return nil
}

// Next atomically increments the named counter and returns the new value.
// ADD upserts the attribute, so Next is safe even before Ensure has run.
func (s *Store) Next(ctx context.Context, name string) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"counter_name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression: ptr("ADD seq_value :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w: %w", name, ErrStorageUnavailable, err)
	}

	attr, ok := out.Attributes["seq_value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter %s: unexpected attribute shape in response", name)
	}
	v, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s: parse value %q: %w", name, attr.Value, err)
	}
	return v, nil
}

func ptr(s string) *string { return &s }
