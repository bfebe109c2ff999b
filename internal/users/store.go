// Package users is the thin user-directory collaborator: a point lookup used to
// attribute web orders to registered accounts. Guest orders never touch it.
package users

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ksfood/orderflow/internal/aws"
)

// User is the directory document for a registered customer.
type User struct {
	UserID  string `dynamodbav:"user_id" json:"user_id"` // PK
	Name    string `dynamodbav:"name" json:"name"`
	Phone   string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Address string `dynamodbav:"address,omitempty" json:"address,omitempty"`
}

// Store is the DynamoDB-backed user directory.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a Store bound to the users table.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get fetches a user by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, userID string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}
