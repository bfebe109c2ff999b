package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type catalogMock struct {
	items map[string]map[string]types.AttributeValue
}

func (m *catalogMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	k := params.Key["product_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *catalogMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	return nil, errors.New("not supported by catalogMock")
}

func (m *catalogMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("not supported by catalogMock")
}

func (m *catalogMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("not supported by catalogMock")
}

func TestGet(t *testing.T) {
	p := Product{ProductID: "p1", Name: "Falafel Wrap", Price: 4.5, Active: true}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := NewStore(&catalogMock{items: map[string]map[string]types.AttributeValue{"p1": item}}, "products")

	got, err := s.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "Falafel Wrap" || got.Price != 4.5 || !got.Active {
		t.Fatalf("unexpected product: %+v", got)
	}

	missing, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing product, got %+v", missing)
	}
}
