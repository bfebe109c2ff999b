package counter

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// counterMock is a minimal in-memory stand-in for the counters table. It only
// understands the conditional seed put and the ADD increment the Store issues.
type counterMock struct {
	mu     sync.Mutex
	values map[string]int64
	seeded map[string]bool
	fail   error
}

func newCounterMock() *counterMock {
	return &counterMock{values: map[string]int64{}, seeded: map[string]bool{}}
}

func (m *counterMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	name := params.Item["counter_name"].(*types.AttributeValueMemberS).Value
	if m.seeded[name] {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.seeded[name] = true
	m.values[name] = 0
	return &dyn.PutItemOutput{}, nil
}

func (m *counterMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	name := params.Key["counter_name"].(*types.AttributeValueMemberS).Value
	m.values[name]++
	return &dyn.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{
			"seq_value": &types.AttributeValueMemberN{Value: strconv.FormatInt(m.values[name], 10)},
		},
	}, nil
}

func (m *counterMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	return nil, errors.New("not supported by counterMock")
}

func (m *counterMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("not supported by counterMock")
}

func TestEnsure_Idempotent(t *testing.T) {
	mock := newCounterMock()
	s := NewStore(mock, "counters")
	ctx := context.Background()

	if err := s.Ensure(ctx, OrderSequence); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	// second Ensure hits the conditional failure and must be a no-op
	if err := s.Ensure(ctx, OrderSequence); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if mock.values[OrderSequence] != 0 {
		t.Fatalf("counter should still be 0, got %d", mock.values[OrderSequence])
	}
}

func TestNext_SequentialValues(t *testing.T) {
	mock := newCounterMock()
	s := NewStore(mock, "counters")
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.Next(ctx, OrderSequence)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

// Concurrent callers must receive pairwise distinct values with no duplicates.
func TestNext_ConcurrentDistinct(t *testing.T) {
	mock := newCounterMock()
	s := NewStore(mock, "counters")
	ctx := context.Background()

	const n = 50
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Next(ctx, OrderSequence)
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	var got []int64
	for v := range results {
		got = append(got, v)
	}
	if len(got) != n {
		t.Fatalf("expected %d values, got %d", n, len(got))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("expected contiguous values 1..%d, got %v", n, got)
		}
	}
}

func TestNext_StorageUnavailable(t *testing.T) {
	mock := newCounterMock()
	mock.fail = errors.New("connection refused")
	s := NewStore(mock, "counters")

	_, err := s.Next(context.Background(), OrderSequence)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
