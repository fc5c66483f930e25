package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/vecbench/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is an in-memory DynamoDB mock keyed by run_id and ef.
type mockClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newMockClient() *mockClient {
	return &mockClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	runID := params.Item["run_id"].(*types.AttributeValueMemberS).Value
	ef := params.Item["ef"].(*types.AttributeValueMemberN).Value
	key := runID + ":" + ef

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(ef)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func testReport() *report.Report {
	return &report.Report{
		RunID:     "run-42",
		Dataset:   "base.fbin",
		K:         10,
		IndexKind: "hnsw",
		Mode:      "reuse",
		Rounds: []report.Round{
			{Ef: 10, Recall: 81.5, Matches: 815, Total: 1000, Queries: 100, Duration: time.Second, QPS: 100},
			{Ef: 50, Recall: 97.25, Matches: 9725, Total: 10000, Queries: 100, Duration: 2 * time.Second, QPS: 50,
				Latency: report.Latency{P50: time.Millisecond, P95: 2 * time.Millisecond, P99: 3 * time.Millisecond}},
		},
	}
}

func TestSinkWrite(t *testing.T) {
	client := newMockClient()
	sink := NewSink(client, "vecbench-rounds")
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, sink.Write(context.Background(), testReport()))
	require.Len(t, client.items, 2)

	it := client.items["run-42:50"]
	require.NotNil(t, it)
	assert.Equal(t, "97.25", it["recall"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "9725", it["matches"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "2000000", it["p95"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "hnsw", it["index_kind"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "2024-01-02T03:04:05Z", it["created_at"].(*types.AttributeValueMemberS).Value)
}

func TestSinkDuplicateRound(t *testing.T) {
	client := newMockClient()
	sink := NewSink(client, "vecbench-rounds")

	require.NoError(t, sink.Write(context.Background(), testReport()))

	err := sink.Write(context.Background(), testReport())
	assert.ErrorIs(t, err, ErrDuplicateRound)
}

func TestSinkErrors(t *testing.T) {
	client := newMockClient()
	sink := NewSink(client, "vecbench-rounds")

	r := testReport()
	r.RunID = ""
	assert.Error(t, sink.Write(context.Background(), r))

	boom := errors.New("throttled")
	client.err = boom
	assert.ErrorIs(t, sink.Write(context.Background(), testReport()), boom)
}
