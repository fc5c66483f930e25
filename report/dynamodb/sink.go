// Package dynamodb writes benchmark rounds to a DynamoDB table, one item
// per (run, ef) pair.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: ef (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecbench-rounds \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=ef,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=ef,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/vecbench/report"
)

// Client is the subset of the DynamoDB API used by Sink.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ErrDuplicateRound is returned when the table already holds a round for
// the same run and ef.
var ErrDuplicateRound = errors.New("round already recorded")

// Sink implements report.Sink.
type Sink struct {
	client Client
	table  string
	now    func() time.Time
}

var _ report.Sink = (*Sink)(nil)

// NewSink returns a sink writing into table.
func NewSink(client Client, table string) *Sink {
	return &Sink{client: client, table: table, now: time.Now}
}

// Write puts one item per round. Existing items are never overwritten.
func (s *Sink) Write(ctx context.Context, r *report.Report) error {
	if r.RunID == "" {
		return errors.New("dynamodb: report has no run id")
	}

	created := s.now().UTC().Format(time.RFC3339Nano)

	for _, rd := range r.Rounds {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.table),
			Item:                item(r, rd, created),
			ConditionExpression: aws.String("attribute_not_exists(ef)"),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				return fmt.Errorf("%w: run %s ef %d", ErrDuplicateRound, r.RunID, rd.Ef)
			}
			return fmt.Errorf("failed to put round ef=%d: %w", rd.Ef, err)
		}
	}
	return nil
}

func item(r *report.Report, rd report.Round, created string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"run_id":     &types.AttributeValueMemberS{Value: r.RunID},
		"ef":         number(int64(rd.Ef)),
		"recall":     &types.AttributeValueMemberN{Value: strconv.FormatFloat(rd.Recall, 'f', -1, 64)},
		"matches":    number(rd.Matches),
		"total":      number(rd.Total),
		"queries":    number(int64(rd.Queries)),
		"duration":   number(int64(rd.Duration)),
		"qps":        &types.AttributeValueMemberN{Value: strconv.FormatFloat(rd.QPS, 'f', -1, 64)},
		"p50":        number(int64(rd.Latency.P50)),
		"p95":        number(int64(rd.Latency.P95)),
		"p99":        number(int64(rd.Latency.P99)),
		"k":          number(int64(r.K)),
		"index_kind": &types.AttributeValueMemberS{Value: r.IndexKind},
		"mode":       &types.AttributeValueMemberS{Value: r.Mode},
		"dataset":    &types.AttributeValueMemberS{Value: r.Dataset},
		"created_at": &types.AttributeValueMemberS{Value: created},
	}
}

func number(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}
