package threshold

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// GetItemAPI is the subset of the DynamoDB client used by DynamoStore.
type GetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore reads thresholds from a table keyed by the lower-case symbol
// ("symbol" partition key) with a numeric "threshold" attribute.
type DynamoStore struct {
	client    GetItemAPI
	tableName string
}

func NewDynamoStore(client GetItemAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

type dynamoItem struct {
	Symbol    string   `dynamodbav:"symbol"`
	Threshold *float64 `dynamodbav:"threshold"`
}

func (s *DynamoStore) Lookup(ctx context.Context, symbol string) (Entry, error) {
	key := strings.ToLower(symbol)

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"symbol": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("get threshold item %s: %w", key, err)
	}

	if len(out.Item) == 0 {
		return Entry{}, fmt.Errorf("%w: %s in table %s", ErrNotFound, key, s.tableName)
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	if item.Threshold == nil {
		return Entry{}, fmt.Errorf("%w: %s has no threshold attribute", ErrMalformed, key)
	}

	return Entry{Symbol: symbol, Threshold: *item.Threshold}, nil
}
