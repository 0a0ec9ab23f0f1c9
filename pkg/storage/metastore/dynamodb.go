package metastore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore writes items into a DynamoDB table with PutItem, which
// replaces any item sharing the same partition key.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore wraps an existing DynamoDB client.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = DefaultTable
	}
	return &DynamoStore{client: client, table: table}
}

func newDynamoStore(ctx context.Context, cfg Config) (Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewDynamoStore(client, cfg.Table), nil
}

func (s *DynamoStore) Put(ctx context.Context, item Item) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      marshalItem(item),
	})
	return err
}

func (s *DynamoStore) Get(ctx context.Context, id string) (Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Item{}, err
	}
	if len(out.Item) == 0 {
		return Item{}, ErrNotFound
	}
	return unmarshalItem(out.Item)
}

func (s *DynamoStore) Close() error {
	return nil
}

func marshalItem(item Item) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":       &types.AttributeValueMemberS{Value: item.ID},
		"filetype": &types.AttributeValueMemberS{Value: item.FileType},
		"size":     &types.AttributeValueMemberN{Value: FormatSize(item.SizeKiB)},
	}
}

func unmarshalItem(av map[string]types.AttributeValue) (Item, error) {
	var item Item

	id, ok := av["id"].(*types.AttributeValueMemberS)
	if !ok {
		return Item{}, fmt.Errorf("dynamodb item: id is not a string attribute")
	}
	item.ID = id.Value

	if ft, ok := av["filetype"].(*types.AttributeValueMemberS); ok {
		item.FileType = ft.Value
	}

	if size, ok := av["size"].(*types.AttributeValueMemberN); ok {
		kib, err := strconv.ParseFloat(size.Value, 64)
		if err != nil {
			return Item{}, fmt.Errorf("dynamodb item: parse size: %w", err)
		}
		item.SizeKiB = kib
	}

	return item, nil
}
