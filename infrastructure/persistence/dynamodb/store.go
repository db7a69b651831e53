package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"elbiefit/infrastructure/persistence/abstractions"
)

// Client is the subset of *dynamodb.Client the store uses
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Store implements abstractions.Store on a single DynamoDB table
type Store struct {
	client    Client
	tableName string
	logger    *zap.Logger
	tracer    trace.Tracer
}

var _ abstractions.Store = (*Store)(nil)

// NewStore creates a DynamoDB backed store
func NewStore(client Client, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
		tracer:    otel.Tracer("elbiefit/persistence/dynamodb"),
	}
}

func (s *Store) span(ctx context.Context, op string, key abstractions.Key) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "dynamodb."+op, trace.WithAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", op),
		attribute.String("aws.dynamodb.table_names", s.tableName),
		attribute.String("elbiefit.pk", key.PK),
	))
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, abstractions.ErrConditionFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetItem reads one row with a strongly consistent read
func (s *Store) GetItem(ctx context.Context, key abstractions.Key) (item abstractions.Item, err error) {
	ctx, span := s.span(ctx, "GetItem", key)
	defer func() { finish(span, err) }()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            abstractions.KeyItem(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, nil
	}
	return result.Item, nil
}

func (s *Store) PutItem(ctx context.Context, item abstractions.Item) (err error) {
	ctx, span := s.span(ctx, "PutItem", abstractions.KeyOf(item))
	defer func() { finish(span, err) }()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (s *Store) PutItemIfAtMost(ctx context.Context, item abstractions.Item, attr string, ceiling int64) (err error) {
	ctx, span := s.span(ctx, "PutItem", abstractions.KeyOf(item))
	defer func() { finish(span, err) }()

	cond := expression.AttributeNotExists(expression.Name(attr)).
		Or(expression.Name(attr).LessThanEqual(expression.Value(ceiling)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return conditionError("failed to put item", err)
	}
	return nil
}

func (s *Store) UpdateExisting(ctx context.Context, key abstractions.Key, update abstractions.Update) (item abstractions.Item, err error) {
	ctx, span := s.span(ctx, "UpdateItem", key)
	defer func() { finish(span, err) }()

	var upd expression.UpdateBuilder
	for name, value := range update.Set {
		upd = upd.Set(expression.Name(name), expression.Value(rawValue{value}))
	}
	for _, name := range update.Remove {
		upd = upd.Remove(expression.Name(name))
	}
	cond := expression.AttributeExists(expression.Name("PK")).
		And(expression.AttributeExists(expression.Name("SK")))

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       abstractions.KeyItem(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, conditionError("failed to update item", err)
	}
	return result.Attributes, nil
}

func (s *Store) DeleteItem(ctx context.Context, key abstractions.Key) (existed bool, err error) {
	ctx, span := s.span(ctx, "DeleteItem", key)
	defer func() { finish(span, err) }()

	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          abstractions.KeyItem(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return len(result.Attributes) > 0, nil
}

func (s *Store) Query(ctx context.Context, pk, skPrefix string) (items []abstractions.Item, err error) {
	ctx, span := s.span(ctx, "Query", abstractions.Key{PK: pk, SK: skPrefix})
	defer func() { finish(span, err) }()

	keyCond := expression.Key("PK").Equal(expression.Value(pk))
	if skPrefix != "" {
		keyCond = keyCond.And(expression.Key("SK").BeginsWith(skPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		items = append(items, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	span.SetAttributes(attribute.Int("elbiefit.items", len(items)))
	return items, nil
}

func (s *Store) BatchDelete(ctx context.Context, keys []abstractions.Key) (err error) {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := s.span(ctx, "BatchWriteItem", keys[0])
	defer func() { finish(span, err) }()

	for start := 0; start < len(keys); start += abstractions.MaxBatchSize {
		end := min(start+abstractions.MaxBatchSize, len(keys))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: abstractions.KeyItem(key)},
			})
		}

		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		if unprocessed := len(result.UnprocessedItems[s.tableName]); unprocessed > 0 {
			s.logger.Warn("Batch delete left unprocessed items",
				zap.Int("unprocessed", unprocessed),
				zap.Int("batch_size", len(requests)),
			)
			return fmt.Errorf("failed to delete %d of %d items in batch", unprocessed, len(requests))
		}
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, key abstractions.Key, attr string, delta int64, expiresAt int64) (count int64, err error) {
	ctx, span := s.span(ctx, "UpdateItem", key)
	defer func() { finish(span, err) }()

	upd := expression.Add(expression.Name(attr), expression.Value(delta)).
		Set(expression.Name(abstractions.ExpiresAtAttr), expression.Value(expiresAt))
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build increment: %w", err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       abstractions.KeyItem(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	n, ok := result.Attributes[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("increment returned no %s attribute", attr)
	}
	count, err = strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("increment returned non-integer %s: %w", attr, err)
	}
	return count, nil
}

// rawValue hands an already encoded attribute to the expression builder
// unchanged.
type rawValue struct {
	av types.AttributeValue
}

func (r rawValue) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return r.av, nil
}

func conditionError(msg string, err error) error {
	var conditionalCheckFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionalCheckFailed) {
		return abstractions.ErrConditionFailed
	}
	return fmt.Errorf("%s: %w", msg, err)
}
