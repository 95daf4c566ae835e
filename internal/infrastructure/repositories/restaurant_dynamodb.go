package repositories

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/dineatlas/restaurant-directory/internal/core/domain/restaurant"
	"github.com/dineatlas/restaurant-directory/internal/core/ports"
)

// Secondary index names on the restaurants table. Deployments without these
// indexes run with useIndexes=false and fall back to filtered scans.
const (
	cuisineIndex       = "Cuisine-index"
	regionIndex        = "GeoRegional-index"
	regionCuisineIndex = "GeoRegionalCuisine-index"
)

// DynamoRestaurantRepository implements the restaurant store on a DynamoDB
// table keyed by RestaurantName.
type DynamoRestaurantRepository struct {
	client     *dynamodb.Client
	tableName  string
	useIndexes bool
	logger     *logrus.Logger
}

func NewDynamoRestaurantRepository(client *dynamodb.Client, tableName string, useIndexes bool, logger *logrus.Logger) ports.RestaurantRepository {
	return &DynamoRestaurantRepository{
		client:     client,
		tableName:  tableName,
		useIndexes: useIndexes,
		logger:     logger,
	}
}

func nameKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"RestaurantName": &types.AttributeValueMemberS{Value: name},
	}
}

func (r *DynamoRestaurantRepository) Get(ctx context.Context, name string) (*restaurant.Restaurant, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       nameKey(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	if out.Item == nil {
		return nil, restaurant.ErrRestaurantNotFound
	}

	var rest restaurant.Restaurant
	if err := attributevalue.UnmarshalMap(out.Item, &rest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restaurant: %w", err)
	}
	return &rest, nil
}

func (r *DynamoRestaurantRepository) Put(ctx context.Context, rest *restaurant.Restaurant) error {
	item, err := attributevalue.MarshalMap(rest)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put restaurant: %w", err)
	}
	return nil
}

// Delete is idempotent: DynamoDB's DeleteItem succeeds whether or not the
// key existed.
func (r *DynamoRestaurantRepository) Delete(ctx context.Context, name string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       nameKey(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete restaurant: %w", err)
	}
	return nil
}

func (r *DynamoRestaurantRepository) UpdateRating(ctx context.Context, name string, rating float64, count int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              nameKey(name),
		UpdateExpression: aws.String("SET Rating = :r, RatingCount = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", rating)},
			":c": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", count)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}

func (r *DynamoRestaurantRepository) QueryByCuisine(ctx context.Context, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	if !r.useIndexes {
		filter := expression.Name("Cuisine").Equal(expression.Value(cuisine))
		return r.scan(ctx, filter, limit)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(cuisineIndex),
		KeyConditionExpression: aws.String("Cuisine = :cuisine"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cuisine": &types.AttributeValueMemberS{Value: cuisine},
		},
		Limit: aws.Int32(int32(limit)),
	}
	return r.query(ctx, input)
}

func (r *DynamoRestaurantRepository) QueryByRegion(ctx context.Context, region string, limit int) ([]restaurant.Restaurant, error) {
	if !r.useIndexes {
		filter := expression.Name("GeoRegional").Equal(expression.Value(region))
		return r.scan(ctx, filter, limit)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(regionIndex),
		KeyConditionExpression: aws.String("GeoRegional = :region"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":region": &types.AttributeValueMemberS{Value: region},
		},
		Limit: aws.Int32(int32(limit)),
	}
	return r.query(ctx, input)
}

func (r *DynamoRestaurantRepository) QueryByRegionAndCuisine(ctx context.Context, region, cuisine string, limit int) ([]restaurant.Restaurant, error) {
	if !r.useIndexes {
		filter := expression.Name("GeoRegional").Equal(expression.Value(region)).
			And(expression.Name("Cuisine").Equal(expression.Value(cuisine)))
		return r.scan(ctx, filter, limit)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(regionCuisineIndex),
		KeyConditionExpression: aws.String("GeoRegional = :region AND Cuisine = :cuisine"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":region":  &types.AttributeValueMemberS{Value: region},
			":cuisine": &types.AttributeValueMemberS{Value: cuisine},
		},
		Limit: aws.Int32(int32(limit)),
	}
	return r.query(ctx, input)
}

func (r *DynamoRestaurantRepository) query(ctx context.Context, input *dynamodb.QueryInput) ([]restaurant.Restaurant, error) {
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}

	restaurants := make([]restaurant.Restaurant, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restaurants: %w", err)
	}
	return restaurants, nil
}

// scan is the query path for tables without the secondary indexes. DynamoDB
// applies Limit before the filter on a Scan, so pages are walked until
// enough matches accumulate or the table is exhausted.
func (r *DynamoRestaurantRepository) scan(ctx context.Context, filter expression.ConditionBuilder, limit int) ([]restaurant.Restaurant, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	if r.logger != nil {
		r.logger.WithField("table", r.tableName).Debug("querying via scan fallback")
	}

	var restaurants []restaurant.Restaurant
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan restaurants: %w", err)
		}

		var page []restaurant.Restaurant
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal restaurants: %w", err)
		}
		restaurants = append(restaurants, page...)

		if len(restaurants) >= limit || out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if len(restaurants) > limit {
		restaurants = restaurants[:limit]
	}
	return restaurants, nil
}

var _ ports.RestaurantRepository = (*DynamoRestaurantRepository)(nil)
