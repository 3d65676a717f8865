package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/parkspot-api/internal/domain"
)

// BookingRepo provides typed DynamoDB operations for the bookings table.
type BookingRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBookingRepo(client *dynamodb.Client, tableName string) *BookingRepo {
	return &BookingRepo{client: client, tableName: tableName}
}

func (r *BookingRepo) Put(ctx context.Context, b *domain.Booking) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("marshal booking: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BookingRepo) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("booking_id", bookingID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("booking not found: %w", domain.ErrNotFound)
	}
	var b domain.Booking
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser returns all bookings for userID via the user_id-index GSI.
// Ordering is applied by the caller; the GSI has no range key on start time.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-index"),
		KeyConditionExpression:    aws.String("#u = :v"),
		ExpressionAttributeNames:  map[string]string{"#u": "user_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, err
	}
	var bookings []domain.Booking
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepo) Update(ctx context.Context, bookingID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("booking_id", bookingID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
