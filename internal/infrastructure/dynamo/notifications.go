package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-realtime/internal/domain"
)

type notificationItem struct {
	NotificationID  string     `dynamodbav:"notification_id"`
	RecipientID     int64      `dynamodbav:"recipient_id"`
	Type            string     `dynamodbav:"type"`
	Content         string     `dynamodbav:"content"`
	Status          string     `dynamodbav:"status"`
	RecipientStatus string     `dynamodbav:"recipient_status"`
	RefEntityType   string     `dynamodbav:"ref_entity_type,omitempty"`
	RefEntityID     string     `dynamodbav:"ref_entity_id,omitempty"`
	CreatedAtMs     int64      `dynamodbav:"created_at_ms"`
	CreatedAt       time.Time  `dynamodbav:"created_at"`
	ReadAt          *time.Time `dynamodbav:"read_at,omitempty"`
}

func toNotificationItem(n *domain.Notification) notificationItem {
	return notificationItem{
		NotificationID:  n.ID,
		RecipientID:     n.RecipientID,
		Type:            string(n.Type),
		Content:         n.Content,
		Status:          string(n.Status),
		RecipientStatus: recipientStatusKey(n.RecipientID, string(n.Status)),
		RefEntityType:   n.RefEntityType,
		RefEntityID:     n.RefEntityID,
		CreatedAtMs:     n.CreatedAt.UnixMilli(),
		CreatedAt:       n.CreatedAt.UTC(),
		ReadAt:          n.ReadAt,
	}
}

func (it notificationItem) notification() domain.Notification {
	return domain.Notification{
		ID:            it.NotificationID,
		RecipientID:   it.RecipientID,
		Type:          domain.NotificationType(it.Type),
		Content:       it.Content,
		Status:        domain.NotificationStatus(it.Status),
		RefEntityType: it.RefEntityType,
		RefEntityID:   it.RefEntityID,
		CreatedAt:     it.CreatedAt,
		ReadAt:        it.ReadAt,
	}
}

func unmarshalNotifications(items []map[string]types.AttributeValue) ([]domain.Notification, error) {
	var rows []notificationItem
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.notification())
	}
	return out, nil
}

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(toNotificationItem(n))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldNotificationID, notificationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var it notificationItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	n := it.notification()
	return &n, nil
}

// UpdateStatus persists a READ transition. Already-read items are left as they are.
func (r *NotificationRepo) UpdateStatus(ctx context.Context, n *domain.Notification) error {
	updates := map[string]interface{}{
		fieldStatus:          string(n.Status),
		fieldRecipientStatus: recipientStatusKey(n.RecipientID, string(n.Status)),
	}
	if n.ReadAt != nil {
		updates[fieldReadAt] = n.ReadAt.UTC()
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#st"] = fieldStatus
	ue.Values[":unread"] = &types.AttributeValueMemberS{Value: string(domain.NotificationUnread)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldNotificationID, n.ID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(notification_id) AND #st = :unread"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	return err
}

// ListByRecipient returns one page of the recipient's notifications, newest first.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID int64, limit int32, cursor string) ([]domain.Notification, string, error) {
	input := r.ownerQuery(recipientID)
	input.Limit = aws.Int32(limit)
	if cursor != "" {
		start, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = start
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	ns, err := unmarshalNotifications(out.Items)
	if err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return ns, next, nil
}

// ListByRecipientType filters the recipient's notifications by type, newest first.
func (r *NotificationRepo) ListByRecipientType(ctx context.Context, recipientID int64, typ domain.NotificationType) ([]domain.Notification, error) {
	input := r.ownerQuery(recipientID)
	input.FilterExpression = aws.String("#t = :t")
	input.ExpressionAttributeNames = map[string]string{"#t": fieldType}
	input.ExpressionAttributeValues[":t"] = &types.AttributeValueMemberS{Value: string(typ)}
	items, err := queryAll(ctx, r.client, input)
	if err != nil {
		return nil, err
	}
	return unmarshalNotifications(items)
}

func (r *NotificationRepo) ListByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) ([]domain.Notification, error) {
	items, err := queryAll(ctx, r.client, r.statusQuery(recipientID, status))
	if err != nil {
		return nil, err
	}
	return unmarshalNotifications(items)
}

func (r *NotificationRepo) CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.NotificationStatus) (int, error) {
	return countAll(ctx, r.client, r.statusQuery(recipientID, status))
}

func (r *NotificationRepo) ownerQuery(recipientID int64) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexNotificationOwner),
		KeyConditionExpression:    aws.String("recipient_id = :r"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":r": numValue(recipientID)},
		ScanIndexForward:          aws.Bool(false),
	}
}

func (r *NotificationRepo) statusQuery(recipientID int64, status domain.NotificationStatus) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexNotificationStatus),
		KeyConditionExpression: aws.String("recipient_status = :rs"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rs": &types.AttributeValueMemberS{Value: recipientStatusKey(recipientID, string(status))},
		},
		ScanIndexForward: aws.Bool(false),
	}
}
