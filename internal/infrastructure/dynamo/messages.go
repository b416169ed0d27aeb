package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-realtime/internal/domain"
)

// messageItem is the stored shape of a domain.Message. The derived keys feed the GSIs.
type messageItem struct {
	MessageID       string     `dynamodbav:"message_id"`
	SenderID        int64      `dynamodbav:"sender_id"`
	RecipientID     int64      `dynamodbav:"recipient_id"`
	Content         string     `dynamodbav:"content"`
	Status          string     `dynamodbav:"status"`
	ConversationKey string     `dynamodbav:"conversation_key"`
	RecipientStatus string     `dynamodbav:"recipient_status"`
	SentAtMs        int64      `dynamodbav:"sent_at_ms"`
	SentAt          time.Time  `dynamodbav:"sent_at"`
	DeliveredAt     *time.Time `dynamodbav:"delivered_at,omitempty"`
	ReadAt          *time.Time `dynamodbav:"read_at,omitempty"`
}

// conversationKey is order-independent: (a,b) and (b,a) map to the same key.
func conversationKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d#%d", a, b)
}

func recipientStatusKey(recipientID int64, status string) string {
	return fmt.Sprintf("%d#%s", recipientID, status)
}

func toMessageItem(m *domain.Message) messageItem {
	return messageItem{
		MessageID:       m.ID,
		SenderID:        m.SenderID,
		RecipientID:     m.RecipientID,
		Content:         m.Content,
		Status:          string(m.Status),
		ConversationKey: conversationKey(m.SenderID, m.RecipientID),
		RecipientStatus: recipientStatusKey(m.RecipientID, string(m.Status)),
		SentAtMs:        m.SentAt.UnixMilli(),
		SentAt:          m.SentAt.UTC(),
		DeliveredAt:     m.DeliveredAt,
		ReadAt:          m.ReadAt,
	}
}

func (it messageItem) message() domain.Message {
	return domain.Message{
		ID:          it.MessageID,
		SenderID:    it.SenderID,
		RecipientID: it.RecipientID,
		Content:     it.Content,
		Status:      domain.MessageStatus(it.Status),
		SentAt:      it.SentAt,
		DeliveredAt: it.DeliveredAt,
		ReadAt:      it.ReadAt,
	}
}

func unmarshalMessages(items []map[string]types.AttributeValue) ([]domain.Message, error) {
	var rows []messageItem
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.message())
	}
	return out, nil
}

// MessageRepo provides typed DynamoDB operations for the messages table.
type MessageRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMessageRepo(client *dynamodb.Client, tableName string) *MessageRepo {
	return &MessageRepo{client: client, tableName: tableName}
}

// Put stores a new message. An existing id is a conflict.
func (r *MessageRepo) Put(ctx context.Context, m *domain.Message) error {
	item, err := attributevalue.MarshalMap(toMessageItem(m))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(message_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("message %s: %w", m.ID, domain.ErrConflict)
	}
	return err
}

func (r *MessageRepo) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldMessageID, messageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	var it messageItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	m := it.message()
	return &m, nil
}

// UpdateStatus persists the status and its timestamps. The stored status must be
// strictly behind m.Status, so a duplicate or racing older transition is a conflict.
func (r *MessageRepo) UpdateStatus(ctx context.Context, m *domain.Message) error {
	input, err := statusUpdateInput(r.tableName, m)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, input)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("message %s status %s: %w", m.ID, m.Status, domain.ErrConflict)
	}
	return err
}

// statusUpdateInput keeps an existing delivered_at: a READ built from a stale
// SENT snapshot must not overwrite the recorded delivery time.
func statusUpdateInput(table string, m *domain.Message) (*dynamodb.UpdateItemInput, error) {
	updates := map[string]interface{}{
		fieldStatus:          string(m.Status),
		fieldRecipientStatus: recipientStatusKey(m.RecipientID, string(m.Status)),
	}
	if m.ReadAt != nil {
		updates[fieldReadAt] = m.ReadAt.UTC()
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	if m.DeliveredAt != nil {
		av, err := attributevalue.Marshal(m.DeliveredAt.UTC())
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", fieldDeliveredAt, err)
		}
		ue.Names["#da"] = fieldDeliveredAt
		ue.Values[":da"] = av
		ue.Expr += ", #da = if_not_exists(#da, :da)"
	}
	ue.Names["#st"] = fieldStatus
	priors := allowedPriorStatuses(m.Status)
	if len(priors) == 0 {
		return nil, fmt.Errorf("message %s status %s: %w", m.ID, m.Status, domain.ErrConflict)
	}
	placeholders := make([]string, 0, len(priors))
	for i, s := range priors {
		ph := fmt.Sprintf(":p%d", i)
		ue.Values[ph] = &types.AttributeValueMemberS{Value: s}
		placeholders = append(placeholders, ph)
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldMessageID, m.ID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(message_id) AND #st IN (" + strings.Join(placeholders, ", ") + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}, nil
}

// allowedPriorStatuses lists every stored status strictly behind target.
func allowedPriorStatuses(target domain.MessageStatus) []string {
	var out []string
	for _, s := range []domain.MessageStatus{domain.MessageSent, domain.MessageDelivered, domain.MessageRead} {
		if s != target && target.AtLeast(s) {
			out = append(out, string(s))
		}
	}
	return out
}

// ListConversation returns one page of messages exchanged between a and b, newest first.
func (r *MessageRepo) ListConversation(ctx context.Context, a, b int64, limit int32, cursor string) ([]domain.Message, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexConversation),
		KeyConditionExpression: aws.String("conversation_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: conversationKey(a, b)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}
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
	msgs, err := unmarshalMessages(out.Items)
	if err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return msgs, next, nil
}

// ListByRecipientStatus returns every message addressed to recipientID in status, newest first.
func (r *MessageRepo) ListByRecipientStatus(ctx context.Context, recipientID int64, status domain.MessageStatus) ([]domain.Message, error) {
	items, err := queryAll(ctx, r.client, r.recipientStatusQuery(recipientID, status))
	if err != nil {
		return nil, err
	}
	return unmarshalMessages(items)
}

func (r *MessageRepo) CountByRecipientStatus(ctx context.Context, recipientID int64, status domain.MessageStatus) (int, error) {
	return countAll(ctx, r.client, r.recipientStatusQuery(recipientID, status))
}

func (r *MessageRepo) recipientStatusQuery(recipientID int64, status domain.MessageStatus) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexMessageRecipientStat),
		KeyConditionExpression: aws.String("recipient_status = :rs"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rs": &types.AttributeValueMemberS{Value: recipientStatusKey(recipientID, string(status))},
		},
		ScanIndexForward: aws.Bool(false),
	}
}

// ListInvolving returns every message userID sent or received, newest first.
func (r *MessageRepo) ListInvolving(ctx context.Context, userID int64) ([]domain.Message, error) {
	sent, err := r.queryByParticipant(ctx, indexMessageSender, fieldSenderID, userID)
	if err != nil {
		return nil, err
	}
	received, err := r.queryByParticipant(ctx, indexMessageRecipient, fieldRecipientID, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(sent)+len(received))
	all := make([]domain.Message, 0, len(sent)+len(received))
	for _, m := range append(sent, received...) {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		all = append(all, m)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SentAt.After(all[j].SentAt) })
	return all, nil
}

func (r *MessageRepo) queryByParticipant(ctx context.Context, index, attr string, userID int64) ([]domain.Message, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#p = :u"),
		ExpressionAttributeNames:  map[string]string{"#p": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": numValue(userID)},
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	return unmarshalMessages(items)
}
