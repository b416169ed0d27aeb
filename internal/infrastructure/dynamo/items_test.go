package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestConversationKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, "3#7", conversationKey(3, 7))
	assert.Equal(t, conversationKey(3, 7), conversationKey(7, 3))
}

func TestAllowedPriorStatuses(t *testing.T) {
	assert.Empty(t, allowedPriorStatuses(domain.MessageSent))
	assert.Equal(t, []string{"SENT"}, allowedPriorStatuses(domain.MessageDelivered))
	assert.Equal(t, []string{"SENT", "DELIVERED"}, allowedPriorStatuses(domain.MessageRead))
}

func TestStatusUpdateInput_KeepsStoredDeliveryTime(t *testing.T) {
	m, err := domain.NewMessage("01J0", 7, 3, "hi", sentAt)
	require.NoError(t, err)
	read := m.MarkRead(sentAt.Add(time.Hour))

	in, err := statusUpdateInput("messages", &read)
	require.NoError(t, err)
	assert.Contains(t, *in.UpdateExpression, "#da = if_not_exists(#da, :da)")
	assert.Equal(t, fieldDeliveredAt, in.ExpressionAttributeNames["#da"])
	assert.Equal(t, "attribute_exists(message_id) AND #st IN (:p0, :p1)", *in.ConditionExpression)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "DELIVERED"}, in.ExpressionAttributeValues[":p1"])
	assert.NotContains(t, in.ExpressionAttributeValues, ":p2")
}

func TestStatusUpdateInput_RejectsSentTarget(t *testing.T) {
	m, err := domain.NewMessage("01J0", 7, 3, "hi", sentAt)
	require.NoError(t, err)
	_, err = statusUpdateInput("messages", &m)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMessageItem_RoundTrip(t *testing.T) {
	m, err := domain.NewMessage("01J0", 7, 3, "hi", sentAt)
	require.NoError(t, err)
	m = m.MarkRead(sentAt.Add(time.Minute))

	it := toMessageItem(&m)
	assert.Equal(t, "3#7", it.ConversationKey)
	assert.Equal(t, "3#READ", it.RecipientStatus)
	assert.Equal(t, sentAt.UnixMilli(), it.SentAtMs)

	av, err := attributevalue.MarshalMap(it)
	require.NoError(t, err)
	_, isNum := av[fieldSentAtMs].(*types.AttributeValueMemberN)
	assert.True(t, isNum)

	var back messageItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &back))
	got := back.message()
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, domain.MessageRead, got.Status)
	require.NotNil(t, got.DeliveredAt)
	require.NotNil(t, got.ReadAt)
	assert.True(t, got.ReadAt.Equal(*m.ReadAt))
}

func TestMessageItem_OmitsUnsetTimestamps(t *testing.T) {
	m, err := domain.NewMessage("01J1", 1, 2, "hello", sentAt)
	require.NoError(t, err)
	av, err := attributevalue.MarshalMap(toMessageItem(&m))
	require.NoError(t, err)
	assert.NotContains(t, av, fieldDeliveredAt)
	assert.NotContains(t, av, fieldReadAt)
}

func TestNotificationItem_RoundTrip(t *testing.T) {
	n, err := domain.NewNotification("01J2", 3, domain.NotificationNewMessage, "New message", domain.RefEntityMessage, "01J0", sentAt)
	require.NoError(t, err)

	it := toNotificationItem(&n)
	assert.Equal(t, "3#UNREAD", it.RecipientStatus)

	av, err := attributevalue.MarshalMap(it)
	require.NoError(t, err)
	var back notificationItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &back))
	got := back.notification()
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, domain.NotificationNewMessage, got.Type)
	assert.Equal(t, "01J0", got.RefEntityID)
	assert.Nil(t, got.ReadAt)
}
