package dynamo

// DynamoDB attribute and index names shared by repos and Bootstrap.
const (
	fieldUserID          = "user_id"
	fieldMessageID       = "message_id"
	fieldNotificationID  = "notification_id"
	fieldSenderID        = "sender_id"
	fieldRecipientID     = "recipient_id"
	fieldConversationKey = "conversation_key"
	fieldRecipientStatus = "recipient_status"
	fieldSentAtMs        = "sent_at_ms"
	fieldCreatedAtMs     = "created_at_ms"
	fieldStatus          = "status"
	fieldType            = "type"
	fieldDeliveredAt     = "delivered_at"
	fieldReadAt          = "read_at"

	indexConversation         = "conversation_key-sent_at_ms-index"
	indexMessageRecipientStat = "recipient_status-sent_at_ms-index"
	indexMessageSender        = "sender_id-sent_at_ms-index"
	indexMessageRecipient     = "recipient_id-sent_at_ms-index"
	indexNotificationOwner    = "recipient_id-created_at_ms-index"
	indexNotificationStatus   = "recipient_status-created_at_ms-index"
)
