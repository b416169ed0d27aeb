package domain

// MessageStatus is the delivery state of a Message. It only moves forward:
// SENT -> DELIVERED -> READ.
type MessageStatus string

const (
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
)

func (s MessageStatus) rank() int {
	switch s {
	case MessageSent:
		return 1
	case MessageDelivered:
		return 2
	case MessageRead:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool { return s.rank() > 0 }

// AtLeast reports whether s is equal to or past target.
func (s MessageStatus) AtLeast(target MessageStatus) bool { return s.rank() >= target.rank() }

// NotificationStatus is the read state of a Notification: UNREAD -> READ.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "UNREAD"
	NotificationRead   NotificationStatus = "READ"
)

// Valid reports whether s is a known notification status.
func (s NotificationStatus) Valid() bool {
	return s == NotificationUnread || s == NotificationRead
}

// NotificationType categorises a notification.
type NotificationType string

const (
	NotificationNewMessage         NotificationType = "NEW_MESSAGE"
	NotificationSystemAnnouncement NotificationType = "SYSTEM_ANNOUNCEMENT"
	NotificationRecruitmentUpdate  NotificationType = "RECRUITMENT_UPDATE"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewMessage, NotificationSystemAnnouncement, NotificationRecruitmentUpdate:
		return true
	}
	return false
}
