package model

import (
	"strings"
	"time"
)

type NotificationType string

const (
	NotifPackageCreated NotificationType = "package_created"
	NotifStatusUpdated  NotificationType = "status_updated"
	NotifPackageArrived NotificationType = "package_arrived"
	NotifNewMessage     NotificationType = "new_message"
	NotifInfo           NotificationType = "info"
	NotifPromotion      NotificationType = "promotion"
	NotifUrgent         NotificationType = "urgent"
	NotifUpdate         NotificationType = "update"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) Valid() bool {
	switch t {
	case NotifPackageCreated, NotifStatusUpdated, NotifPackageArrived,
		NotifNewMessage, NotifInfo, NotifPromotion, NotifUrgent, NotifUpdate:
		return true
	}
	return false
}

// ParseNotificationType normalizes input; empty => info.
func ParseNotificationType(s string) (NotificationType, bool) {
	t := NotificationType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return NotifInfo, true
	}
	if t.Valid() {
		return t, true
	}
	return NotifInfo, false
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

func (p NotificationPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type NotificationState string

const (
	NotifDraft    NotificationState = "draft"
	NotifSent     NotificationState = "sent"
	NotifArchived NotificationState = "archived"
)

func (s NotificationState) String() string { return string(s) }

// Notification is the authored record; delivery to individual users
// happens through user_notifications rows written by the fan-out worker.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	PackageID *string              `db:"package_id" json:"package_id,omitempty"` // nil for broadcasts
	Type      NotificationType     `db:"type" json:"type"`
	Priority  NotificationPriority `db:"priority" json:"priority"`
	Status    NotificationState    `db:"status" json:"status"`
	Title     string               `db:"title" json:"title"`
	Content   string               `db:"content" json:"content"`
	CreatedBy string               `db:"created_by" json:"created_by"`
	ExpiresAt *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

type UserNotificationStatus string

const (
	UserNotifUnread  UserNotificationStatus = "unread"
	UserNotifRead    UserNotificationStatus = "read"
	UserNotifDeleted UserNotificationStatus = "deleted"
)

// UserNotification is one delivery of a notification to one user.
type UserNotification struct {
	ID             string                 `db:"id" json:"id"`
	NotificationID string                 `db:"notification_id" json:"notification_id"`
	UserID         string                 `db:"user_id" json:"user_id"`
	Status         UserNotificationStatus `db:"status" json:"status"`
	ReadAt         *time.Time             `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time              `db:"created_at" json:"created_at"`

	Notification *Notification `db:"-" json:"notification,omitempty"`
}
