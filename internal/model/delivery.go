package model

import "time"

// Delivery is a row of the ClickHouse read model backing admin reports:
// one notification delivered to one user, denormalized for filtering.
type Delivery struct {
	NotificationID string           `db:"notification_id" json:"notification_id"`
	UserID         string           `db:"user_id" json:"user_id"`
	PackageID      string           `db:"package_id" json:"package_id,omitempty"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Status         string           `db:"status" json:"status"` // unread | read | deleted
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
