package model

// Envelope is the payload published to Kafka (via Debezium outbox SMT)
// and consumed by the notifier worker for per-user fan-out.
type Envelope struct {
	NotificationID string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	UserIDs        []string         `json:"user_ids"`
}
