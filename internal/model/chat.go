package model

import (
	"strings"
	"time"
)

type SenderRole string

const (
	SenderAdmin  SenderRole = "admin"
	SenderClient SenderRole = "client"
)

func (r SenderRole) String() string { return string(r) }

func (r SenderRole) Valid() bool {
	return r == SenderAdmin || r == SenderClient
}

// ParseSenderRole normalizes input; empty => client.
// Returns (value, true) if valid; otherwise (client, false).
func ParseSenderRole(s string) (SenderRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return SenderAdmin, true
	case "", "client":
		return SenderClient, true
	default:
		return SenderClient, false
	}
}

// ChatMessage is one entry in a per-package conversation between
// the forwarder staff and the client.
type ChatMessage struct {
	ID         string     `db:"id" json:"id"`
	PackageID  string     `db:"package_id" json:"package_id"`
	SenderID   string     `db:"sender_id" json:"sender_id"`
	SenderRole SenderRole `db:"sender_role" json:"sender_role"`
	Content    string     `db:"content" json:"content"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
