package model

import (
	"strings"
	"time"
)

type PackageStatus string

const (
	StatusReceivedChina      PackageStatus = "received_china"
	StatusInTransit          PackageStatus = "in_transit"
	StatusArrivedAfrica      PackageStatus = "arrived_africa"
	StatusAvailableWarehouse PackageStatus = "available_warehouse"
	StatusPickedUp           PackageStatus = "picked_up"
)

func (s PackageStatus) String() string { return string(s) }

func (s PackageStatus) Valid() bool {
	switch s {
	case StatusReceivedChina, StatusInTransit, StatusArrivedAfrica,
		StatusAvailableWarehouse, StatusPickedUp:
		return true
	}
	return false
}

// ParseStatus normalizes input; empty => received_china.
// Returns (value, true) if valid; otherwise (received_china, false).
func ParseStatus(s string) (PackageStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "received_china":
		return StatusReceivedChina, true
	case "in_transit":
		return StatusInTransit, true
	case "arrived_africa":
		return StatusArrivedAfrica, true
	case "available_warehouse":
		return StatusAvailableWarehouse, true
	case "picked_up":
		return StatusPickedUp, true
	default:
		return StatusReceivedChina, false
	}
}

// AllStatuses lists the lifecycle stages in shipping order.
func AllStatuses() []PackageStatus {
	return []PackageStatus{
		StatusReceivedChina,
		StatusInTransit,
		StatusArrivedAfrica,
		StatusAvailableWarehouse,
		StatusPickedUp,
	}
}

// Package is the DB entity persisted in the packages table.
type Package struct {
	ID               string        `db:"id" json:"id"`
	TrackingNumber   string        `db:"tracking_number" json:"tracking_number"`
	ClientID         string        `db:"client_id" json:"client_id"`
	Content          string        `db:"content" json:"content"`
	WeightKg         *float64      `db:"weight_kg" json:"weight_kg,omitempty"`
	VolumeM3         *float64      `db:"volume_m3" json:"volume_m3,omitempty"`
	Status           PackageStatus `db:"status" json:"status"`
	Location         *string       `db:"location" json:"location,omitempty"`
	ReceivedChinaAt  time.Time     `db:"received_china_at" json:"received_china_at"`
	EstimatedArrival *time.Time    `db:"estimated_arrival" json:"estimated_arrival,omitempty"`
	Archived         bool          `db:"archived" json:"archived"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`

	// Client is the owning profile, hydrated on reads so list and detail
	// views can show who the box belongs to without a second call.
	Client *Profile `db:"-" json:"client,omitempty"`
}
