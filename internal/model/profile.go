package model

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleClient UserRole = "client"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Profile is a staff or client account. API access is authenticated by api_key.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Role         UserRole  `db:"role" json:"role"`
	APIKey       string    `db:"api_key" json:"-"`
	Status       string    `db:"status" json:"status"` // active | suspended
	RateLimitRPS *int      `db:"rate_limit_rps" json:"-"`
	FirstName    *string   `db:"first_name" json:"first_name,omitempty"`
	LastName     *string   `db:"last_name" json:"last_name,omitempty"`
	Company      *string   `db:"company" json:"company,omitempty"`
	Country      *string   `db:"country" json:"country,omitempty"`
	City         *string   `db:"city" json:"city,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName is used in chat notifications; falls back to email.
func (p Profile) DisplayName() string {
	if p.FirstName != nil && *p.FirstName != "" {
		if p.LastName != nil && *p.LastName != "" {
			return *p.FirstName + " " + *p.LastName
		}
		return *p.FirstName
	}
	if p.Company != nil && *p.Company != "" {
		return *p.Company
	}
	return p.Email
}
