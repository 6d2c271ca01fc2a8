package model

import "time"

// SubscriptionType is the plan a user is on.
type SubscriptionType string

const (
	SubscriptionFree         SubscriptionType = "free"
	SubscriptionPremium      SubscriptionType = "premium"
	SubscriptionProfessional SubscriptionType = "professional"
)

// Valid reports whether s is a known plan.
func (s SubscriptionType) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionPremium, SubscriptionProfessional:
		return true
	}
	return false
}

// CanSeePremium reports whether premium ingredients are visible on this plan.
func (s SubscriptionType) CanSeePremium() bool {
	return s == SubscriptionPremium || s == SubscriptionProfessional
}

// CanSeeProfessional reports whether professional ingredients are visible.
func (s SubscriptionType) CanSeeProfessional() bool {
	return s == SubscriptionProfessional
}

type User struct {
	Base
	FirstName             string           `json:"first_name" db:"first_name"`
	LastName              string           `json:"last_name" db:"last_name"`
	Email                 string           `json:"email" db:"email"`
	HashedPassword        string           `json:"-" db:"hashed_password"`
	IsActive              bool             `json:"is_active" db:"is_active"`
	IsVerified            bool             `json:"is_verified" db:"is_verified"`
	SubscriptionType      SubscriptionType `json:"subscription_type" db:"subscription_type"`
	NeedsSubscription     bool             `json:"needs_subscription" db:"needs_subscription"`
	SubscriptionID        *string          `json:"subscription_id,omitempty" db:"subscription_id"`
	SubscriptionExpiresAt *time.Time       `json:"subscription_expires_at,omitempty" db:"subscription_expires_at"`
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// EffectiveSubscription downgrades an expired paid plan to free.
func (u *User) EffectiveSubscription(now time.Time) SubscriptionType {
	if u.SubscriptionType != SubscriptionFree && u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(now) {
		return SubscriptionFree
	}
	return u.SubscriptionType
}
