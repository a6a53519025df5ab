package models

import "time"

// Roles a user can hold. Admins manage contests and approve withdrawals,
// students play.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User captures application-facing fields for an authenticated identity.
// Balance is held in currency minor units and is only ever moved through
// the wallet ledger.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	Balance            int64      `json:"balance"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	PasswordHash       string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Subscribed reports whether the user's subscription covers the given instant.
func (u User) Subscribed(at time.Time) bool {
	return u.SubscriptionExpiry != nil && at.Before(*u.SubscriptionExpiry)
}
