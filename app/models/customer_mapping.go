package models

import "time"

// CustomerMapping links an identity-provider user to their Stripe customer.
// One row per user; the Stripe customer ID is immutable once assigned.
type CustomerMapping struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_customer_mappings_user" json:"userId"`
	StripeCustomerID string    `gorm:"type:varchar(191);not null;index" json:"stripeCustomerId"`
	Email            string    `gorm:"type:varchar(200);default:''" json:"email,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
