package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription mirrors a recurring Stripe subscription of a client.
type Subscription struct {
	ID                   string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID             string     `gorm:"type:varchar(36);index;not null" json:"client_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_subscription_id"`
	StripeCustomerID     string     `gorm:"type:varchar(255)" json:"-"`
	Tier                 TierCode   `gorm:"type:varchar(32)" json:"tier"`
	Status               string     `gorm:"type:varchar(32);index" json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

// Active reports whether the subscription currently entitles the client to publish.
func (s *Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}
