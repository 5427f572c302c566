package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// PaymentTransaction mirrors a one-time Stripe checkout session for a job posting.
type PaymentTransaction struct {
	ID                    string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID              string        `gorm:"type:varchar(36);index;not null" json:"client_id"`
	JobID                 string        `gorm:"type:varchar(36);index" json:"job_id"`
	Tier                  TierCode      `gorm:"type:varchar(32)" json:"tier"`
	StripeSessionID       string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_session_id"`
	StripePaymentIntentID string        `gorm:"type:varchar(255)" json:"stripe_payment_intent_id,omitempty"`
	Amount                int64         `json:"amount"`
	Currency              string        `gorm:"type:varchar(8)" json:"currency"`
	Status                PaymentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	return nil
}
