package models

import "time"

type TierCode string

const (
	TierConnect   TierCode = "connect"
	TierPriority  TierCode = "priority"
	TierExclusive TierCode = "exclusive"
)

func (t TierCode) Valid() bool {
	return t == TierConnect || t == TierPriority || t == TierExclusive
}

// Tier is a job posting level in the pricing catalog.
type Tier struct {
	Code          TierCode  `gorm:"type:varchar(32);primaryKey" json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PriceCents    int64     `json:"price_cents"`
	Currency      string    `gorm:"type:varchar(8)" json:"currency"`
	DurationDays  int       `json:"duration_days"`
	StripePriceID string    `json:"-"`
	Featured      bool      `json:"featured"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
}
