package models

import (
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	JobDraft    JobStatus = "draft"
	JobActive   JobStatus = "active"
	JobArchived JobStatus = "archived"
)

func (s JobStatus) Valid() bool {
	return s == JobDraft || s == JobActive || s == JobArchived
}

// CanMoveTo reports whether a job may go from s to next. Archived is terminal.
func (s JobStatus) CanMoveTo(next JobStatus) bool {
	switch s {
	case JobDraft:
		return next == JobActive || next == JobArchived
	case JobActive:
		return next == JobArchived
	default:
		return false
	}
}

type Job struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID     string     `gorm:"type:varchar(36);index;not null;<-:create" json:"client_id"`
	Title        string     `gorm:"not null" json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Remote       bool       `json:"remote"`
	Description  string     `gorm:"type:text" json:"description"`
	Requirements string     `gorm:"type:text" json:"requirements"`
	SalaryMin    int64      `json:"salary_min"`
	SalaryMax    int64      `json:"salary_max"`
	Currency     string     `gorm:"type:varchar(8);default:usd" json:"currency"`
	Tier         TierCode   `gorm:"type:varchar(32)" json:"tier"`
	Status       JobStatus  `gorm:"type:varchar(16);index;default:draft" json:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	newID(&j.ID)
	return nil
}
