package models

import (
	"time"

	"gorm.io/gorm"
)

// Candidate is a profile keyed by email, shared by every referral of that person.
type Candidate struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	LinkedInURL string    `gorm:"column:linkedin_url" json:"linkedin_url"`
	UserID      *string   `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	ResumePath  string    `json:"resume_path,omitempty"`
	ResumeText  string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Candidate) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}
