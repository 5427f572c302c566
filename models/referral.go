package models

import (
	"time"

	"gorm.io/gorm"
)

type ReferralStatus string

const (
	StatusSubmitted    ReferralStatus = "submitted"
	StatusReviewed     ReferralStatus = "reviewed"
	StatusShortlisted  ReferralStatus = "shortlisted"
	StatusInterviewing ReferralStatus = "interviewing"
	StatusHired        ReferralStatus = "hired"
	StatusRejected     ReferralStatus = "rejected"
)

type Referral struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	JobID             string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_referral_job_email;<-:create" json:"job_id"`
	ReferrerID        string         `gorm:"type:varchar(36);index;not null;<-:create" json:"referrer_id"`
	CandidateID       string         `gorm:"type:varchar(36);index" json:"candidate_id"`
	CandidateEmail    string         `gorm:"type:varchar(320);not null;uniqueIndex:idx_referral_job_email" json:"candidate_email"`
	CandidateName     string         `json:"candidate_name"`
	CandidatePhone    string         `json:"candidate_phone"`
	CandidateLinkedIn string         `gorm:"column:candidate_linkedin" json:"candidate_linkedin"`
	Notes             string         `gorm:"type:text" json:"notes"`
	ResumePath        string         `json:"resume_path,omitempty"`
	Status            ReferralStatus `gorm:"type:varchar(16);index;default:submitted" json:"status"`
	RejectedFrom      ReferralStatus `gorm:"type:varchar(16)" json:"rejected_from,omitempty"`
	StatusChangedAt   time.Time      `json:"status_changed_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Job *Job `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

func (r *Referral) BeforeCreate(*gorm.DB) error {
	newID(&r.ID)
	if r.Status == "" {
		r.Status = StatusSubmitted
	}
	if r.StatusChangedAt.IsZero() {
		r.StatusChangedAt = time.Now()
	}
	return nil
}
