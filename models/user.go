package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleClient         Role = "client"
	RoleFoundingCircle Role = "founding_circle"
	RoleSelectCircle   Role = "select_circle"
	RoleCandidate      Role = "candidate"
)

var Roles = []Role{RoleClient, RoleFoundingCircle, RoleSelectCircle, RoleCandidate}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Referrer reports whether the role belongs to one of the network circles.
func (r Role) Referrer() bool {
	return r == RoleFoundingCircle || r == RoleSelectCircle
}

type User struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email            string     `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	FullName         string     `json:"full_name"`
	Company          string     `json:"company"`
	Title            string     `json:"title"`
	Phone            string     `json:"phone"`
	LinkedInURL      string     `gorm:"column:linkedin_url" json:"linkedin_url"`
	Role             Role       `gorm:"type:varchar(32);index" json:"role"`
	PasswordHash     string     `json:"-"`
	Verified         bool       `gorm:"default:false" json:"verified"`
	OTP              string     `gorm:"column:otp" json:"-"`
	OTPGeneratedAt   *time.Time `gorm:"column:otp_generated_at" json:"-"`
	OTPAttempts      int        `gorm:"column:otp_attempts;default:0" json:"-"`
	RefreshTokenHash string     `gorm:"index" json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	StripeCustomerID string     `json:"-"`
	PushToken        string     `gorm:"column:push_token" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// VerifiedCandidate reports whether the account may see referrals addressed to its
// email. The address must have been confirmed first.
func (u *User) VerifiedCandidate() bool {
	return u.Role == RoleCandidate && u.Verified && u.Email != ""
}

func (u *User) BeforeCreate(*gorm.DB) error {
	newID(&u.ID)
	return nil
}
