package models

import "time"

// Setting holds per-account notification preferences.
type Setting struct {
	UserID                string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	EmailNotifications    bool      `gorm:"default:true" json:"email_notifications"`
	WhatsAppNotifications bool      `gorm:"column:whatsapp_notifications;default:false" json:"whatsapp_notifications"`
	PushNotifications     bool      `gorm:"default:true" json:"push_notifications"`
	WeeklyDigest          bool      `gorm:"default:false" json:"weekly_digest"`
	Timezone              string    `gorm:"default:UTC" json:"timezone"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func DefaultSetting(userID string) Setting {
	return Setting{
		UserID:             userID,
		EmailNotifications: true,
		PushNotifications:  true,
		Timezone:           "UTC",
	}
}
