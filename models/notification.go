package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Kind      string     `gorm:"type:varchar(64)" json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Data      string     `gorm:"type:text" json:"data"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	newID(&n.ID)
	return nil
}
