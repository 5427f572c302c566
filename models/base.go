package models

import "github.com/google/uuid"

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All returns every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Setting{},
		&Tier{},
		&Job{},
		&Candidate{},
		&Referral{},
		&PaymentTransaction{},
		&Subscription{},
		&Notification{},
	}
}
