package seed

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"gorm.io/gorm"
)

// DefaultTiers is the job posting catalog.
func DefaultTiers(currency string) []models.Tier {
	return []models.Tier{
		{
			Code:         models.TierConnect,
			Name:         "Connect",
			Description:  "Listed to the Select Circle for 30 days.",
			PriceCents:   50000,
			Currency:     currency,
			DurationDays: 30,
			SortOrder:    1,
		},
		{
			Code:         models.TierPriority,
			Name:         "Priority",
			Description:  "Highlighted to both circles for 60 days.",
			PriceCents:   150000,
			Currency:     currency,
			DurationDays: 60,
			Featured:     true,
			SortOrder:    2,
		},
		{
			Code:         models.TierExclusive,
			Name:         "Exclusive",
			Description:  "Founding Circle first look and 90 days of visibility.",
			PriceCents:   350000,
			Currency:     currency,
			DurationDays: 90,
			SortOrder:    3,
		},
	}
}

// SeedTiers inserts any catalog tier that does not exist yet. Existing rows are left alone
// so prices edited in the database survive restarts.
func SeedTiers(db *gorm.DB, currency string, log logrus.FieldLogger) error {
	for _, tier := range DefaultTiers(currency) {
		var existing models.Tier
		err := db.Where("code = ?", tier.Code).First(&existing).Error
		if err == nil {
			log.WithField("tier", tier.Code).Debug("Tier already exists. Skipping seeding.")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tier := tier
		if err := db.Create(&tier).Error; err != nil {
			return err
		}
		log.WithField("tier", tier.Code).Info("Tier seeded successfully.")
	}
	return nil
}
