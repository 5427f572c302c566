package migrations

import (
	"fmt"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the server uses.
func Migrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
