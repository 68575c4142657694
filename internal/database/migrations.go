package database

import (
	"github.com/autohelp/autohelp-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.ServiceCategory{},
		&models.Request{},
		&models.RequestPhoto{},
		&models.Offer{},
		&models.Review{},
		&models.Station{},
	)
	if err != nil {
		return err
	}

	// Update users table
	if db.Migrator().HasTable(&models.User{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS telegram_id text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS rating numeric DEFAULT 0",
			"ADD COLUMN IF NOT EXISTS role text DEFAULT 'driver'",
		}

		for _, column := range columns {
			if err := db.Exec("ALTER TABLE users " + column).Error; err != nil {
				return err
			}
		}

		// Update constraint
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('driver', 'mechanic'))`)
	}

	// At most one accepted offer per request. The lifecycle store's CAS on the
	// request row is the primary guard; this index makes the invariant hold
	// even against writes that bypass the store.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_one_accepted ON offers (request_id) WHERE accepted`).Error; err != nil {
		return err
	}

	// Legacy rows predating the status rename
	if err := db.Exec(`UPDATE requests SET status = 'active' WHERE status = 'in_progress'`).Error; err != nil {
		return err
	}
	db.Exec(`ALTER TABLE requests DROP CONSTRAINT IF EXISTS requests_status_check`)
	db.Exec(`ALTER TABLE requests ADD CONSTRAINT requests_status_check CHECK (status IN ('new', 'active', 'done', 'canceled'))`)

	db.Exec(`ALTER TABLE requests DROP CONSTRAINT IF EXISTS requests_urgency_check`)
	db.Exec(`ALTER TABLE requests ADD CONSTRAINT requests_urgency_check CHECK (urgency IN ('sos', 'planned'))`)

	db.Exec(`ALTER TABLE reviews DROP CONSTRAINT IF EXISTS reviews_rating_check`)
	db.Exec(`ALTER TABLE reviews ADD CONSTRAINT reviews_rating_check CHECK (rating BETWEEN 1 AND 5)`)

	return nil
}
