package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&School{},
		&User{},
		&Student{},
		&Invitation{},
	); err != nil {
		return err
	}

	// Case-insensitive unique email per school for non-soft-deleted users.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_school_email_lower " +
			"ON users (school_id, (lower(email))) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	// Case-insensitive unique admin email for non-soft-deleted schools.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_schools_email_lower " +
			"ON schools ((lower(email))) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	// At most one active invitation per (school, email, role): the partial
	// index turns the concurrent create-create race into a clean conflict.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_active_unique " +
			"ON invitations (school_id, (lower(email)), role) WHERE status = 'pending'",
	).Error
}
