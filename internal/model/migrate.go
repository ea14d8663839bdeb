package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Group{},
		&InviteCode{},
		&Membership{},
		&ReimbursementRequest{},
	); err != nil {
		return err
	}

	// Case-insensitive unique email for non-soft-deleted users.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower " +
			"ON users ((lower(email))) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	// Member count is a cache, but it can never drop below the creating admin.
	return db.Exec(
		"DO $$ BEGIN " +
			"ALTER TABLE company_groups ADD CONSTRAINT chk_company_groups_member_count CHECK (member_count >= 1); " +
			"EXCEPTION WHEN duplicate_object THEN NULL; END $$",
	).Error
}
