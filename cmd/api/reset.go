package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/models"
)

// resetPassword sets a new password for the named account and clears the
// throttle records so a locked-out administrator can log in again.
func resetPassword(db *gorm.DB, adminName, password string) error {
	var admin models.Admin
	if err := db.Where("admin_name = ?", adminName).First(&admin).Error; err != nil {
		return fmt.Errorf("account %s: %w", adminName, err)
	}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&admin).Update("admin_pass", admin.PasswordHash).Error; err != nil {
			return err
		}
		return tx.Where("user_name IS NULL").Delete(&models.LoginAttempt{}).Error
	})
}
