package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account types stored in admin.admin_type.
const (
	AdminTypeAdmin    = "admin"
	AdminTypeReseller = "reseller"
	AdminTypeClient   = "user"
)

// Admin is any panel account: administrators, resellers and their clients.
// A client row carries the reseller that owns it in CreatedBy.
type Admin struct {
	ID           uint      `json:"admin_id" gorm:"primaryKey;column:admin_id"`
	UUID         string    `json:"uuid" gorm:"uniqueIndex"`
	AdminName    string    `json:"admin_name" gorm:"column:admin_name;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:admin_pass"`
	AdminType    string    `json:"admin_type" gorm:"column:admin_type;index"`
	CreatedBy    uint      `json:"created_by" gorm:"column:created_by;index"`
	Email        string    `json:"email" gorm:"column:email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the historical table name.
func (Admin) TableName() string { return "admin" }

// SetPassword hashes and sets the account password.
func (a *Admin) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the provided password with the stored hash.
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}
