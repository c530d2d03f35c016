package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Admin is an administrator account for the management surface.
type Admin struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string // bcrypt hash
	CreatedAt time.Time
}

func (a *Admin) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password))
	return err == nil
}
