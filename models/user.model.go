package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the credential record behind one or more course enrollments.
// Accounts are disabled, never hard-deleted.
type User struct {
	gorm.Model
	Name                string     `gorm:"default:''" json:"name"`
	Email               string     `gorm:"unique;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"` // bcrypt hash
	IsEnabled           bool       `gorm:"default:true" json:"is_enabled"`
	LastLogin           time.Time  `gorm:"default:NULL" json:"last_login"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	IsBlocked           bool       `gorm:"default:false" json:"-"`
	BlockedUntil        *time.Time `json:"-"`
}
