package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserTypeVendor = "vendor"
	UserTypeCouple = "couple"

	StatusActive = "active"
)

// WaitlistEntry is a signup record. Entries are never updated or deleted.
type WaitlistEntry struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"not null;uniqueIndex:idx_waitlist_entries_email"`
	PhoneNumber  string    `gorm:"not null;uniqueIndex:idx_waitlist_entries_phone_number"`
	BusinessName *string   `gorm:"type:varchar(255)"`
	UserType     string    `gorm:"type:varchar(16);not null;index"`
	Status       string    `gorm:"type:varchar(16);not null;default:active"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (e *WaitlistEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	return nil
}

func (e *WaitlistEntry) IsVendor() bool {
	return e.UserType == UserTypeVendor
}
