package models

import "time"

// User is the identity anchor for skill records. Authentication and profile
// data live in the platform service that owns accounts; this core only needs
// a stable ID to hang progressions off.
type User struct {
	ID          uint `gorm:"primaryKey"`
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
