package models

import (
	"strings"
	"time"
)

// SkillProgress is the long-lived per-(user, skill) progression record.
// Level and status are derived by the leveling reducer on every write, never
// set directly. Version backs the optimistic-concurrency loop in the
// repository; two racing updates to the same row cannot silently lose one.
type SkillProgress struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_skill,priority:1"`
	User   User `gorm:"foreignKey:UserID"`

	// Normalized lowercase skill name; see NormalizeSkillName.
	SkillName string `gorm:"not null;uniqueIndex:idx_user_skill,priority:2"`

	XP                    int64 `gorm:"not null;default:0"`
	Level                 int   `gorm:"not null;default:0"`
	HighestLevelCompleted int   `gorm:"not null;default:0"`
	VerifiedStatus        string `gorm:"not null;default:'not_verified'"`

	// Most recently aggregated skill risk index, 0-100.
	RiskScore float64 `gorm:"not null;default:0"`

	Version   int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeSkillName lowercases and trims a skill name so "Go", "go" and
// " GO " identify the same progression record.
func NormalizeSkillName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
