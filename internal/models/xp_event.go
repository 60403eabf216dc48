package models

import "time"

// XPEvent is the append-only audit log of XP mutations. Rows are never
// updated or deleted; administrative corrections append a compensating
// entry instead.
type XPEvent struct {
	ID              uint `gorm:"primaryKey"`
	SkillProgressID uint `gorm:"not null;index"`
	SkillProgress   SkillProgress `gorm:"foreignKey:SkillProgressID"`

	Amount    int64
	Reason    string
	CreatedAt time.Time
}
