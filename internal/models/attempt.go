package models

import (
	"time"

	"github.com/lib/pq"
)

// AttemptRecord is one completed, scored attempt with its anti-cheat
// telemetry and risk breakdown. Rows are written once and never updated;
// they are the audit trail the skill-risk aggregation reads back.
type AttemptRecord struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index:idx_attempt_history,priority:1"`
	User      User `gorm:"foreignKey:UserID"`
	SkillName string `gorm:"not null;index:idx_attempt_history,priority:2"`

	RawScore        float64
	SuppressedScore int

	TabSwitches   int
	FocusLosses   int
	PasteAttempts int

	QuestionScores       pq.Float64Array `gorm:"type:double precision[]"`
	ResponseTimesSeconds pq.Float64Array `gorm:"type:double precision[]"`

	RiskIndex int
	RiskLevel string

	// Per-factor breakdown, one column per factor as returned by the scorer.
	TabSwitchFactor     float64
	FocusLossFactor     float64
	PasteFactor         float64
	ResponseTimeFactor  float64
	ScoreVarianceFactor float64
	IPAnomalyFactor     float64

	CreatedAt time.Time
}
