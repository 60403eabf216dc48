// Package leveling is the deterministic reducer behind skill progression:
// XP accumulates eligibility, completed challenges unlock the ceiling, and
// the effective level is the minimum of the two. It deliberately replaces
// the ORM lifecycle hooks of the old implementation with explicit functions
// so the write path stays testable without a database.
package leveling

import (
	"time"

	"talentpassport/internal/scoring"
)

// Status is the verification badge derived from the effective level.
type Status string

const (
	StatusNotVerified Status = "not_verified"
	StatusInProgress  Status = "in_progress"
	StatusVerified    Status = "verified"
	StatusExpert      Status = "expert"
)

var levelLabels = []string{"Unverified", "Basic", "Intermediate", "Advanced", "Expert"}

// Label returns the display name for a level, clamped into range.
func Label(level int) string {
	if level < 0 {
		level = 0
	}
	if level >= len(levelLabels) {
		level = len(levelLabels) - 1
	}
	return levelLabels[level]
}

// State is the reducible portion of a skill progression record.
type State struct {
	XP                    int64
	HighestLevelCompleted int
	Level                 int
	Status                Status
}

// XPDelta is one requested XP mutation.
type XPDelta struct {
	Amount int64
	Reason string
	At     time.Time
}

// XPEvent is the append-only audit record emitted for every applied delta.
type XPEvent struct {
	Amount    int64
	Reason    string
	Timestamp time.Time
}

// Ladder maps cumulative XP onto levels using the shared scoring config.
type Ladder struct {
	thresholds []int64
}

// NewLadder builds a ladder from the leveling section of the scoring config.
func NewLadder(cfg scoring.LevelingConfig) *Ladder {
	return &Ladder{thresholds: cfg.XPThresholds}
}

// MaxLevel is the highest level the ladder can produce.
func (l *Ladder) MaxLevel() int {
	return len(l.thresholds) - 1
}

// LevelForXP returns the highest level whose cumulative threshold the given
// XP meets. This is eligibility only, not the effective level.
func (l *Ladder) LevelForXP(xp int64) int {
	level := 0
	for i, threshold := range l.thresholds {
		if xp >= threshold {
			level = i
		}
	}
	return level
}

// EffectiveLevel caps XP eligibility by the challenge-completion ceiling.
// XP farmed from easy activities can never out-rank the hardest challenge
// the user has actually cleared.
func (l *Ladder) EffectiveLevel(xp int64, highestCompleted int) int {
	implied := l.LevelForXP(xp)
	if highestCompleted < implied {
		return highestCompleted
	}
	return implied
}

// StatusForLevel derives the verification badge from an effective level.
func StatusForLevel(level int) Status {
	switch {
	case level >= 4:
		return StatusExpert
	case level >= 2:
		return StatusVerified
	case level >= 1:
		return StatusInProgress
	default:
		return StatusNotVerified
	}
}

// Apply adds an XP delta (clamping the accumulator at zero), recomputes the
// effective level and status, and emits the audit event the caller must
// append to the skill's history.
func (l *Ladder) Apply(s State, d XPDelta) (State, XPEvent) {
	s.XP += d.Amount
	if s.XP < 0 {
		s.XP = 0
	}
	s = l.reduce(s)

	at := d.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s, XPEvent{Amount: d.Amount, Reason: d.Reason, Timestamp: at}
}

// CompleteChallenge raises the gating ceiling to the achieved level and
// recomputes. The ceiling never goes down; if banked XP already supports the
// new ceiling the level rises immediately.
func (l *Ladder) CompleteChallenge(s State, levelAchieved int) State {
	if levelAchieved > l.MaxLevel() {
		levelAchieved = l.MaxLevel()
	}
	if levelAchieved > s.HighestLevelCompleted {
		s.HighestLevelCompleted = levelAchieved
	}
	return l.reduce(s)
}

func (l *Ladder) reduce(s State) State {
	s.Level = l.EffectiveLevel(s.XP, s.HighestLevelCompleted)
	s.Status = StatusForLevel(s.Level)
	return s
}
