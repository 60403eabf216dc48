// Package risk scores assessment attempts for dishonest-behavior signals,
// aggregates attempt risk into a per-skill risk index, and suppresses
// measured scores in proportion to that index. Every function here is a pure
// computation over its inputs; persistence and policy live with the caller.
package risk

import (
	"errors"
	"time"

	"talentpassport/internal/scoring"
)

// RiskLevel is the categorical bucket derived from a risk index.
type RiskLevel string

const (
	LevelLow    RiskLevel = "low"
	LevelMedium RiskLevel = "medium"
	LevelHigh   RiskLevel = "high"
)

// Factor keys as they appear in the Factors map and in stored attempt rows.
const (
	FactorTabSwitches         = "tab_switches"
	FactorFocusLosses         = "focus_losses"
	FactorPasteAttempts       = "paste_attempts"
	FactorResponseTimeAnomaly = "response_time_anomaly"
	FactorScoreVariance       = "score_variance"
	FactorIPAnomaly           = "ip_anomaly"
)

// ErrNilTelemetry is returned when the telemetry payload itself is missing.
// Out-of-range values inside a present payload are clamped, never rejected.
var ErrNilTelemetry = errors.New("risk: telemetry is nil")

// QuestionAnswer is the scored outcome of a single question in an attempt.
type QuestionAnswer struct {
	Score               float64 `json:"score"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
}

// AttemptTelemetry is the behavioral record of one timed attempt, produced
// by the assessment UI and consumed exactly once.
type AttemptTelemetry struct {
	TabSwitches   int              `json:"tabSwitches"`
	FocusLosses   int              `json:"focusLosses"`
	PasteAttempts int              `json:"pasteAttempts"`
	Answers       []QuestionAnswer `json:"perQuestionAnswers"`
}

// AttemptRiskResult is the immutable scoring outcome for one attempt. The
// per-factor breakdown is kept for audit and explainability.
type AttemptRiskResult struct {
	RiskIndex int                `json:"riskIndex"`
	RiskLevel RiskLevel          `json:"riskLevel"`
	Factors   map[string]float64 `json:"factors"`
}

// RiskObservation is one historical attempt risk index for a (user, skill)
// pair, used as input to skill-level aggregation.
type RiskObservation struct {
	RiskIndex float64
	Timestamp time.Time
}

// Engine evaluates telemetry against a fixed set of tunables.
type Engine struct {
	cfg scoring.RiskConfig
}

// NewEngine builds an engine from the shared scoring configuration.
func NewEngine(cfg scoring.RiskConfig) *Engine {
	return &Engine{cfg: cfg}
}

// LevelFor buckets a risk index using the configured cut points.
func (e *Engine) LevelFor(riskIndex float64) RiskLevel {
	switch {
	case riskIndex > e.cfg.HighRiskAbove:
		return LevelHigh
	case riskIndex > e.cfg.MediumRiskAbove:
		return LevelMedium
	default:
		return LevelLow
	}
}
