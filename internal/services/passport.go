package services

import (
	"context"
	"fmt"
	"time"

	"talentpassport/internal/leveling"
	"talentpassport/internal/models"
	"talentpassport/internal/repository"
	"talentpassport/internal/risk"

	"go.uber.org/zap"
)

// PassportService orchestrates the talent-passport pipeline: attempt
// telemetry is scored for risk, the attempt is persisted, skill risk is
// re-aggregated over the full history, the measured score is suppressed, and
// the XP award flows through the leveling reducer into the progression
// record. Interested observers are notified after every mutation.
type PassportService struct {
	log      *zap.Logger
	engine   *risk.Engine
	ladder   *leveling.Ladder
	attempts *repository.AttemptRepo
	progress *repository.SkillProgressRepo
	xpEvents *repository.XPEventRepo
	notifier *Notifier
}

func NewPassportService(
	log *zap.Logger,
	engine *risk.Engine,
	ladder *leveling.Ladder,
	attempts *repository.AttemptRepo,
	progress *repository.SkillProgressRepo,
	xpEvents *repository.XPEventRepo,
	notifier *Notifier,
) *PassportService {
	return &PassportService{
		log:      log,
		engine:   engine,
		ladder:   ladder,
		attempts: attempts,
		progress: progress,
		xpEvents: xpEvents,
		notifier: notifier,
	}
}

// AttemptInput is everything the assessment subsystem hands over when an
// attempt is marked complete.
type AttemptInput struct {
	UserID    uint
	SkillName string

	// Measured skill score for the attempt, 0-100, before suppression.
	RawScore float64

	// XP credited for the completed activity. Callers only award positive
	// amounts; the reducer clamps regardless.
	XPAward  int64
	XPReason string

	// Set when this attempt cleared a level-gated challenge, raising the
	// user's gating ceiling to ChallengeLevel.
	ChallengePassed bool
	ChallengeLevel  int

	Telemetry *risk.AttemptTelemetry
}

// AttemptOutcome is returned to the caller so it can persist flags, queue
// reviews, and decide whether to broadcast further.
type AttemptOutcome struct {
	AttemptRisk     *risk.AttemptRiskResult
	SkillRisk       float64
	SuppressedScore int
	Progress        *models.SkillProgress
}

// CompleteAttempt runs the full pipeline for one completed attempt.
func (s *PassportService) CompleteAttempt(ctx context.Context, in AttemptInput) (*AttemptOutcome, error) {
	result, err := s.engine.ScoreAttempt(in.Telemetry)
	if err != nil {
		// Malformed shape is a programmer error on the producing side; the
		// caller decides whether to zero-risk the attempt or drop it.
		return nil, fmt.Errorf("scoring attempt for user %d skill %q: %w", in.UserID, in.SkillName, err)
	}

	rec := buildAttemptRecord(in, result, s.engine)
	if err := s.attempts.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving attempt: %w", err)
	}

	history, err := s.attempts.RiskHistory(ctx, in.UserID, in.SkillName)
	if err != nil {
		return nil, fmt.Errorf("loading risk history: %w", err)
	}
	skillRisk := s.engine.AggregateSkillRisk(history)
	suppressed := s.engine.SuppressScore(in.RawScore, skillRisk)

	var audit leveling.XPEvent
	sp, err := s.progress.UpdateOptimistic(ctx, in.UserID, in.SkillName, func(sp *models.SkillProgress) error {
		state := stateOf(sp)
		if in.ChallengePassed {
			state = s.ladder.CompleteChallenge(state, in.ChallengeLevel)
		}
		state, audit = s.ladder.Apply(state, leveling.XPDelta{
			Amount: in.XPAward,
			Reason: in.XPReason,
			At:     time.Now().UTC(),
		})
		applyState(sp, state)
		sp.RiskScore = skillRisk
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating skill progress: %w", err)
	}

	if err := s.xpEvents.Append(ctx, &models.XPEvent{
		SkillProgressID: sp.ID,
		Amount:          audit.Amount,
		Reason:          audit.Reason,
		CreatedAt:       audit.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("appending xp event: %w", err)
	}

	s.log.Info("Attempt completed",
		zap.Uint("userID", in.UserID),
		zap.String("skill", sp.SkillName),
		zap.Int("riskIndex", result.RiskIndex),
		zap.String("riskLevel", string(result.RiskLevel)),
		zap.Float64("skillRisk", skillRisk),
		zap.Int("suppressedScore", suppressed),
		zap.Int("level", sp.Level),
	)

	s.notifier.Broadcast(progressUpdateOf(sp, suppressed))

	return &AttemptOutcome{
		AttemptRisk:     result,
		SkillRisk:       skillRisk,
		SuppressedScore: suppressed,
		Progress:        sp,
	}, nil
}

// RefreshSkillRisk re-aggregates the stored risk history for one progression
// record. Used by the periodic refresh job; levels and XP are untouched.
func (s *PassportService) RefreshSkillRisk(ctx context.Context, userID uint, skillName string) (*models.SkillProgress, error) {
	history, err := s.attempts.RiskHistory(ctx, userID, skillName)
	if err != nil {
		return nil, fmt.Errorf("loading risk history: %w", err)
	}
	skillRisk := s.engine.AggregateSkillRisk(history)

	sp, err := s.progress.UpdateOptimistic(ctx, userID, skillName, func(sp *models.SkillProgress) error {
		sp.RiskScore = skillRisk
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating skill progress: %w", err)
	}

	s.notifier.Broadcast(progressUpdateOf(sp, 0))
	return sp, nil
}

func buildAttemptRecord(in AttemptInput, result *risk.AttemptRiskResult, engine *risk.Engine) *models.AttemptRecord {
	t := in.Telemetry

	scores := make([]float64, len(t.Answers))
	times := make([]float64, len(t.Answers))
	for i, a := range t.Answers {
		scores[i] = a.Score
		times[i] = a.ResponseTimeSeconds
	}

	return &models.AttemptRecord{
		UserID:    in.UserID,
		SkillName: in.SkillName,
		RawScore:  in.RawScore,
		// Suppressed against the attempt's own risk, for the audit row; the
		// progression update uses the aggregated skill risk instead.
		SuppressedScore: engine.SuppressScore(in.RawScore, float64(result.RiskIndex)),

		TabSwitches:   t.TabSwitches,
		FocusLosses:   t.FocusLosses,
		PasteAttempts: t.PasteAttempts,

		QuestionScores:       scores,
		ResponseTimesSeconds: times,

		RiskIndex: result.RiskIndex,
		RiskLevel: string(result.RiskLevel),

		TabSwitchFactor:     result.Factors[risk.FactorTabSwitches],
		FocusLossFactor:     result.Factors[risk.FactorFocusLosses],
		PasteFactor:         result.Factors[risk.FactorPasteAttempts],
		ResponseTimeFactor:  result.Factors[risk.FactorResponseTimeAnomaly],
		ScoreVarianceFactor: result.Factors[risk.FactorScoreVariance],
		IPAnomalyFactor:     result.Factors[risk.FactorIPAnomaly],
	}
}

func stateOf(sp *models.SkillProgress) leveling.State {
	return leveling.State{
		XP:                    sp.XP,
		HighestLevelCompleted: sp.HighestLevelCompleted,
		Level:                 sp.Level,
		Status:                leveling.Status(sp.VerifiedStatus),
	}
}

func applyState(sp *models.SkillProgress, state leveling.State) {
	sp.XP = state.XP
	sp.HighestLevelCompleted = state.HighestLevelCompleted
	sp.Level = state.Level
	sp.VerifiedStatus = string(state.Status)
}

func progressUpdateOf(sp *models.SkillProgress, suppressed int) ProgressUpdate {
	return ProgressUpdate{
		UserID:          sp.UserID,
		SkillName:       sp.SkillName,
		XP:              sp.XP,
		Level:           sp.Level,
		LevelLabel:      leveling.Label(sp.Level),
		VerifiedStatus:  sp.VerifiedStatus,
		RiskScore:       sp.RiskScore,
		SuppressedScore: suppressed,
	}
}
