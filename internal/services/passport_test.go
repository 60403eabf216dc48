package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"talentpassport/internal/database"
	"talentpassport/internal/leveling"
	"talentpassport/internal/models"
	"talentpassport/internal/repository"
	"talentpassport/internal/risk"
	"talentpassport/internal/scoring"
	"talentpassport/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db       *gorm.DB
	user     models.User
	passport *services.PassportService
	updates  chan services.ProgressUpdate
}

type chanObserver struct {
	ch chan services.ProgressUpdate
}

func (o *chanObserver) ProgressUpdated(update services.ProgressUpdate) {
	o.ch <- update
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	user := models.User{Email: "dev@example.com", DisplayName: "Dev"}
	require.NoError(t, db.Create(&user).Error)

	log := zap.NewNop()
	cfg := scoring.Default()

	notifier := services.NewNotifier(log)
	updates := make(chan services.ProgressUpdate, 8)
	notifier.Register(&chanObserver{ch: updates})

	passport := services.NewPassportService(
		log,
		risk.NewEngine(cfg.Risk),
		leveling.NewLadder(cfg.Leveling),
		repository.NewAttemptRepo(db),
		repository.NewSkillProgressRepo(db),
		repository.NewXPEventRepo(db),
		notifier,
	)

	return &fixture{db: db, user: user, passport: passport, updates: updates}
}

func (f *fixture) waitForUpdate(t *testing.T) services.ProgressUpdate {
	t.Helper()

	select {
	case update := <-f.updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("no progress update broadcast")
		return services.ProgressUpdate{}
	}
}

func cleanTelemetry() *risk.AttemptTelemetry {
	return &risk.AttemptTelemetry{
		Answers: []risk.QuestionAnswer{
			{Score: 82, ResponseTimeSeconds: 40},
			{Score: 78, ResponseTimeSeconds: 55},
		},
	}
}

func TestCompleteAttemptCleanRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID:          f.user.ID,
		SkillName:       "Go",
		RawScore:        80,
		XPAward:         120,
		XPReason:        "challenge_completed",
		ChallengePassed: true,
		ChallengeLevel:  1,
		Telemetry:       cleanTelemetry(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, out.AttemptRisk.RiskIndex)
	assert.Equal(t, risk.LevelLow, out.AttemptRisk.RiskLevel)
	assert.Zero(t, out.SkillRisk)
	assert.Equal(t, 80, out.SuppressedScore, "no suppression at zero risk")

	assert.Equal(t, "go", out.Progress.SkillName)
	assert.Equal(t, int64(120), out.Progress.XP)
	assert.Equal(t, 1, out.Progress.Level)
	assert.Equal(t, "in_progress", out.Progress.VerifiedStatus)

	// Attempt row persisted, immutable audit trail.
	var attempts []models.AttemptRecord
	require.NoError(t, f.db.Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.Equal(t, 0, attempts[0].RiskIndex)
	assert.Equal(t, float64(80), attempts[0].RawScore)

	// XP audit entry appended.
	var events []models.XPEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, int64(120), events[0].Amount)
	assert.Equal(t, "challenge_completed", events[0].Reason)

	update := f.waitForUpdate(t)
	assert.Equal(t, f.user.ID, update.UserID)
	assert.Equal(t, "go", update.SkillName)
	assert.Equal(t, 1, update.Level)
	assert.Equal(t, "Basic", update.LevelLabel)
}

func TestCompleteAttemptXPAloneCannotLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID:    f.user.ID,
		SkillName: "go",
		RawScore:  95,
		XPAward:   1000,
		XPReason:  "bulk_easy_attempts",
		Telemetry: cleanTelemetry(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), out.Progress.XP)
	assert.Equal(t, 0, out.Progress.Level, "no gating challenge cleared")
	assert.Equal(t, "not_verified", out.Progress.VerifiedStatus)
}

func TestCompleteAttemptRiskyTelemetrySuppressesScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID:    f.user.ID,
		SkillName: "go",
		RawScore:  80,
		XPAward:   50,
		XPReason:  "challenge_completed",
		Telemetry: &risk.AttemptTelemetry{
			TabSwitches:   12,
			FocusLosses:   1,
			PasteAttempts: 0,
			Answers: []risk.QuestionAnswer{
				{Score: 90, ResponseTimeSeconds: 3},
				{Score: 20, ResponseTimeSeconds: 4},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 45, out.AttemptRisk.RiskIndex)
	assert.Equal(t, risk.LevelMedium, out.AttemptRisk.RiskLevel)

	// Single attempt, so the aggregate equals the attempt index and the
	// credited score degrades along the linear band.
	assert.Equal(t, float64(45), out.SkillRisk)
	assert.Equal(t, 57, out.SuppressedScore)
	assert.Equal(t, float64(45), out.Progress.RiskScore)
}

func TestCompleteAttemptNilTelemetry(t *testing.T) {
	f := newFixture(t)

	_, err := f.passport.CompleteAttempt(context.Background(), services.AttemptInput{
		UserID:    f.user.ID,
		SkillName: "go",
	})
	assert.ErrorIs(t, err, risk.ErrNilTelemetry)

	var count int64
	require.NoError(t, f.db.Model(&models.AttemptRecord{}).Count(&count).Error)
	assert.Zero(t, count, "nothing persisted for a rejected payload")
}

func TestCompleteAttemptAggregatesAcrossHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	risky := &risk.AttemptTelemetry{
		TabSwitches:   12,
		PasteAttempts: 6,
		FocusLosses:   14,
		Answers: []risk.QuestionAnswer{
			{Score: 95, ResponseTimeSeconds: 2},
			{Score: 10, ResponseTimeSeconds: 2},
		},
	}

	_, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID: f.user.ID, SkillName: "go", RawScore: 90, XPAward: 50, XPReason: "a", Telemetry: risky,
	})
	require.NoError(t, err)

	out, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID: f.user.ID, SkillName: "go", RawScore: 90, XPAward: 50, XPReason: "b", Telemetry: cleanTelemetry(),
	})
	require.NoError(t, err)

	// The clean attempt scores zero itself, but the earlier violation still
	// weighs into the aggregate without dominating it.
	assert.Zero(t, out.AttemptRisk.RiskIndex)
	assert.Greater(t, out.SkillRisk, float64(0))
	assert.Less(t, out.SkillRisk, float64(88), "decayed below the risky attempt's own index")
}

func TestRefreshSkillRisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.passport.CompleteAttempt(ctx, services.AttemptInput{
		UserID: f.user.ID, SkillName: "go", RawScore: 70, XPAward: 50, XPReason: "a",
		Telemetry: &risk.AttemptTelemetry{TabSwitches: 20, PasteAttempts: 9},
	})
	require.NoError(t, err)

	sp, err := f.passport.RefreshSkillRisk(ctx, f.user.ID, "go")
	require.NoError(t, err)
	assert.Greater(t, sp.RiskScore, float64(0))

	// Refresh is risk-only; XP and level are untouched.
	assert.Equal(t, int64(50), sp.XP)
	assert.Equal(t, 0, sp.Level)
}
