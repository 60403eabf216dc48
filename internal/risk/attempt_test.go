package risk

import (
	"testing"

	"talentpassport/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEngine() *Engine {
	return NewEngine(scoring.Default().Risk)
}

func TestScoreAttemptNilTelemetry(t *testing.T) {
	_, err := defaultEngine().ScoreAttempt(nil)
	assert.ErrorIs(t, err, ErrNilTelemetry)
}

func TestScoreAttemptEmptyTelemetry(t *testing.T) {
	res, err := defaultEngine().ScoreAttempt(&AttemptTelemetry{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.RiskIndex)
	assert.Equal(t, LevelLow, res.RiskLevel)
	for name, value := range res.Factors {
		assert.Zerof(t, value, "factor %s should be neutral", name)
	}
}

func TestScoreAttemptFactorsAlwaysPresent(t *testing.T) {
	res, err := defaultEngine().ScoreAttempt(&AttemptTelemetry{TabSwitches: 3})
	require.NoError(t, err)

	for _, name := range []string{
		FactorTabSwitches,
		FactorFocusLosses,
		FactorPasteAttempts,
		FactorResponseTimeAnomaly,
		FactorScoreVariance,
		FactorIPAnomaly,
	} {
		assert.Contains(t, res.Factors, name)
	}
	assert.Zero(t, res.Factors[FactorIPAnomaly], "ip anomaly is a reserved stub")
}

func TestTabSwitchBoundaries(t *testing.T) {
	e := defaultEngine()

	cases := []struct {
		switches int
		want     float64
	}{
		{0, 0},
		{2, 0},   // at the low threshold, exactly 0
		{6, 50},  // midpoint of the 2..10 ramp
		{10, 100}, // at the high threshold, exactly 100
		{25, 100}, // saturated
	}
	for _, tc := range cases {
		res, err := e.ScoreAttempt(&AttemptTelemetry{TabSwitches: tc.switches})
		require.NoError(t, err)
		assert.Equalf(t, tc.want, res.Factors[FactorTabSwitches], "tabSwitches=%d", tc.switches)
	}
}

func TestCounterMonotonicity(t *testing.T) {
	e := defaultEngine()

	prev := -1
	for switches := 0; switches <= 15; switches++ {
		res, err := e.ScoreAttempt(&AttemptTelemetry{
			TabSwitches:   switches,
			FocusLosses:   4,
			PasteAttempts: 2,
		})
		require.NoError(t, err)
		assert.GreaterOrEqualf(t, res.RiskIndex, prev, "riskIndex regressed at tabSwitches=%d", switches)
		prev = res.RiskIndex
	}
}

func TestNegativeCountsClampedToZeroRisk(t *testing.T) {
	res, err := defaultEngine().ScoreAttempt(&AttemptTelemetry{
		TabSwitches:   -5,
		FocusLosses:   -1,
		PasteAttempts: -100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.RiskIndex)
	assert.Equal(t, LevelLow, res.RiskLevel)
}

func TestResponseTimeAnomaly(t *testing.T) {
	e := defaultEngine()

	answer := func(seconds float64) QuestionAnswer {
		return QuestionAnswer{Score: 50, ResponseTimeSeconds: seconds}
	}

	cases := []struct {
		name    string
		answers []QuestionAnswer
		want    float64
	}{
		{"no timing data", nil, 0},
		{"near-certain automation", []QuestionAnswer{answer(3), answer(4)}, 90},
		{"ramp start", []QuestionAnswer{answer(5)}, 60},
		{"ramp midpoint", []QuestionAnswer{answer(10)}, 30},
		{"slow is fine", []QuestionAnswer{answer(15)}, 0},
		{"very slow is fine", []QuestionAnswer{answer(120)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.ScoreAttempt(&AttemptTelemetry{Answers: tc.answers})
			require.NoError(t, err)
			assert.InDelta(t, tc.want, res.Factors[FactorResponseTimeAnomaly], 1e-9)
		})
	}
}

func TestScoreVariance(t *testing.T) {
	e := defaultEngine()

	slow := func(score float64) QuestionAnswer {
		return QuestionAnswer{Score: score, ResponseTimeSeconds: 30}
	}

	cases := []struct {
		name    string
		answers []QuestionAnswer
		want    float64
	}{
		{"single answer", []QuestionAnswer{slow(90)}, 0},
		{"tolerated spread", []QuestionAnswer{slow(90), slow(55)}, 0},
		{"spread at floor", []QuestionAnswer{slow(80), slow(40)}, 0},
		{"excess scaled", []QuestionAnswer{slow(90), slow(20)}, 60},
		{"capped at 100", []QuestionAnswer{slow(100), slow(0)}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.ScoreAttempt(&AttemptTelemetry{Answers: tc.answers})
			require.NoError(t, err)
			assert.InDelta(t, tc.want, res.Factors[FactorScoreVariance], 1e-9)
		})
	}
}

// The worked example: saturated tab switching, automation-fast answers and a
// 70-point score spread combine to a medium-risk 45.
func TestScoreAttemptScenario(t *testing.T) {
	res, err := defaultEngine().ScoreAttempt(&AttemptTelemetry{
		TabSwitches:   12,
		FocusLosses:   1,
		PasteAttempts: 0,
		Answers: []QuestionAnswer{
			{Score: 90, ResponseTimeSeconds: 3},
			{Score: 20, ResponseTimeSeconds: 4},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(100), res.Factors[FactorTabSwitches])
	assert.Equal(t, float64(0), res.Factors[FactorFocusLosses])
	assert.Equal(t, float64(0), res.Factors[FactorPasteAttempts])
	assert.Equal(t, float64(90), res.Factors[FactorResponseTimeAnomaly])
	assert.Equal(t, float64(60), res.Factors[FactorScoreVariance])

	assert.Equal(t, 45, res.RiskIndex)
	assert.Equal(t, LevelMedium, res.RiskLevel)
}

func TestRiskLevelCutPoints(t *testing.T) {
	e := defaultEngine()

	assert.Equal(t, LevelLow, e.LevelFor(0))
	assert.Equal(t, LevelLow, e.LevelFor(30))
	assert.Equal(t, LevelMedium, e.LevelFor(31))
	assert.Equal(t, LevelMedium, e.LevelFor(60))
	assert.Equal(t, LevelHigh, e.LevelFor(61))
	assert.Equal(t, LevelHigh, e.LevelFor(100))
}
