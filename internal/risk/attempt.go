package risk

import "math"

// ScoreAttempt computes the 0-100 risk index and level for one completed
// attempt. Out-of-domain values (negative counts, scores outside 0-100,
// negative response times) are clamped rather than rejected; the only error
// is a missing payload. Empty telemetry scores as zero risk.
func (e *Engine) ScoreAttempt(t *AttemptTelemetry) (*AttemptRiskResult, error) {
	if t == nil {
		return nil, ErrNilTelemetry
	}

	factors := map[string]float64{
		FactorTabSwitches:         e.cfg.TabSwitchRamp.Normalize(clampCount(t.TabSwitches)),
		FactorFocusLosses:         e.cfg.FocusLossRamp.Normalize(clampCount(t.FocusLosses)),
		FactorPasteAttempts:       e.cfg.PasteRamp.Normalize(clampCount(t.PasteAttempts)),
		FactorResponseTimeAnomaly: e.responseTimeAnomaly(t.Answers),
		FactorScoreVariance:       e.scoreVariance(t.Answers),
		// Reserved for multi-IP session detection; always 0 for now. The key
		// is still emitted so stored factor breakdowns keep a stable shape.
		FactorIPAnomaly: 0,
	}

	w := e.cfg.Weights
	weighted := factors[FactorTabSwitches]*w.TabSwitches +
		factors[FactorFocusLosses]*w.FocusLosses +
		factors[FactorPasteAttempts]*w.PasteAttempts +
		factors[FactorResponseTimeAnomaly]*w.ResponseTimeAnomaly +
		factors[FactorScoreVariance]*w.ScoreVariance +
		factors[FactorIPAnomaly]*w.IPAnomaly

	index := int(math.Round(clamp(weighted, 0, 100)))

	return &AttemptRiskResult{
		RiskIndex: index,
		RiskLevel: e.LevelFor(float64(index)),
		Factors:   factors,
	}, nil
}

// responseTimeAnomaly flags implausibly fast answering. An average response
// time under the fast threshold is near-certain automation or lookup; between
// the fast and slow thresholds the signal ramps down to zero. No timing data
// contributes no risk.
func (e *Engine) responseTimeAnomaly(answers []QuestionAnswer) float64 {
	if len(answers) == 0 {
		return 0
	}

	var total float64
	for _, a := range answers {
		total += clamp(a.ResponseTimeSeconds, 0, math.MaxFloat64)
	}
	avg := total / float64(len(answers))

	switch {
	case avg < e.cfg.FastAnswerSeconds:
		return e.cfg.FastAnswerRisk
	case avg < e.cfg.SlowAnswerSeconds:
		span := e.cfg.SlowAnswerSeconds - e.cfg.FastAnswerSeconds
		return e.cfg.ModerateAnswerRisk * (e.cfg.SlowAnswerSeconds - avg) / span
	default:
		return 0
	}
}

// scoreVariance flags wildly inconsistent per-question performance, which
// suggests selective outside help. Spreads within the tolerated floor are
// normal; the excess is scaled and capped at 100.
func (e *Engine) scoreVariance(answers []QuestionAnswer) float64 {
	if len(answers) < 2 {
		return 0
	}

	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, a := range answers {
		s := clamp(a.Score, 0, 100)
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	spread := hi - lo
	if spread <= e.cfg.VarianceFloor {
		return 0
	}
	return math.Min(100, (spread-e.cfg.VarianceFloor)*e.cfg.VarianceScale)
}

func clampCount(n int) float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
