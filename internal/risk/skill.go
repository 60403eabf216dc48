package risk

import (
	"math"
	"sort"
)

// AggregateSkillRisk folds a (user, skill) pair's historical attempt risk
// indices into one 0-100 index. Entries are weighted by recency with
// geometric decay per step back in time: a recent violation dominates, an old
// one fades but is never fully forgotten.
func (e *Engine) AggregateSkillRisk(history []RiskObservation) float64 {
	switch len(history) {
	case 0:
		return 0
	case 1:
		return clamp(history[0].RiskIndex, 0, 100)
	}

	sorted := make([]RiskObservation, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	var weightedSum, weightTotal float64
	weight := 1.0
	for _, obs := range sorted {
		weightedSum += clamp(obs.RiskIndex, 0, 100) * weight
		weightTotal += weight
		weight *= e.cfg.DecayFactor
	}
	return weightedSum / weightTotal
}

// SuppressScore discounts a measured score by its associated risk. Low-risk
// attempts are trusted at face value; past the tolerance band the credited
// score degrades linearly down to the severe-suppression floor, so there is
// no cliff for adversarial telemetry to sit just under.
func (e *Engine) SuppressScore(rawScore, riskIndex float64) int {
	raw := clamp(rawScore, 0, 100)
	ri := clamp(riskIndex, 0, 100)

	var factor float64
	switch {
	case ri <= e.cfg.SuppressFreeBelow:
		factor = 1
	case ri >= e.cfg.SuppressFloorAbove:
		factor = e.cfg.SuppressFloorFactor
	default:
		band := e.cfg.SuppressFloorAbove - e.cfg.SuppressFreeBelow
		factor = 1 - ((ri-e.cfg.SuppressFreeBelow)/band)*(1-e.cfg.SuppressFloorFactor)
	}

	return int(math.Round(raw * factor))
}
