// Package scoring is the single source of truth for every tunable shared by
// the risk engine and the leveling model. Both subsystems are constructed
// from the same Config so their constants cannot drift apart independently.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Ramp describes a linear normalization ramp: a count at or below Low
// contributes 0 risk, a count at or above High contributes 100, and values
// in between scale linearly.
type Ramp struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Normalize maps a raw event count onto the 0-100 ramp.
func (r Ramp) Normalize(count float64) float64 {
	if count <= r.Low {
		return 0
	}
	if count >= r.High {
		return 100
	}
	return (count - r.Low) / (r.High - r.Low) * 100
}

// FactorWeights holds the relative weight of each risk factor. The weights
// must sum to 1.
type FactorWeights struct {
	TabSwitches         float64 `yaml:"tab_switches"`
	FocusLosses         float64 `yaml:"focus_losses"`
	PasteAttempts       float64 `yaml:"paste_attempts"`
	ResponseTimeAnomaly float64 `yaml:"response_time_anomaly"`
	ScoreVariance       float64 `yaml:"score_variance"`
	IPAnomaly           float64 `yaml:"ip_anomaly"`
}

// RiskConfig holds the tunables of the attempt scorer, the skill-risk
// aggregator and the score suppressor.
type RiskConfig struct {
	Weights       FactorWeights `yaml:"weights"`
	TabSwitchRamp Ramp          `yaml:"tab_switch_ramp"`
	FocusLossRamp Ramp          `yaml:"focus_loss_ramp"`
	PasteRamp     Ramp          `yaml:"paste_ramp"`

	// Response-time anomaly: an average answer time below FastAnswerSeconds
	// scores FastAnswerRisk; between Fast and Slow the score ramps from
	// ModerateAnswerRisk down to 0.
	FastAnswerSeconds  float64 `yaml:"fast_answer_seconds"`
	SlowAnswerSeconds  float64 `yaml:"slow_answer_seconds"`
	FastAnswerRisk     float64 `yaml:"fast_answer_risk"`
	ModerateAnswerRisk float64 `yaml:"moderate_answer_risk"`

	// Score variance: spreads up to VarianceFloor points are tolerated, the
	// excess is multiplied by VarianceScale and capped at 100.
	VarianceFloor float64 `yaml:"variance_floor"`
	VarianceScale float64 `yaml:"variance_scale"`

	// Risk level cut points on the final 0-100 index.
	HighRiskAbove   float64 `yaml:"high_risk_above"`
	MediumRiskAbove float64 `yaml:"medium_risk_above"`

	// Geometric decay per step back in time when aggregating attempt risk
	// into a skill risk index.
	DecayFactor float64 `yaml:"decay_factor"`

	// Suppression band: no suppression at or below SuppressFreeBelow, the
	// SuppressFloorFactor multiplier at or above SuppressFloorAbove, linear
	// interpolation in between.
	SuppressFreeBelow   float64 `yaml:"suppress_free_below"`
	SuppressFloorAbove  float64 `yaml:"suppress_floor_above"`
	SuppressFloorFactor float64 `yaml:"suppress_floor_factor"`
}

// LevelingConfig holds the cumulative XP required for each level 0-4.
type LevelingConfig struct {
	XPThresholds []int64 `yaml:"xp_thresholds"`
}

// Config is the top-level scoring configuration.
type Config struct {
	Risk     RiskConfig     `yaml:"risk"`
	Leveling LevelingConfig `yaml:"leveling"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Risk: RiskConfig{
			Weights: FactorWeights{
				TabSwitches:         0.25,
				FocusLosses:         0.20,
				PasteAttempts:       0.20,
				ResponseTimeAnomaly: 0.15,
				ScoreVariance:       0.10,
				IPAnomaly:           0.10,
			},
			TabSwitchRamp:       Ramp{Low: 2, High: 10},
			FocusLossRamp:       Ramp{Low: 3, High: 12},
			PasteRamp:           Ramp{Low: 1, High: 5},
			FastAnswerSeconds:   5,
			SlowAnswerSeconds:   15,
			FastAnswerRisk:      90,
			ModerateAnswerRisk:  60,
			VarianceFloor:       40,
			VarianceScale:       2,
			HighRiskAbove:       60,
			MediumRiskAbove:     30,
			DecayFactor:         0.7,
			SuppressFreeBelow:   20,
			SuppressFloorAbove:  80,
			SuppressFloorFactor: 0.3,
		},
		Leveling: LevelingConfig{
			XPThresholds: []int64{0, 100, 300, 600, 1000},
		},
	}
}

// Load reads a YAML override file on top of the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read scoring file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal scoring YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make the engines misbehave.
func (c Config) Validate() error {
	w := c.Risk.Weights
	sum := w.TabSwitches + w.FocusLosses + w.PasteAttempts +
		w.ResponseTimeAnomaly + w.ScoreVariance + w.IPAnomaly
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("risk factor weights sum to %.4f, want 1.0", sum)
	}

	for _, ramp := range []struct {
		name string
		r    Ramp
	}{
		{"tab_switch_ramp", c.Risk.TabSwitchRamp},
		{"focus_loss_ramp", c.Risk.FocusLossRamp},
		{"paste_ramp", c.Risk.PasteRamp},
	} {
		if ramp.r.Low >= ramp.r.High {
			return fmt.Errorf("%s: low threshold %.1f must be below high %.1f", ramp.name, ramp.r.Low, ramp.r.High)
		}
	}

	if c.Risk.FastAnswerSeconds >= c.Risk.SlowAnswerSeconds {
		return fmt.Errorf("fast_answer_seconds %.1f must be below slow_answer_seconds %.1f",
			c.Risk.FastAnswerSeconds, c.Risk.SlowAnswerSeconds)
	}
	if c.Risk.MediumRiskAbove >= c.Risk.HighRiskAbove {
		return fmt.Errorf("medium_risk_above %.1f must be below high_risk_above %.1f",
			c.Risk.MediumRiskAbove, c.Risk.HighRiskAbove)
	}
	if c.Risk.DecayFactor <= 0 || c.Risk.DecayFactor >= 1 {
		return fmt.Errorf("decay_factor %.2f must be in (0, 1)", c.Risk.DecayFactor)
	}
	if c.Risk.SuppressFreeBelow >= c.Risk.SuppressFloorAbove {
		return fmt.Errorf("suppress_free_below %.1f must be below suppress_floor_above %.1f",
			c.Risk.SuppressFreeBelow, c.Risk.SuppressFloorAbove)
	}

	if len(c.Leveling.XPThresholds) < 2 {
		return fmt.Errorf("leveling needs at least 2 xp thresholds, got %d", len(c.Leveling.XPThresholds))
	}
	if c.Leveling.XPThresholds[0] != 0 {
		return fmt.Errorf("first xp threshold must be 0, got %d", c.Leveling.XPThresholds[0])
	}
	for i := 1; i < len(c.Leveling.XPThresholds); i++ {
		if c.Leveling.XPThresholds[i] <= c.Leveling.XPThresholds[i-1] {
			return fmt.Errorf("xp thresholds must be strictly increasing, got %v", c.Leveling.XPThresholds)
		}
	}
	return nil
}
