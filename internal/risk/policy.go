// Package risk computes per-account risk assessments from directory data
// and trailing audit activity. Scoring is additive over named signals and
// every weight and threshold lives in a Policy so deployments can tune
// signals independently.
package risk

import (
	"errors"
	"fmt"
	"time"
)

// Score bounds. Scores are clamped into this range after all signals are
// summed.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Policy carries every scoring weight and threshold. Count thresholds are
// exclusive: a signal fires only when the observed count is strictly
// greater than the threshold.
type Policy struct {
	// Account age signals. Both fire for very young accounts: an account
	// under YoungAge contributes YoungWeight and NewishWeight together.
	YoungAge     time.Duration
	YoungWeight  float64
	NewishAge    time.Duration
	NewishWeight float64

	// Failed logins contribute FailedLoginWeight each, capped at
	// FailedLoginCap.
	FailedLoginWeight float64
	FailedLoginCap    float64

	// Spread signals.
	LocationThreshold int
	LocationWeight    float64
	DeviceThreshold   int
	DeviceWeight      float64

	// Login cadence. A gap between consecutive logins is irregular when
	// shorter than ShortGap or longer than LongGap; more than GapThreshold
	// irregular gaps contributes GapWeight.
	ShortGap     time.Duration
	LongGap      time.Duration
	GapThreshold int
	GapWeight    float64

	// Level boundaries, inclusive upper bounds. Scores above HighMax are
	// CRITICAL.
	LowMax    float64
	MediumMax float64
	HighMax   float64

	// ActivityWindow is the trailing window of audit activity considered.
	ActivityWindow time.Duration
}

// DefaultPolicy returns the production scoring table.
func DefaultPolicy() Policy {
	return Policy{
		YoungAge:     30 * 24 * time.Hour,
		YoungWeight:  3,
		NewishAge:    60 * 24 * time.Hour,
		NewishWeight: 2,

		FailedLoginWeight: 0.5,
		FailedLoginCap:    2,

		LocationThreshold: 3,
		LocationWeight:    1,
		DeviceThreshold:   3,
		DeviceWeight:      1,

		ShortGap:     60 * time.Second,
		LongGap:      24 * time.Hour,
		GapThreshold: 2,
		GapWeight:    1,

		LowMax:    2,
		MediumMax: 5,
		HighMax:   7,

		ActivityWindow: 24 * time.Hour,
	}
}

// Validate rejects policies that cannot produce coherent assessments.
func (p Policy) Validate() error {
	for name, w := range map[string]float64{
		"young account":  p.YoungWeight,
		"newish account": p.NewishWeight,
		"failed login":   p.FailedLoginWeight,
		"location":       p.LocationWeight,
		"device":         p.DeviceWeight,
		"gap":            p.GapWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s weight must be non-negative", name)
		}
	}
	if p.FailedLoginCap < 0 {
		return errors.New("failed login cap must be non-negative")
	}
	if p.YoungAge <= 0 || p.NewishAge <= 0 {
		return errors.New("account age cutoffs must be positive")
	}
	if p.YoungAge > p.NewishAge {
		return errors.New("young age cutoff must not exceed newish cutoff")
	}
	if p.LocationThreshold < 0 || p.DeviceThreshold < 0 || p.GapThreshold < 0 {
		return errors.New("count thresholds must be non-negative")
	}
	if p.ShortGap <= 0 || p.LongGap <= p.ShortGap {
		return errors.New("gap bounds must satisfy 0 < short < long")
	}
	if !(p.LowMax < p.MediumMax && p.MediumMax < p.HighMax) {
		return errors.New("level boundaries must ascend")
	}
	if p.HighMax > MaxScore {
		return errors.New("level boundaries must fit the score range")
	}
	if p.ActivityWindow <= 0 {
		return errors.New("activity window must be positive")
	}
	return nil
}

// LevelFor maps a clamped score onto its level.
func (p Policy) LevelFor(score float64) Level {
	switch {
	case score <= p.LowMax:
		return LevelLow
	case score <= p.MediumMax:
		return LevelMedium
	case score <= p.HighMax:
		return LevelHigh
	}
	return LevelCritical
}
