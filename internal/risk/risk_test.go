package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/audit"
)

func day(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestEvaluate_AccountAgeStacks(t *testing.T) {
	p := DefaultPolicy()

	// A 10-day-old account with no activity trips both age signals: 3 + 2.
	score, factors := p.Evaluate(Signals{AccountAge: day(10), AccountAgeDays: 10})
	assert.Equal(t, 5.0, score)
	assert.Equal(t, LevelMedium, p.LevelFor(score))
	require.Len(t, factors, 2)
	assert.Equal(t, "young_account", factors[0].Name)
	assert.Equal(t, "new_account", factors[1].Name)

	// 45 days: only the under-60 signal.
	score, factors = p.Evaluate(Signals{AccountAge: day(45)})
	assert.Equal(t, 2.0, score)
	require.Len(t, factors, 1)
	assert.Equal(t, "new_account", factors[0].Name)

	// 90 days: no age contribution at all.
	score, factors = p.Evaluate(Signals{AccountAge: day(90)})
	assert.Zero(t, score)
	assert.Empty(t, factors)
	assert.Equal(t, LevelLow, p.LevelFor(score))
}

func TestEvaluate_FailedLoginsCapped(t *testing.T) {
	p := DefaultPolicy()
	base := Signals{AccountAge: day(90)}

	tests := []struct {
		failed int
		want   float64
	}{
		{0, 0},
		{1, 0.5},
		{3, 1.5},
		{4, 2},
		{5, 2},
		{100, 2},
	}
	for _, tt := range tests {
		s := base
		s.FailedLogins = tt.failed
		score, _ := p.Evaluate(s)
		assert.Equal(t, tt.want, score, "failed=%d", tt.failed)
	}
}

func TestEvaluate_SpreadThresholdsAreExclusive(t *testing.T) {
	p := DefaultPolicy()
	base := Signals{AccountAge: day(90)}

	s := base
	s.DistinctLocations = 3
	score, _ := p.Evaluate(s)
	assert.Zero(t, score, "exactly 3 locations must not fire")

	s.DistinctLocations = 4
	score, factors := p.Evaluate(s)
	assert.Equal(t, 1.0, score)
	require.Len(t, factors, 1)
	assert.Equal(t, "location_spread", factors[0].Name)

	s = base
	s.DistinctDevices = 4
	score, _ = p.Evaluate(s)
	assert.Equal(t, 1.0, score)

	s = base
	s.IrregularGaps = 2
	score, _ = p.Evaluate(s)
	assert.Zero(t, score, "exactly 2 irregular gaps must not fire")

	s.IrregularGaps = 3
	score, _ = p.Evaluate(s)
	assert.Equal(t, 1.0, score)
}

func TestEvaluate_ClampsToRange(t *testing.T) {
	p := DefaultPolicy()
	p.YoungWeight = 50

	score, _ := p.Evaluate(Signals{AccountAge: day(1)})
	assert.Equal(t, MaxScore, score)
}

func TestEvaluate_MaxDefaultSignalsFillTheRange(t *testing.T) {
	p := DefaultPolicy()
	score, factors := p.Evaluate(Signals{
		AccountAge:        day(1),
		FailedLogins:      10,
		DistinctLocations: 5,
		DistinctDevices:   5,
		IrregularGaps:     4,
	})
	assert.Equal(t, 10.0, score)
	assert.Equal(t, LevelCritical, p.LevelFor(score))
	assert.Len(t, factors, 6)
}

func TestLevelFor_Boundaries(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{2, LevelLow},
		{2.5, LevelMedium},
		{5, LevelMedium},
		{5.5, LevelHigh},
		{7, LevelHigh},
		{7.5, LevelCritical},
		{10, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.LevelFor(tt.score), "score=%v", tt.score)
	}

	// Monotonic: levels never decrease as the score rises.
	prev := LevelLow
	for score := 0.0; score <= 10.0; score += 0.25 {
		level := p.LevelFor(score)
		assert.True(t, level.AtLeast(prev),
			"level regressed at score %v", score)
		prev = level
	}
}

func TestCountIrregularGaps(t *testing.T) {
	p := DefaultPolicy()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	t.Run("boundaries are exclusive", func(t *testing.T) {
		// Exactly 60s and exactly 24h are regular.
		times := []time.Time{
			base,
			base.Add(60 * time.Second),
			base.Add(60*time.Second + 24*time.Hour),
		}
		assert.Zero(t, countIrregularGaps(times, p.ShortGap, p.LongGap))
	})

	t.Run("counts short and long gaps", func(t *testing.T) {
		times := []time.Time{
			base,
			base.Add(10 * time.Second), // short
			base.Add(20 * time.Second), // short
			base.Add(30 * time.Hour),   // long
			base.Add(31 * time.Hour),   // regular
		}
		assert.Equal(t, 3, countIrregularGaps(times, p.ShortGap, p.LongGap))
	})

	t.Run("unsorted input", func(t *testing.T) {
		times := []time.Time{
			base.Add(30 * time.Hour),
			base,
			base.Add(10 * time.Second),
		}
		assert.Equal(t, 2, countIrregularGaps(times, p.ShortGap, p.LongGap))
	})

	t.Run("fewer than two logins", func(t *testing.T) {
		assert.Zero(t, countIrregularGaps(nil, p.ShortGap, p.LongGap))
		assert.Zero(t, countIrregularGaps([]time.Time{base}, p.ShortGap, p.LongGap))
	})
}

func TestBuildSignals(t *testing.T) {
	p := DefaultPolicy()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	entries := []audit.Entry{
		{Kind: audit.KindLoginSucceeded, SourceIP: "198.51.100.1",
			SourceAgent: "agent-a", Timestamp: base},
		{Kind: audit.KindLoginFailed, SourceIP: "198.51.100.2",
			SourceAgent: "agent-b", Timestamp: base.Add(time.Hour)},
		{Kind: audit.KindLoginFailed, SourceIP: "198.51.100.2",
			SourceAgent: "agent-b", Timestamp: base.Add(2 * time.Hour)},
		// Non-login kinds contribute nothing beyond the considered count.
		{Kind: audit.KindRegistrationSubmitted, SourceIP: "198.51.100.9",
			SourceAgent: "agent-z", Timestamp: base.Add(3 * time.Hour)},
	}

	s := BuildSignals(day(90), entries, p)
	assert.Equal(t, 90, s.AccountAgeDays)
	assert.Equal(t, 2, s.FailedLogins)
	assert.Equal(t, 2, s.DistinctLocations)
	assert.Equal(t, 2, s.DistinctDevices)
	assert.Zero(t, s.IrregularGaps)
	assert.Equal(t, 4, s.EntriesConsidered)
}

func TestBuildSignals_EmptyHistory(t *testing.T) {
	s := BuildSignals(day(10), nil, DefaultPolicy())
	assert.Zero(t, s.FailedLogins)
	assert.Zero(t, s.DistinctLocations)
	assert.Zero(t, s.DistinctDevices)
	assert.Zero(t, s.IrregularGaps)
	assert.Zero(t, s.EntriesConsidered)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"negative weight", func(p *Policy) { p.DeviceWeight = -1 }},
		{"negative cap", func(p *Policy) { p.FailedLoginCap = -1 }},
		{"zero young age", func(p *Policy) { p.YoungAge = 0 }},
		{"young above newish", func(p *Policy) { p.YoungAge = day(90) }},
		{"negative threshold", func(p *Policy) { p.LocationThreshold = -1 }},
		{"inverted gap bounds", func(p *Policy) { p.LongGap = time.Second }},
		{"non-ascending levels", func(p *Policy) { p.MediumMax = 1 }},
		{"levels above range", func(p *Policy) { p.HighMax = 11 }},
		{"zero window", func(p *Policy) { p.ActivityWindow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
