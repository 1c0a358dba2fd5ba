package risk

import (
	"sort"
	"time"

	"custos/internal/audit"
	"custos/internal/device"
	id "custos/pkg/domain"
	strutil "custos/pkg/platform/strings"
)

// Level buckets a score. Ordering is LOW < MEDIUM < HIGH < CRITICAL.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelRank = map[Level]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// AtLeast reports whether l is at or above other in severity.
func (l Level) AtLeast(other Level) bool {
	return levelRank[l] >= levelRank[other]
}

// Factor is one named signal's contribution to a score.
type Factor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
	Detail       string  `json:"detail,omitempty"`
}

// Signals are the summarized inputs a score is computed from. They are
// derived once per assessment and echoed back so callers can see what the
// score was based on.
type Signals struct {
	AccountAge        time.Duration `json:"-"`
	AccountAgeDays    int           `json:"account_age_days"`
	FailedLogins      int           `json:"failed_logins"`
	DistinctLocations int           `json:"distinct_locations"`
	DistinctDevices   int           `json:"distinct_devices"`
	IrregularGaps     int           `json:"irregular_gaps"`
	EntriesConsidered int           `json:"entries_considered"`
}

// Assessment is the result of scoring one subject. Derived on every call
// and never persisted.
type Assessment struct {
	SubjectID  id.AccountID `json:"subject_id"`
	Score      float64      `json:"score"`
	Level      Level        `json:"level"`
	Factors    []Factor     `json:"factors"`
	Inputs     Signals      `json:"inputs"`
	ComputedAt time.Time    `json:"computed_at"`
}

// loginKinds are the kinds that carry location, device, and cadence
// evidence. Failed logins additionally feed the failed-login signal.
func isLoginKind(k audit.Kind) bool {
	switch k {
	case audit.KindLoginAttempted, audit.KindLoginSucceeded, audit.KindLoginFailed:
		return true
	}
	return false
}

// BuildSignals derives scoring signals from an account age and the
// subject's trailing-window entries. Entries of non-login kinds count only
// toward EntriesConsidered.
func BuildSignals(age time.Duration, entries []audit.Entry, p Policy) Signals {
	var locations []string
	var agents []string
	var loginTimes []time.Time
	failed := 0

	for _, e := range entries {
		if !isLoginKind(e.Kind) {
			continue
		}
		if e.Kind == audit.KindLoginFailed {
			failed++
		}
		locations = append(locations, e.SourceIP)
		agents = append(agents, e.SourceAgent)
		loginTimes = append(loginTimes, e.Timestamp)
	}

	return Signals{
		AccountAge:        age,
		AccountAgeDays:    int(age.Hours() / 24),
		FailedLogins:      failed,
		DistinctLocations: len(strutil.DedupeAndTrim(locations)),
		DistinctDevices:   device.DistinctNames(agents),
		IrregularGaps:     countIrregularGaps(loginTimes, p.ShortGap, p.LongGap),
		EntriesConsidered: len(entries),
	}
}

// countIrregularGaps counts consecutive-login gaps outside [short, long].
// Times are sorted first; fewer than two logins means no gaps.
func countIrregularGaps(times []time.Time, short, long time.Duration) int {
	if len(times) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	irregular := 0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1])
		if gap < short || gap > long {
			irregular++
		}
	}
	return irregular
}
