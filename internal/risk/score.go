package risk

import (
	"fmt"
	"math"
)

// Evaluate sums every firing signal's contribution and clamps the result
// into [MinScore, MaxScore]. Signals with a zero configured weight never
// appear in the factor list, so a deployment can switch a signal off
// without touching code.
func (p Policy) Evaluate(s Signals) (float64, []Factor) {
	var factors []Factor
	add := func(name string, contribution float64, detail string) {
		if contribution <= 0 {
			return
		}
		factors = append(factors, Factor{
			Name:         name,
			Contribution: contribution,
			Detail:       detail,
		})
	}

	if s.AccountAge < p.YoungAge {
		add("young_account", p.YoungWeight,
			fmt.Sprintf("account is %d days old", s.AccountAgeDays))
	}
	if s.AccountAge < p.NewishAge {
		add("new_account", p.NewishWeight,
			fmt.Sprintf("account is under %d days old", int(p.NewishAge.Hours()/24)))
	}
	if s.FailedLogins > 0 {
		contribution := math.Min(
			float64(s.FailedLogins)*p.FailedLoginWeight, p.FailedLoginCap)
		add("failed_logins", contribution,
			fmt.Sprintf("%d failed logins in window", s.FailedLogins))
	}
	if s.DistinctLocations > p.LocationThreshold {
		add("location_spread", p.LocationWeight,
			fmt.Sprintf("%d distinct login locations", s.DistinctLocations))
	}
	if s.DistinctDevices > p.DeviceThreshold {
		add("device_spread", p.DeviceWeight,
			fmt.Sprintf("%d distinct devices", s.DistinctDevices))
	}
	if s.IrregularGaps > p.GapThreshold {
		add("irregular_cadence", p.GapWeight,
			fmt.Sprintf("%d irregular login gaps", s.IrregularGaps))
	}

	score := 0.0
	for _, f := range factors {
		score += f.Contribution
	}
	return clampScore(score), factors
}

func clampScore(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}
