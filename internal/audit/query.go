package audit

import (
	"time"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

const (
	// DefaultPageLimit applies when a query names no limit.
	DefaultPageLimit = 50
	// MaxPageLimit bounds a single page.
	MaxPageLimit = 500
)

// Query selects entries for retrieval. Zero-valued fields do not filter.
// Results are ordered by Timestamp ascending, ties by insertion order.
type Query struct {
	ActorID  id.AccountID
	Kinds    []Kind
	SourceIP string
	Success  *bool
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Normalize applies paging defaults in place.
func (q *Query) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Validate rejects filters that can never match or that name unknown kinds.
func (q *Query) Validate() error {
	for _, k := range q.Kinds {
		if !k.Valid() {
			return dErrors.New(dErrors.CodeValidation, "unknown audit kind: "+string(k))
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return dErrors.New(dErrors.CodeValidation, "time range end precedes start")
	}
	return nil
}

// Matches reports whether the entry satisfies every set filter. Paging is
// the store's concern, not the filter's.
func (q *Query) Matches(e Entry) bool {
	if !q.ActorID.IsNil() && e.Actor.AccountID != q.ActorID {
		return false
	}
	if len(q.Kinds) > 0 {
		found := false
		for _, k := range q.Kinds {
			if e.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.SourceIP != "" && e.SourceIP != q.SourceIP {
		return false
	}
	if q.Success != nil && e.Success != *q.Success {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	return true
}

// Page is one window of query results. Total counts every match, not just
// the returned window.
type Page struct {
	Entries []Entry
	Total   int
}

// Summary aggregates entry counts since a point in time.
type Summary struct {
	Since      time.Time
	Total      int
	ByKind     map[Kind]int
	ByCategory map[Category]int
}

// IPFailureStat summarizes failed entries from one source IP inside a
// detection window. Diagnostic kinds are excluded at the store.
type IPFailureStat struct {
	IP             string
	FailedCount    int
	DistinctActors int
}

// ActorActivityStat counts one account's logins and registrations inside a
// detection window. Only accounts with at least one entry in the window
// appear.
type ActorActivityStat struct {
	ActorID           id.AccountID
	LoginCount        int
	RegistrationCount int
}
