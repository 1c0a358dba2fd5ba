// Package memory is the in-memory audit store used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custos/internal/audit"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// Store keeps entries in insertion order behind a RWMutex. Reads copy so
// callers can never observe later appends.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
	seen    map[id.EntryID]struct{}
}

func New() *Store {
	return &Store{seen: make(map[id.EntryID]struct{})}
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[entry.ID]; ok {
		return fmt.Errorf("append entry %s: %w", entry.ID, sentinel.ErrConflict)
	}
	s.seen[entry.ID] = struct{}{}
	s.entries = append(s.entries, entry)
	return nil
}

// Clear drops every entry. Test helper.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.seen = make(map[id.EntryID]struct{})
}

func (s *Store) List(_ context.Context, q audit.Query) (*audit.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range s.entries {
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}
	sortByTime(matched)

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > total {
		end = total
	}

	page := make([]audit.Entry, end-start)
	copy(page, matched[start:end])
	return &audit.Page{Entries: page, Total: total}, nil
}

func (s *Store) CountsByKindSince(_ context.Context, since time.Time) (map[audit.Kind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[audit.Kind]int)
	for _, e := range s.entries {
		if e.Timestamp.Before(since) {
			continue
		}
		counts[e.Kind]++
	}
	return counts, nil
}

func (s *Store) ListByActorSince(_ context.Context, actorID id.AccountID, since time.Time) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if e.Kind.Category() == audit.CategoryDiagnostic {
			continue
		}
		if e.Actor.AccountID != actorID || e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sortByTime(out)
	return out, nil
}

func (s *Store) CountByActorKindSince(_ context.Context, actorID id.AccountID, kind audit.Kind, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.Kind.Category() == audit.CategoryDiagnostic {
			continue
		}
		if e.Actor.AccountID == actorID && e.Kind == kind && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) FailureStatsByIPSince(_ context.Context, since time.Time) ([]audit.IPFailureStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		failed int
		actors map[id.AccountID]struct{}
	}
	groups := make(map[string]*group)

	for _, e := range s.entries {
		if e.Kind.Category() == audit.CategoryDiagnostic {
			continue
		}
		if e.Success || e.SourceIP == "" || e.Timestamp.Before(since) {
			continue
		}
		g, ok := groups[e.SourceIP]
		if !ok {
			g = &group{actors: make(map[id.AccountID]struct{})}
			groups[e.SourceIP] = g
		}
		g.failed++
		if !e.Actor.AccountID.IsNil() {
			g.actors[e.Actor.AccountID] = struct{}{}
		}
	}

	stats := make([]audit.IPFailureStat, 0, len(groups))
	for ip, g := range groups {
		stats = append(stats, audit.IPFailureStat{
			IP:             ip,
			FailedCount:    g.failed,
			DistinctActors: len(g.actors),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].IP < stats[j].IP })
	return stats, nil
}

func (s *Store) ActivityStatsSince(_ context.Context, since time.Time) ([]audit.ActorActivityStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[id.AccountID]*audit.ActorActivityStat)
	for _, e := range s.entries {
		if e.Kind.Category() == audit.CategoryDiagnostic {
			continue
		}
		if e.Actor.AccountID.IsNil() || e.Timestamp.Before(since) {
			continue
		}
		st, ok := stats[e.Actor.AccountID]
		if !ok {
			st = &audit.ActorActivityStat{ActorID: e.Actor.AccountID}
			stats[e.Actor.AccountID] = st
		}
		switch e.Kind {
		case audit.KindLoginSucceeded:
			st.LoginCount++
		case audit.KindRegistrationSubmitted:
			st.RegistrationCount++
		}
	}

	out := make([]audit.ActorActivityStat, 0, len(stats))
	for _, st := range stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ActorID.String() < out[j].ActorID.String()
	})
	return out, nil
}

func (s *Store) LastIPByActors(_ context.Context, kind audit.Kind, actorIDs []id.AccountID) (map[id.AccountID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[id.AccountID]struct{}, len(actorIDs))
	for _, a := range actorIDs {
		wanted[a] = struct{}{}
	}

	type candidate struct {
		ip string
		at time.Time
	}
	latest := make(map[id.AccountID]candidate)

	for _, e := range s.entries {
		if e.Kind != kind || e.SourceIP == "" {
			continue
		}
		if _, ok := wanted[e.Actor.AccountID]; !ok {
			continue
		}
		// Later insertion wins timestamp ties.
		if cur, ok := latest[e.Actor.AccountID]; !ok || !e.Timestamp.Before(cur.at) {
			latest[e.Actor.AccountID] = candidate{ip: e.SourceIP, at: e.Timestamp}
		}
	}

	out := make(map[id.AccountID]string, len(latest))
	for actor, c := range latest {
		out[actor] = c.ip
	}
	return out, nil
}

func (s *Store) CountTotal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) CountSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// sortByTime orders entries by timestamp, preserving insertion order for
// equal timestamps.
func sortByTime(entries []audit.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
