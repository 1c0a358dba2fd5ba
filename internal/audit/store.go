package audit

import (
	"context"
	"time"

	id "custos/pkg/domain"
)

// Store is the append-only persistence contract for audit entries.
//
// The detection aggregates (ListByActorSince, CountByActorKindSince,
// FailureStatsByIPSince, ActivityStatsSince, LastIPByActors) exclude
// diagnostic-category kinds so the detector's own records never feed back
// into detection input. List and the health counts see everything.
//
// Implementations return sentinel errors from pkg/platform/sentinel; the
// service layer wraps them into coded domain errors.
type Store interface {
	// Append persists one validated entry. The entry's ID and timestamps
	// are already assigned by the caller.
	Append(ctx context.Context, entry Entry) error

	// List returns one page of entries matching the query plus the total
	// match count, ordered by timestamp ascending with insertion-order
	// ties.
	List(ctx context.Context, q Query) (*Page, error)

	// CountsByKindSince rolls up entry counts per kind at or after since.
	CountsByKindSince(ctx context.Context, since time.Time) (map[Kind]int, error)

	// ListByActorSince returns the actor's non-diagnostic entries at or
	// after since, ordered by timestamp ascending.
	ListByActorSince(ctx context.Context, actorID id.AccountID, since time.Time) ([]Entry, error)

	// CountByActorKindSince counts the actor's entries of one kind at or
	// after since.
	CountByActorKindSince(ctx context.Context, actorID id.AccountID, kind Kind, since time.Time) (int, error)

	// FailureStatsByIPSince groups failed non-diagnostic entries at or
	// after since by source IP. IPs recorded as empty strings are skipped.
	FailureStatsByIPSince(ctx context.Context, since time.Time) ([]IPFailureStat, error)

	// ActivityStatsSince returns login and registration counts per account
	// active at or after since.
	ActivityStatsSince(ctx context.Context, since time.Time) ([]ActorActivityStat, error)

	// LastIPByActors resolves each listed actor to the source IP of their
	// most recent entry of the given kind. Actors with no such entry are
	// absent from the result.
	LastIPByActors(ctx context.Context, kind Kind, actorIDs []id.AccountID) (map[id.AccountID]string, error)

	// CountTotal counts every stored entry.
	CountTotal(ctx context.Context) (int, error)

	// CountSince counts entries at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}
