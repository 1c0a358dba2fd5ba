// Package postgres persists audit entries in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custos/internal/audit"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// Store is pure I/O over the audit_entries table. Window rules and
// thresholds belong in the services; the store only answers the aggregate
// questions they ask.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	details, err := audit.MarshalDetails(entry.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	var actorID *uuid.UUID
	if !entry.Actor.AccountID.IsNil() {
		u := uuid.UUID(entry.Actor.AccountID)
		actorID = &u
	}

	query := `
		INSERT INTO audit_entries (
			id, kind, category, actor_kind, actor_id, display_name, role,
			source_ip, source_agent, success, request_id, details,
			timestamp, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		string(entry.Kind),
		string(entry.Kind.Category()),
		string(entry.Actor.Kind),
		actorID,
		entry.Actor.DisplayName,
		entry.Actor.Role,
		entry.SourceIP,
		entry.SourceAgent,
		entry.Success,
		entry.RequestID,
		details,
		entry.Timestamp,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("insert audit entry %s: %w", entry.ID, sentinel.ErrConflict)
	}
	return nil
}

const entryColumns = `id, kind, actor_kind, actor_id, display_name, role,
		source_ip, source_agent, success, request_id, details, timestamp, recorded_at`

func (s *Store) List(ctx context.Context, q audit.Query) (*audit.Page, error) {
	where, args := buildWhere(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_entries` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM audit_entries%s
		ORDER BY timestamp ASC, seq ASC
		LIMIT $%d OFFSET $%d
	`, entryColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return &audit.Page{Entries: entries, Total: total}, nil
}

// buildWhere assembles the WHERE clause for a query. Zero-valued filter
// fields are skipped.
func buildWhere(q audit.Query) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !q.ActorID.IsNil() {
		add("actor_id = $%d", uuid.UUID(q.ActorID))
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		add("kind = ANY($%d)", pq.Array(kinds))
	}
	if q.SourceIP != "" {
		add("source_ip = $%d", q.SourceIP)
	}
	if q.Success != nil {
		add("success = $%d", *q.Success)
	}
	if !q.From.IsZero() {
		add("timestamp >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("timestamp <= $%d", q.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) CountsByKindSince(ctx context.Context, since time.Time) (map[audit.Kind]int, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM audit_entries
		WHERE timestamp >= $1
		GROUP BY kind
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[audit.Kind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts[audit.Kind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}
	return counts, nil
}

func (s *Store) ListByActorSince(ctx context.Context, actorID id.AccountID, since time.Time) ([]audit.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_entries
		WHERE actor_id = $1 AND timestamp >= $2 AND category != $3
		ORDER BY timestamp ASC, seq ASC
	`, entryColumns)

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(actorID), since, string(audit.CategoryDiagnostic))
	if err != nil {
		return nil, fmt.Errorf("query actor entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *Store) CountByActorKindSince(ctx context.Context, actorID id.AccountID, kind audit.Kind, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM audit_entries
		WHERE actor_id = $1 AND kind = $2 AND timestamp >= $3 AND category != $4
	`
	var count int
	err := s.db.QueryRowContext(ctx, query,
		uuid.UUID(actorID), string(kind), since, string(audit.CategoryDiagnostic),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count actor entries: %w", err)
	}
	return count, nil
}

func (s *Store) FailureStatsByIPSince(ctx context.Context, since time.Time) ([]audit.IPFailureStat, error) {
	query := `
		SELECT source_ip, COUNT(*), COUNT(DISTINCT actor_id)
		FROM audit_entries
		WHERE success = FALSE
		  AND source_ip != ''
		  AND timestamp >= $1
		  AND category != $2
		GROUP BY source_ip
		ORDER BY source_ip
	`
	rows, err := s.db.QueryContext(ctx, query, since, string(audit.CategoryDiagnostic))
	if err != nil {
		return nil, fmt.Errorf("query failure stats: %w", err)
	}
	defer rows.Close()

	var stats []audit.IPFailureStat
	for rows.Next() {
		var st audit.IPFailureStat
		if err := rows.Scan(&st.IP, &st.FailedCount, &st.DistinctActors); err != nil {
			return nil, fmt.Errorf("scan failure stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure stats: %w", err)
	}
	return stats, nil
}

func (s *Store) ActivityStatsSince(ctx context.Context, since time.Time) ([]audit.ActorActivityStat, error) {
	query := `
		SELECT actor_id,
		       COUNT(*) FILTER (WHERE kind = $1),
		       COUNT(*) FILTER (WHERE kind = $2)
		FROM audit_entries
		WHERE actor_id IS NOT NULL
		  AND timestamp >= $3
		  AND category != $4
		GROUP BY actor_id
		ORDER BY actor_id
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(audit.KindLoginSucceeded),
		string(audit.KindRegistrationSubmitted),
		since,
		string(audit.CategoryDiagnostic),
	)
	if err != nil {
		return nil, fmt.Errorf("query activity stats: %w", err)
	}
	defer rows.Close()

	var stats []audit.ActorActivityStat
	for rows.Next() {
		var actorID uuid.UUID
		var st audit.ActorActivityStat
		if err := rows.Scan(&actorID, &st.LoginCount, &st.RegistrationCount); err != nil {
			return nil, fmt.Errorf("scan activity stat: %w", err)
		}
		st.ActorID = id.AccountID(actorID)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity stats: %w", err)
	}
	return stats, nil
}

func (s *Store) LastIPByActors(ctx context.Context, kind audit.Kind, actorIDs []id.AccountID) (map[id.AccountID]string, error) {
	if len(actorIDs) == 0 {
		return map[id.AccountID]string{}, nil
	}

	ids := make([]uuid.UUID, len(actorIDs))
	for i, a := range actorIDs {
		ids[i] = uuid.UUID(a)
	}

	query := `
		SELECT DISTINCT ON (actor_id) actor_id, source_ip
		FROM audit_entries
		WHERE actor_id = ANY($1)
		  AND kind = $2
		  AND source_ip != ''
		ORDER BY actor_id, timestamp DESC, seq DESC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), string(kind))
	if err != nil {
		return nil, fmt.Errorf("query last ips: %w", err)
	}
	defer rows.Close()

	out := make(map[id.AccountID]string)
	for rows.Next() {
		var actorID uuid.UUID
		var ip string
		if err := rows.Scan(&actorID, &ip); err != nil {
			return nil, fmt.Errorf("scan last ip: %w", err)
		}
		out[id.AccountID(actorID)] = ip
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last ips: %w", err)
	}
	return out, nil
}

func (s *Store) CountTotal(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_entries WHERE timestamp >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent audit entries: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry   audit.Entry
			entryID uuid.UUID
			kind    string
			actorK  string
			actorID *uuid.UUID
			details []byte
		)
		err := rows.Scan(
			&entryID,
			&kind,
			&actorK,
			&actorID,
			&entry.Actor.DisplayName,
			&entry.Actor.Role,
			&entry.SourceIP,
			&entry.SourceAgent,
			&entry.Success,
			&entry.RequestID,
			&details,
			&entry.Timestamp,
			&entry.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.ID = id.EntryID(entryID)
		entry.Kind = audit.Kind(kind)
		entry.Actor.Kind = audit.ActorKind(actorK)
		if actorID != nil {
			entry.Actor.AccountID = id.AccountID(*actorID)
		}

		decoded, err := audit.DecodeDetails(entry.Kind, details)
		if err != nil {
			return nil, fmt.Errorf("decode entry details: %w", err)
		}
		entry.Details = decoded

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
