// Package postgres reads the platform's accounts and events over a pgx
// pool. All queries are single-row or single-column reads; the detection
// services own no writes here.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"custos/internal/directory"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*directory.Account, error) {
	query := `
		SELECT id, email, display_name, status, created_at
		FROM accounts
		WHERE id = $1
	`
	var (
		account directory.Account
		rowID   uuid.UUID
		status  string
	)
	err := s.pool.QueryRow(ctx, query, uuid.UUID(accountID)).Scan(
		&rowID,
		&account.Email,
		&account.DisplayName,
		&status,
		&account.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	account.ID = id.AccountID(rowID)
	account.Status = directory.AccountStatus(status)
	return &account, nil
}

func (s *Store) GetEvent(ctx context.Context, eventID id.EventID) (*directory.Event, error) {
	query := `
		SELECT id, name, status, starts_at, capacity, created_at
		FROM events
		WHERE id = $1
	`
	var (
		event  directory.Event
		rowID  uuid.UUID
		status string
	)
	err := s.pool.QueryRow(ctx, query, uuid.UUID(eventID)).Scan(
		&rowID,
		&event.Name,
		&status,
		&event.StartsAt,
		&event.Capacity,
		&event.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	event.ID = id.EventID(rowID)
	event.Status = directory.EventStatus(status)
	return &event, nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID id.EventID) ([]id.AccountID, error) {
	query := `
		SELECT account_id
		FROM event_participants
		WHERE event_id = $1
		ORDER BY joined_at ASC, account_id ASC
	`
	rows, err := s.pool.Query(ctx, query, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []id.AccountID
	for rows.Next() {
		var accountID uuid.UUID
		if err := rows.Scan(&accountID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, id.AccountID(accountID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}
