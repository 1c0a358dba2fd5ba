// Package directory gives the detection services read-only access to the
// platform's accounts and events. This service never writes either table;
// the registration platform owns them.
package directory

import (
	"context"
	"time"

	id "custos/pkg/domain"
)

// AccountStatus is the lifecycle state of a platform account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

// Account is the directory view of a platform account.
type Account struct {
	ID          id.AccountID
	Email       string
	DisplayName string
	Status      AccountStatus
	CreatedAt   time.Time
}

// AgeAt returns how old the account is at the given instant.
func (a Account) AgeAt(now time.Time) time.Duration {
	return now.Sub(a.CreatedAt)
}

// EventStatus is the lifecycle state of a platform event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// Event is the directory view of a platform event.
type Event struct {
	ID        id.EventID
	Name      string
	Status    EventStatus
	StartsAt  time.Time
	Capacity  int
	CreatedAt time.Time
}

// Store reads accounts, events, and participant lists. Missing rows are
// reported with sentinel.ErrNotFound.
type Store interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*Event, error)
	ListParticipants(ctx context.Context, eventID id.EventID) ([]id.AccountID, error)
}
