// Package memory is the in-memory directory used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"custos/internal/directory"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type Store struct {
	mu           sync.RWMutex
	accounts     map[id.AccountID]directory.Account
	events       map[id.EventID]directory.Event
	participants map[id.EventID][]id.AccountID
}

func New() *Store {
	return &Store{
		accounts:     make(map[id.AccountID]directory.Account),
		events:       make(map[id.EventID]directory.Event),
		participants: make(map[id.EventID][]id.AccountID),
	}
}

// PutAccount adds or replaces an account. Test helper.
func (s *Store) PutAccount(account directory.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// PutEvent adds or replaces an event. Test helper.
func (s *Store) PutEvent(event directory.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

// AddParticipant appends an account to an event's participant list in join
// order. Test helper.
func (s *Store) AddParticipant(eventID id.EventID, accountID id.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[eventID] = append(s.participants[eventID], accountID)
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
	}
	return &account, nil
}

func (s *Store) GetEvent(_ context.Context, eventID id.EventID) (*directory.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	return &event, nil
}

func (s *Store) ListParticipants(_ context.Context, eventID id.EventID) ([]id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.participants[eventID]
	out := make([]id.AccountID, len(list))
	copy(out, list)
	return out, nil
}
