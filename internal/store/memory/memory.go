// Package memory provides an in-memory implementation of the store
// ports, used by tests and as the default backend for local runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"cadenza/internal/core"
)

type Store struct {
	mu           sync.Mutex
	obligations  map[string]core.RecurringObligation
	budgets      map[string]core.Budget
	transactions map[string]transaction
}

type transaction struct {
	id     string
	draft  core.TransactionDraft
	status string
}

func New() *Store {
	return &Store{
		obligations:  map[string]core.RecurringObligation{},
		budgets:      map[string]core.Budget{},
		transactions: map[string]transaction{},
	}
}

func (s *Store) ListObligations(_ context.Context) ([]core.RecurringObligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringObligation, 0, len(s.obligations))
	for _, ob := range s.obligations {
		out = append(out, ob)
	}
	return out, nil
}

func (s *Store) GetObligation(_ context.Context, id string) (core.RecurringObligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ob, ok := s.obligations[id]
	if !ok {
		return core.RecurringObligation{}, core.ErrNotFound
	}
	return ob, nil
}

func (s *Store) AddObligation(_ context.Context, ob core.RecurringObligation) (core.RecurringObligation, error) {
	if err := ob.Validate(); err != nil {
		return core.RecurringObligation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ob.ID == "" {
		ob.ID = uuid.NewString()
	}
	s.obligations[ob.ID] = ob
	return ob, nil
}

func (s *Store) UpdateObligation(_ context.Context, ob core.RecurringObligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[ob.ID]; !ok {
		return core.ErrNotFound
	}
	s.obligations[ob.ID] = ob
	return nil
}

func (s *Store) DeleteObligation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.obligations, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) AddBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return core.ErrNotFound
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

// AppendTransaction stores the draft and returns its assigned id.
func (s *Store) AppendTransaction(_ context.Context, draft core.TransactionDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.transactions[id] = transaction{id: id, draft: draft, status: draft.Status}
	return id, nil
}

func (s *Store) MarkTransactionPosted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	tx.status = core.TransactionStatusPosted
	s.transactions[id] = tx
	return nil
}

func (s *Store) DeleteTransactionsByObligation(_ context.Context, obligationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, tx := range s.transactions {
		if tx.draft.ObligationID == obligationID {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

// TransactionStatus exposes a transaction's status for tests.
func (s *Store) TransactionStatus(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return "", false
	}
	return tx.status, true
}
