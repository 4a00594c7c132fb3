// Package memory is an in-memory ledger backend for development and tests.
package memory

import (
	"context"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// Store keeps entries and settings in memory. Positions are 1-based and
// shift on delete, mirroring the row semantics of the sheet backend.
type Store struct {
	mu       sync.Mutex
	entries  []core.LedgerEntry
	settings ledger.Settings
	alert    core.AlertState
	hasSaved bool
}

var (
	_ ledger.Store         = (*Store)(nil)
	_ ledger.SettingsStore = (*Store)(nil)
)

func New() *Store {
	return &Store{settings: ledger.DefaultSettings()}
}

// Append stores the entry and returns its 1-based position.
func (s *Store) Append(_ context.Context, e core.LedgerEntry) (int, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Position = len(s.entries) + 1
	s.entries = append(s.entries, e)
	return e.Position, nil
}

// ReadAll returns a snapshot copy in append order with positions set.
func (s *Store) ReadAll(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	for i := range out {
		out[i].Position = i + 1
	}
	return out, nil
}

// Update patches category and/or memo of the entry at position.
func (s *Store) Update(_ context.Context, position int, patch ledger.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 1 || position > len(s.entries) {
		return ledger.ErrPositionOutOfRange
	}
	e := &s.entries[position-1]
	if patch.Category != nil && *patch.Category != "" {
		e.Category = *patch.Category
	}
	if patch.Memo != nil && *patch.Memo != "" {
		e.Memo = *patch.Memo
	}
	return nil
}

// DeleteMonth removes all entries of the given year+month and returns how
// many were removed. Positions of later entries shift.
func (s *Store) DeleteMonth(_ context.Context, year, month int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	deleted := 0
	for _, e := range s.entries {
		if e.At.Year() == year && int(e.At.Month()) == month {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func (s *Store) Settings(_ context.Context) (ledger.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, set ledger.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.Budget <= 0 {
		set.Budget = ledger.DefaultBudget
	}
	s.settings = set
	s.hasSaved = true
	return nil
}

func (s *Store) AlertState(_ context.Context) (core.AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alert, nil
}

func (s *Store) SaveAlertState(_ context.Context, state core.AlertState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = state
	return nil
}
