package lexicon

import (
	"errors"
	"sync/atomic"
)

// Store publishes the active Lexicon snapshot to the rest of the process.
// Reads are lock-free; a reload swaps the whole snapshot atomically, so
// in-flight evaluations keep the version they started with and never
// observe a half-updated table.
type Store struct {
	cur atomic.Pointer[Lexicon]
}

// NewStore creates a store around an already-validated snapshot.
func NewStore(lex *Lexicon) (*Store, error) {
	s := &Store{}
	if err := s.Replace(lex); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot. Callers keep using the returned
// pointer for the whole of one evaluation; they must not hold it across
// reload boundaries if they need the newest ruleset.
func (s *Store) Current() *Lexicon {
	return s.cur.Load()
}

// Replace publishes a new snapshot. Only validated snapshots are accepted;
// a ruleset that failed validation can never become current.
func (s *Store) Replace(lex *Lexicon) error {
	if lex == nil {
		return errors.New("lexicon: nil snapshot")
	}
	if !lex.Validated() {
		return errors.New("lexicon: snapshot has not passed validation")
	}
	s.cur.Store(lex)
	return nil
}

// ReloadDir loads and validates a ruleset directory and, only on success,
// swaps it in. On any error the previous snapshot stays active untouched.
func (s *Store) ReloadDir(dir string) error {
	lex, err := Load(dir)
	if err != nil {
		return err
	}
	return s.Replace(lex)
}
