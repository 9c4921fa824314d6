// Package checkpoint persists resumable progress for a solver process:
// which (phase, chunk) pairs have already been committed, and the
// automatic-mode network worker's current backoff state. It wraps
// BadgerDB the same way the original project's local settings store
// did, keyed strings mapping to JSON-marshaled values.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefixChunkDone = "chunk_done:"
const keyAutomationState = "automation_state"

// Store wraps a BadgerDB instance holding a solver process's resumable
// state.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a checkpoint database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func chunkKey(phaseNum int, c int64) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", keyPrefixChunkDone, phaseNum, c))
}

// MarkChunkDone records that chunk c of phaseNum has been committed to
// its final output file.
func (s *Store) MarkChunkDone(phaseNum int, c int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(phaseNum, c), []byte{1})
	})
}

// IsChunkDone reports whether chunk c of phaseNum was already
// committed, so a restarted process can skip straight to the next
// chunk instead of recomputing it.
func (s *Store) IsChunkDone(phaseNum int, c int64) (bool, error) {
	done := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(chunkKey(phaseNum, c))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

// AutomationState is the resumable state of the automatic-mode network
// worker: the phase/chunk it last reported and a backoff interval.
// pushfight-solve saves LastPhase and LastChunk after each uploaded
// chunk; its live backoff starts at the initial interval on every
// start, and it does not copy that backoff into or out of
// BackoffCurrent.
type AutomationState struct {
	User           string        `json:"user"`
	Machine        string        `json:"machine"`
	LastPhase      int           `json:"last_phase"`
	LastChunk      int64         `json:"last_chunk"`
	BackoffCurrent time.Duration `json:"backoff_current"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// DefaultAutomationState returns a fresh state with backoff at its
// initial value.
func DefaultAutomationState(user, machine string) AutomationState {
	return AutomationState{
		User:           user,
		Machine:        machine,
		BackoffCurrent: 5 * time.Second,
	}
}

// SaveAutomationState persists the automation worker's resumable
// state.
func (s *Store) SaveAutomationState(st AutomationState) error {
	st.UpdatedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyAutomationState), data)
	})
}

// LoadAutomationState loads the automation worker's resumable state,
// returning a fresh default state for user/machine if none was saved
// yet.
func (s *Store) LoadAutomationState(user, machine string) (AutomationState, error) {
	st := DefaultAutomationState(user, machine)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyAutomationState))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
	})
	return st, err
}
