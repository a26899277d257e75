// Package secretstore is the bidder-side cache of sealed-bid secrets. It maps
// (itemID, commitmentValue) → (amount, secret, revealed) so the client can
// drive the reveal phase later. It is a collaborator, not a source of truth:
// the bid ledger's own bookkeeping is authoritative, and losing this record
// only means the bidder cannot reveal.
package secretstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateRecord = errors.New("record already exists for this item and commitment")
	ErrNoRecord        = errors.New("no record for this item and commitment")
)

// Record is one remembered sealed bid.
type Record struct {
	ItemID          string          `json:"item_id"`
	CommitmentValue string          `json:"commitment_value"`
	Amount          decimal.Decimal `json:"amount"`
	Secret          string          `json:"secret"`
	Revealed        bool            `json:"revealed"`
	SavedAt         time.Time       `json:"saved_at"`
	RevealedAt      time.Time       `json:"revealed_at,omitzero"`
}

type key struct {
	itemID     string
	commitment string
}

// Store is an append-only in-memory record with optional JSON persistence.
// Records are never deleted; reveals only flip the Revealed flag.
type Store struct {
	mu      sync.Mutex
	records []Record
	index   map[key]int
}

func New() *Store {
	return &Store{index: make(map[key]int)}
}

// Put appends a new record. Duplicate (item, commitment) pairs are rejected —
// the store is append-only and a commitment binds exactly one (amount, secret).
func (s *Store) Put(rec Record) error {
	if rec.ItemID == "" || rec.CommitmentValue == "" || rec.Secret == "" {
		return ErrNoRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{rec.ItemID, rec.CommitmentValue}
	if _, exists := s.index[k]; exists {
		return ErrDuplicateRecord
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	s.index[k] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Get returns the record for (itemID, commitmentValue), if present.
func (s *Store) Get(itemID, commitmentValue string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[key{itemID, commitmentValue}]
	if !ok {
		return Record{}, false
	}
	return s.records[idx], true
}

// MarkRevealed flips the revealed flag after a successful reveal submission.
func (s *Store) MarkRevealed(itemID, commitmentValue string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[key{itemID, commitmentValue}]
	if !ok {
		return ErrNoRecord
	}
	s.records[idx].Revealed = true
	s.records[idx].RevealedAt = at
	return nil
}

// Unrevealed returns the records for itemID still awaiting a reveal.
func (s *Store) Unrevealed(itemID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.ItemID == itemID && !rec.Revealed {
			out = append(out, rec)
		}
	}
	return out
}

// Save writes the full record list as JSON.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode secret store: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write secret store: %w", err)
	}
	return nil
}

// Load replaces the store contents from a JSON file written by Save.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read secret store: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode secret store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.index = make(map[key]int, len(records))
	for i, rec := range records {
		s.index[key{rec.ItemID, rec.CommitmentValue}] = i
	}
	return nil
}
