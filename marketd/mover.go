package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// journalMover is the daemon's fund transfer primitive: every disbursement is
// appended as a JSON line to a payout journal consumed by the payment rail.
// Idempotency per reference means a replayed transfer is a harmless duplicate
// line for the rail to dedupe.
type journalMover struct {
	mu   sync.Mutex
	file *os.File
}

type payoutRecord struct {
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
	At          time.Time       `json:"at"`
}

func newJournalMover(path string) (*journalMover, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open payout journal %s: %w", path, err)
	}
	return &journalMover{file: file}, nil
}

func (m *journalMover) Transfer(_ context.Context, recipientID string, amount decimal.Decimal, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	line, err := json.Marshal(payoutRecord{
		RecipientID: recipientID,
		Amount:      amount,
		Reference:   reference,
		At:          time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode payout record: %w", err)
	}
	if _, err := m.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append payout record: %w", err)
	}
	log.Printf("INFO: payout queued: %s → %s (%s)", amount, recipientID, reference)
	return nil
}
