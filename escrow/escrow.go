// Package escrow holds locked collateral per auction item and disburses it
// exactly once after finalization: the clearing price to the seller, the
// remainder back to bidders. Transfer failures are retried per recipient
// without ever re-planning the disbursement.
package escrow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/sealedbid/core"
)

// FundMover is the external value-transfer primitive. Implementations must be
// idempotent per (recipient, reference): the account retries failed calls.
type FundMover interface {
	Transfer(ctx context.Context, recipientID string, amount decimal.Decimal, reference string) error
}

// TransferKind distinguishes seller payments from bidder refunds in the
// disbursement journal.
type TransferKind string

const (
	TransferRelease TransferKind = "release"
	TransferRefund  TransferKind = "refund"
)

// Transfer is one planned movement of collateral out of the account.
type Transfer struct {
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TransferKind    `json:"kind"`
	Reference   string          `json:"reference"`
	Done        bool            `json:"done"`
	Attempts    int             `json:"attempts"`
}

// Info is the externally visible snapshot of an escrow account.
type Info struct {
	ItemID           string          `json:"item_id"`
	LockedTotal      decimal.Decimal `json:"locked_total"`
	Disbursed        bool            `json:"disbursed"`
	ReleaseCount     int             `json:"release_count"`
	RefundCount      int             `json:"refund_count"`
	PendingTransfers int             `json:"pending_transfers"`
}

// Account escrows collateral for a single auction item. It is not goroutine
// safe — callers serialize operations per item alongside the ledger.
type Account struct {
	itemID string
	mover  FundMover

	locked      map[string]decimal.Decimal // bidderID → collateral still locked
	lockedTotal decimal.Decimal

	planned      bool // disbursement plan committed, no second plan ever
	plan         []Transfer
	releaseCount int
	refundCount  int

	maxAttempts int
	backoff     time.Duration
}

// Option configures an Account.
type Option func(*Account)

// WithRetry overrides the per-recipient retry attempts and backoff base used
// during a disbursement pass.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(a *Account) {
		a.maxAttempts = maxAttempts
		a.backoff = backoff
	}
}

// NewAccount creates the escrow account for an item. Created lazily at the
// first commitment.
func NewAccount(itemID string, mover FundMover, opts ...Option) *Account {
	a := &Account{
		itemID:      itemID,
		mover:       mover,
		locked:      make(map[string]decimal.Decimal),
		maxAttempts: 3,
		backoff:     100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lock adds collateral for bidderID. Locking after the disbursement plan has
// been committed is a conflict, not a silent loss of funds.
func (a *Account) Lock(bidderID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return core.ErrInvalidCollateral
	}
	if a.planned {
		return core.ErrAlreadyDisbursed
	}
	a.locked[bidderID] = a.locked[bidderID].Add(amount)
	a.lockedTotal = a.lockedTotal.Add(amount)
	return nil
}

// LockedTotal returns the sum of all still-locked collateral.
func (a *Account) LockedTotal() decimal.Decimal {
	return a.lockedTotal
}

// ReleaseToSeller disburses a Sold outcome: the clearing price moves to the
// seller, the winner's excess collateral is refunded, and every losing bidder
// is refunded in full. The plan is committed exactly once; a repeat call fails
// with ErrAlreadyDisbursed and moves no funds. Transfer failures leave the
// affected portions pending for RetryPending.
func (a *Account) ReleaseToSeller(ctx context.Context, sellerID string, result core.FinalizeResult) error {
	if result.Outcome != core.OutcomeSold {
		return core.ErrWindowClosed
	}
	if a.planned {
		return core.ErrAlreadyDisbursed
	}

	winnerLocked, ok := a.locked[result.WinnerID]
	if !ok || winnerLocked.LessThan(result.ClearingPrice) {
		return fmt.Errorf("winner %s collateral %s does not cover clearing price %s: %w",
			result.WinnerID, winnerLocked, result.ClearingPrice, core.ErrInsufficientCollateral)
	}

	a.plan = append(a.plan, Transfer{
		RecipientID: sellerID,
		Amount:      result.ClearingPrice,
		Kind:        TransferRelease,
		Reference:   a.reference(TransferRelease, sellerID),
	})
	if excess := winnerLocked.Sub(result.ClearingPrice); excess.Sign() > 0 {
		a.plan = append(a.plan, Transfer{
			RecipientID: result.WinnerID,
			Amount:      excess,
			Kind:        TransferRefund,
			Reference:   a.reference(TransferRefund, result.WinnerID),
		})
	}
	for bidder, amount := range a.locked {
		if bidder == result.WinnerID {
			continue
		}
		a.plan = append(a.plan, Transfer{
			RecipientID: bidder,
			Amount:      amount,
			Kind:        TransferRefund,
			Reference:   a.reference(TransferRefund, bidder),
		})
	}
	a.planned = true

	return a.runPending(ctx)
}

// RefundAll disburses an Unsold outcome: every bidder's full collateral goes
// back. Same exactly-once plan discipline as ReleaseToSeller.
func (a *Account) RefundAll(ctx context.Context, result core.FinalizeResult) error {
	if result.Outcome != core.OutcomeUnsold {
		return core.ErrWindowClosed
	}
	if a.planned {
		return core.ErrAlreadyDisbursed
	}

	for bidder, amount := range a.locked {
		a.plan = append(a.plan, Transfer{
			RecipientID: bidder,
			Amount:      amount,
			Kind:        TransferRefund,
			Reference:   a.reference(TransferRefund, bidder),
		})
	}
	a.planned = true

	return a.runPending(ctx)
}

// RetryPending retries every transfer that has not yet succeeded. Safe to call
// repeatedly; completed transfers are never re-sent.
func (a *Account) RetryPending(ctx context.Context) error {
	if !a.planned {
		return core.ErrWindowClosed
	}
	return a.runPending(ctx)
}

func (a *Account) runPending(ctx context.Context) error {
	failed := 0
	for idx := range a.plan {
		t := &a.plan[idx]
		if t.Done {
			continue
		}
		if err := a.attempt(ctx, t); err != nil {
			failed++
			log.Printf("ERROR: escrow %s: transfer %s to %s failed: %v", a.itemID, t.Kind, t.RecipientID, err)
			continue
		}
		t.Done = true
		a.lockedTotal = a.lockedTotal.Sub(t.Amount)
		switch t.Kind {
		case TransferRelease:
			a.releaseCount++
		case TransferRefund:
			a.refundCount++
		}
	}
	if failed > 0 {
		return fmt.Errorf("escrow %s: %d transfer(s) pending: %w", a.itemID, failed, core.ErrTransferFailed)
	}
	return nil
}

// attempt runs one transfer with per-recipient retry and exponential backoff.
func (a *Account) attempt(ctx context.Context, t *Transfer) error {
	var lastErr error
	delay := a.backoff
	for i := 0; i < a.maxAttempts; i++ {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
		t.Attempts++
		lastErr = a.mover.Transfer(ctx, t.RecipientID, t.Amount, t.Reference)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (a *Account) reference(kind TransferKind, recipient string) string {
	return fmt.Sprintf("%s/%s/%s", a.itemID, kind, recipient)
}

// Disbursed reports whether the plan has been committed and every transfer
// has completed. The account is logically closed once this is true.
func (a *Account) Disbursed() bool {
	if !a.planned {
		return false
	}
	for _, t := range a.plan {
		if !t.Done {
			return false
		}
	}
	return true
}

// Journal returns a copy of the disbursement plan for reconciliation.
func (a *Account) Journal() []Transfer {
	out := make([]Transfer, len(a.plan))
	copy(out, a.plan)
	return out
}

// Info returns the account snapshot.
func (a *Account) Info() Info {
	pending := 0
	for _, t := range a.plan {
		if !t.Done {
			pending++
		}
	}
	return Info{
		ItemID:           a.itemID,
		LockedTotal:      a.lockedTotal,
		Disbursed:        a.Disbursed(),
		ReleaseCount:     a.releaseCount,
		RefundCount:      a.refundCount,
		PendingTransfers: pending,
	}
}
