package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingPolicy selects the settlement price rule applied at finalization.
// Second-price is the default: the system tracks a second-highest bid exactly
// so the winner can pay it. First-price is kept as an explicit product
// override, not a hidden default.
type PricingPolicy int

const (
	SecondPrice PricingPolicy = iota
	FirstPrice
)

func (p PricingPolicy) String() string {
	if p == FirstPrice {
		return "first_price"
	}
	return "second_price"
}

// ParsePricingPolicy maps a config string to a policy, defaulting to
// second-price for anything unrecognized or empty.
func ParsePricingPolicy(s string) PricingPolicy {
	if s == "first_price" {
		return FirstPrice
	}
	return SecondPrice
}

// Item is one auction item: listing metadata, its bid ledger, and its
// lifecycle state. Pending/Bidding/Reveal are derived from the clock;
// Finalize pins the terminal state exactly once. Item is not goroutine safe —
// callers serialize operations per item.
type Item struct {
	meta   ItemMeta
	ledger *Ledger
	result *FinalizeResult
}

// NewItem validates the listing window and creates an item in Pending.
func NewItem(meta ItemMeta) (*Item, error) {
	if meta.ItemID == "" || meta.SellerID == "" {
		return nil, ErrInvalidWindow
	}
	if !meta.StartTime.Before(meta.EndTime) || meta.RevealDeadline.Before(meta.EndTime) {
		return nil, ErrInvalidWindow
	}
	if meta.MinimumPrice.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return &Item{
		meta:   meta,
		ledger: NewLedger(),
	}, nil
}

// Meta returns the immutable listing data.
func (i *Item) Meta() ItemMeta {
	return i.meta
}

// StateAt derives the lifecycle phase at the given instant. Once finalized
// the item stays Finalized regardless of the clock.
func (i *Item) StateAt(now time.Time) ItemState {
	switch {
	case i.result != nil:
		return StateFinalized
	case now.Before(i.meta.StartTime):
		return StatePending
	case now.Before(i.meta.EndTime):
		return StateBidding
	default:
		return StateReveal
	}
}

// SubmitCommitment records a sealed bid while the item is in Bidding.
func (i *Item) SubmitCommitment(bidderID, commitmentValue string, collateral decimal.Decimal, now time.Time) (*Commitment, error) {
	if i.StateAt(now) != StateBidding {
		return nil, ErrWindowClosed
	}
	return i.ledger.SubmitCommitment(bidderID, commitmentValue, collateral, now)
}

// SubmitReveal opens a sealed bid while the item is in Reveal.
func (i *Item) SubmitReveal(bidderID string, amount decimal.Decimal, secret string, now time.Time) (*RevealedBid, error) {
	if i.StateAt(now) != StateReveal {
		return nil, ErrWindowClosed
	}
	return i.ledger.SubmitReveal(bidderID, amount, secret, now)
}

// Finalize closes the auction and computes the outcome under the given
// pricing policy. It is allowed once the reveal deadline has passed, or
// earlier if every recorded commitment has already been revealed. A second
// call fails with ErrAlreadyFinalized and leaves the outcome unchanged.
func (i *Item) Finalize(now time.Time, policy PricingPolicy) (*FinalizeResult, error) {
	switch i.StateAt(now) {
	case StateFinalized:
		return nil, ErrAlreadyFinalized
	case StateReveal:
		// fall through
	default:
		return nil, ErrWindowClosed
	}
	if now.Before(i.meta.RevealDeadline) && i.ledger.UnrevealedCount() > 0 {
		return nil, ErrTooEarly
	}

	result := &FinalizeResult{
		ItemID:      i.meta.ItemID,
		Outcome:     OutcomeUnsold,
		FinalizedAt: now,
	}

	snap := i.ledger.Snapshot()
	if snap.HighestBid != nil && snap.HighestBid.Amount.GreaterThanOrEqual(i.meta.MinimumPrice) {
		result.Outcome = OutcomeSold
		result.WinnerID = snap.HighestBid.BidderID
		result.WinningBid = snap.HighestBid.Amount
		result.ClearingPrice = clearingPrice(snap, policy)
	}

	i.result = result
	return result, nil
}

// clearingPrice applies the pricing policy: the winner pays the second-highest
// revealed bid when one exists (Vickrey), or their own bid under first-price
// or when no runner-up revealed.
func clearingPrice(snap LedgerSnapshot, policy PricingPolicy) decimal.Decimal {
	if policy == SecondPrice && snap.SecondHighestBid != nil {
		return snap.SecondHighestBid.Amount
	}
	return snap.HighestBid.Amount
}

// Result returns the finalize result once the item is Finalized.
func (i *Item) Result() (*FinalizeResult, bool) {
	if i.result == nil {
		return nil, false
	}
	r := *i.result
	return &r, true
}

// Snapshot exposes the ledger's derived state for views.
func (i *Item) Snapshot() LedgerSnapshot {
	return i.ledger.Snapshot()
}

// CommitmentOf exposes a bidder's recorded commitment for views and collateral
// accounting.
func (i *Item) CommitmentOf(bidderID string) (*Commitment, bool) {
	return i.ledger.CommitmentOf(bidderID)
}

// Bidders returns all participating bidder IDs in submission order.
func (i *Item) Bidders() []string {
	return i.ledger.Bidders()
}
