package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemState is the lifecycle phase of an auction item.
// Transitions are strictly monotonic: Pending → Bidding → Reveal → Finalized.
type ItemState int

const (
	StatePending ItemState = iota
	StateBidding
	StateReveal
	StateFinalized
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateBidding:
		return "bidding"
	case StateReveal:
		return "reveal"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a finalized auction item.
type Outcome int

const (
	OutcomeUnset Outcome = iota
	OutcomeSold
	OutcomeUnsold
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSold:
		return "sold"
	case OutcomeUnsold:
		return "unsold"
	default:
		return "unset"
	}
}

// ItemMeta is the immutable listing data for an auction item.
type ItemMeta struct {
	ItemID         string          `json:"item_id"`
	SellerID       string          `json:"seller_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	RevealDeadline time.Time       `json:"reveal_deadline"`
	MinimumPrice   decimal.Decimal `json:"minimum_price"`
}

// Commitment is a recorded sealed bid: the binding digest plus the collateral
// locked when it was submitted. A bidder holds at most one per item.
type Commitment struct {
	BidderID         string          `json:"bidder_id"`
	CommitmentValue  string          `json:"commitment_value"`
	LockedCollateral decimal.Decimal `json:"locked_collateral"`
	SubmittedAt      time.Time       `json:"submitted_at"`
	Revealed         bool            `json:"revealed"`
}

// RevealedBid is a successfully opened commitment.
type RevealedBid struct {
	BidderID   string          `json:"bidder_id"`
	Amount     decimal.Decimal `json:"amount"`
	RevealedAt time.Time       `json:"revealed_at"`
}

// LedgerSnapshot is the externally visible view of an item's bid ledger.
type LedgerSnapshot struct {
	HighestBid       *RevealedBid `json:"highest_bid,omitempty"`
	SecondHighestBid *RevealedBid `json:"second_highest_bid,omitempty"`
	TotalCommitments int          `json:"total_commitments"`
	TotalRevealed    int          `json:"total_revealed"`
}

// FinalizeResult captures the settlement inputs produced by Finalize.
type FinalizeResult struct {
	ItemID        string          `json:"item_id"`
	Outcome       Outcome         `json:"outcome"`
	WinnerID      string          `json:"winner_id,omitempty"`
	WinningBid    decimal.Decimal `json:"winning_bid"`
	ClearingPrice decimal.Decimal `json:"clearing_price"`
	FinalizedAt   time.Time       `json:"finalized_at"`
}
