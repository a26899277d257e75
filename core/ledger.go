package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is the per-item record of sealed commitments and revealed bids. It
// exclusively owns the highest/second-highest pointers; nothing outside this
// type mutates them. The Ledger itself is not goroutine safe — the caller
// serializes operations per item.
type Ledger struct {
	commitments map[string]*Commitment
	order       []string // bidder IDs in submission order
	revealed    []RevealedBid

	highest       *RevealedBid
	secondHighest *RevealedBid
}

func NewLedger() *Ledger {
	return &Ledger{
		commitments: make(map[string]*Commitment),
	}
}

// SubmitCommitment records a sealed bid for bidderID. A bidder may hold at
// most one commitment per item; re-bidding is rejected with ErrAlreadyCommitted
// whether or not the existing commitment has been revealed.
func (l *Ledger) SubmitCommitment(bidderID, commitmentValue string, collateral decimal.Decimal, now time.Time) (*Commitment, error) {
	if bidderID == "" || commitmentValue == "" {
		return nil, ErrInvalidCommitment
	}
	if collateral.Sign() <= 0 {
		return nil, ErrInvalidCollateral
	}
	if _, exists := l.commitments[bidderID]; exists {
		return nil, ErrAlreadyCommitted
	}

	c := &Commitment{
		BidderID:         bidderID,
		CommitmentValue:  commitmentValue,
		LockedCollateral: collateral,
		SubmittedAt:      now,
	}
	l.commitments[bidderID] = c
	l.order = append(l.order, bidderID)
	return c, nil
}

// SubmitReveal opens a previously recorded commitment. On success the revealed
// bid is inserted and the highest/second-highest pointers are re-evaluated
// under the total order (amount desc, revealedAt asc).
func (l *Ledger) SubmitReveal(bidderID string, amount decimal.Decimal, secret string, now time.Time) (*RevealedBid, error) {
	c, exists := l.commitments[bidderID]
	if !exists {
		return nil, ErrNoSuchCommitment
	}
	if c.Revealed {
		return nil, ErrAlreadyRevealed
	}
	if !Verify(amount, secret, c.CommitmentValue) {
		return nil, ErrInvalidReveal
	}
	if amount.GreaterThan(c.LockedCollateral) {
		return nil, ErrInsufficientCollateral
	}

	bid := &RevealedBid{
		BidderID:   bidderID,
		Amount:     amount,
		RevealedAt: now,
	}
	c.Revealed = true
	l.revealed = append(l.revealed, *bid)
	l.rank(bid)
	return bid, nil
}

// rank slots a freshly revealed bid into the highest/second-highest pair.
// Ties go to the earlier reveal, so an incumbent is only displaced by a
// strictly greater amount.
func (l *Ledger) rank(bid *RevealedBid) {
	switch {
	case l.highest == nil:
		l.highest = bid
	case bid.Amount.GreaterThan(l.highest.Amount):
		l.secondHighest = l.highest
		l.highest = bid
	case l.secondHighest == nil || bid.Amount.GreaterThan(l.secondHighest.Amount):
		l.secondHighest = bid
	}
}

// CommitmentOf returns the recorded commitment for bidderID, if any.
func (l *Ledger) CommitmentOf(bidderID string) (*Commitment, bool) {
	c, ok := l.commitments[bidderID]
	return c, ok
}

// Bidders returns all participating bidder IDs in submission order.
func (l *Ledger) Bidders() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// UnrevealedCount returns the number of commitments not yet opened.
func (l *Ledger) UnrevealedCount() int {
	count := 0
	for _, c := range l.commitments {
		if !c.Revealed {
			count++
		}
	}
	return count
}

// Snapshot returns a copy of the ledger's derived state.
func (l *Ledger) Snapshot() LedgerSnapshot {
	snap := LedgerSnapshot{
		TotalCommitments: len(l.commitments),
		TotalRevealed:    len(l.revealed),
	}
	if l.highest != nil {
		h := *l.highest
		snap.HighestBid = &h
	}
	if l.secondHighest != nil {
		s := *l.secondHighest
		snap.SecondHighestBid = &s
	}
	return snap
}
