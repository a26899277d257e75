package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var ledgerEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mustCommit(t *testing.T, amount float64, secret string) string {
	t.Helper()
	digest, err := Commit(decimal.NewFromFloat(amount), secret)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return digest
}

func TestLedger_SubmitCommitment(t *testing.T) {
	l := NewLedger()

	c, err := l.SubmitCommitment("bidder_a", mustCommit(t, 40, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.NoError(t, err)
	check.Equal(t, "bidder_a", c.BidderID)
	check.True(t, c.LockedCollateral.Equal(decimal.NewFromInt(50)))
	check.False(t, c.Revealed)

	// A bidder may not re-bid on the same item
	_, err = l.SubmitCommitment("bidder_a", mustCommit(t, 45, "sa2"), decimal.NewFromInt(60), ledgerEpoch)
	check.True(t, errors.Is(err, ErrAlreadyCommitted))

	snap := l.Snapshot()
	check.Equal(t, 1, snap.TotalCommitments)
	check.Equal(t, 0, snap.TotalRevealed)
}

func TestLedger_SubmitCommitment_Invalid(t *testing.T) {
	l := NewLedger()

	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 40, "sa"), decimal.Zero, ledgerEpoch)
	check.True(t, errors.Is(err, ErrInvalidCollateral))

	_, err = l.SubmitCommitment("", mustCommit(t, 40, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.True(t, errors.Is(err, ErrInvalidCommitment))

	_, err = l.SubmitCommitment("bidder_a", "", decimal.NewFromInt(50), ledgerEpoch)
	check.True(t, errors.Is(err, ErrInvalidCommitment))
}

func TestLedger_SubmitReveal(t *testing.T) {
	l := NewLedger()
	amount := decimal.NewFromInt(40)

	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 40, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.NoError(t, err)

	bid, err := l.SubmitReveal("bidder_a", amount, "sa", ledgerEpoch.Add(time.Hour))
	check.NoError(t, err)
	check.True(t, bid.Amount.Equal(amount))

	snap := l.Snapshot()
	check.Equal(t, 1, snap.TotalRevealed)
	check.Equal(t, "bidder_a", snap.HighestBid.BidderID)
	check.Nil(t, snap.SecondHighestBid)
}

func TestLedger_SubmitReveal_Failures(t *testing.T) {
	l := NewLedger()
	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 40, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.NoError(t, err)

	// Unknown bidder
	_, err = l.SubmitReveal("bidder_x", decimal.NewFromInt(40), "sa", ledgerEpoch)
	check.True(t, errors.Is(err, ErrNoSuchCommitment))

	// Wrong secret
	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(40), "wrong", ledgerEpoch)
	check.True(t, errors.Is(err, ErrInvalidReveal))

	// Wrong amount
	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(41), "sa", ledgerEpoch)
	check.True(t, errors.Is(err, ErrInvalidReveal))

	// Failed attempts must not mark the commitment revealed
	c, ok := l.CommitmentOf("bidder_a")
	check.True(t, ok)
	check.False(t, c.Revealed)
}

func TestLedger_RevealExceedingCollateral(t *testing.T) {
	l := NewLedger()

	// Commitment binds amount 60 but only 50 locked: the reveal must fail
	// even though the pair matches the digest.
	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 60, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.NoError(t, err)

	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(60), "sa", ledgerEpoch)
	check.True(t, errors.Is(err, ErrInsufficientCollateral))

	snap := l.Snapshot()
	check.Equal(t, 0, snap.TotalRevealed)
	check.Nil(t, snap.HighestBid)
}

func TestLedger_DoubleReveal(t *testing.T) {
	l := NewLedger()
	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 40, "sa"), decimal.NewFromInt(50), ledgerEpoch)
	check.NoError(t, err)

	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(40), "sa", ledgerEpoch)
	check.NoError(t, err)

	before := l.Snapshot()

	// Second reveal with identical valid data fails and changes nothing
	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(40), "sa", ledgerEpoch.Add(time.Minute))
	check.True(t, errors.Is(err, ErrAlreadyRevealed))

	after := l.Snapshot()
	check.Equal(t, before.TotalRevealed, after.TotalRevealed)
	check.True(t, before.HighestBid.Amount.Equal(after.HighestBid.Amount))
}

func TestLedger_HighestSecondHighestOrdering(t *testing.T) {
	l := NewLedger()
	bidders := []struct {
		id     string
		amount float64
		secret string
	}{
		{"bidder_a", 25, "sa"},
		{"bidder_b", 40, "sb"},
		{"bidder_c", 10, "sc"},
		{"bidder_d", 30, "sd"},
	}
	for _, b := range bidders {
		_, err := l.SubmitCommitment(b.id, mustCommit(t, b.amount, b.secret), decimal.NewFromInt(100), ledgerEpoch)
		check.NoError(t, err)
	}

	// After every insertion the invariant highest >= second-highest holds.
	at := ledgerEpoch
	for _, b := range bidders {
		at = at.Add(time.Minute)
		_, err := l.SubmitReveal(b.id, decimal.NewFromFloat(b.amount), b.secret, at)
		check.NoError(t, err)

		snap := l.Snapshot()
		if snap.SecondHighestBid != nil {
			check.True(t, snap.HighestBid.Amount.GreaterThanOrEqual(snap.SecondHighestBid.Amount))
		}
	}

	snap := l.Snapshot()
	check.Equal(t, "bidder_b", snap.HighestBid.BidderID)
	check.True(t, snap.HighestBid.Amount.Equal(decimal.NewFromInt(40)))
	check.Equal(t, "bidder_d", snap.SecondHighestBid.BidderID)
	check.True(t, snap.SecondHighestBid.Amount.Equal(decimal.NewFromInt(30)))
	check.Equal(t, 4, snap.TotalRevealed)
}

func TestLedger_TieBrokenByEarliestReveal(t *testing.T) {
	l := NewLedger()
	for _, b := range []struct{ id, secret string }{{"bidder_a", "sa"}, {"bidder_b", "sb"}} {
		_, err := l.SubmitCommitment(b.id, mustCommit(t, 30, b.secret), decimal.NewFromInt(50), ledgerEpoch)
		check.NoError(t, err)
	}

	_, err := l.SubmitReveal("bidder_a", decimal.NewFromInt(30), "sa", ledgerEpoch.Add(time.Minute))
	check.NoError(t, err)
	_, err = l.SubmitReveal("bidder_b", decimal.NewFromInt(30), "sb", ledgerEpoch.Add(2*time.Minute))
	check.NoError(t, err)

	// Equal amounts: the earlier reveal keeps the top slot.
	snap := l.Snapshot()
	check.Equal(t, "bidder_a", snap.HighestBid.BidderID)
	check.Equal(t, "bidder_b", snap.SecondHighestBid.BidderID)
}

func TestLedger_UnrevealedCount(t *testing.T) {
	l := NewLedger()
	_, err := l.SubmitCommitment("bidder_a", mustCommit(t, 20, "sa"), decimal.NewFromInt(30), ledgerEpoch)
	check.NoError(t, err)
	_, err = l.SubmitCommitment("bidder_b", mustCommit(t, 25, "sb"), decimal.NewFromInt(30), ledgerEpoch)
	check.NoError(t, err)

	check.Equal(t, 2, l.UnrevealedCount())

	_, err = l.SubmitReveal("bidder_a", decimal.NewFromInt(20), "sa", ledgerEpoch)
	check.NoError(t, err)
	check.Equal(t, 1, l.UnrevealedCount())
}
