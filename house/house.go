// Package house orchestrates sealed-bid auctions: it owns the item registry,
// serializes all mutations per item, and wires the bid ledger, state machine,
// and escrow together. Identity and fund movement are injected collaborators.
package house

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/sealedbid/core"
	"github.com/cloudx-io/sealedbid/escrow"
)

// IdentityProvider authenticates the caller of every fund-affecting operation
// and resolves an opaque account identifier. Wallet-style: credentials are
// whatever the deployment's identity layer issues.
type IdentityProvider interface {
	Authenticate(ctx context.Context, credential string) (accountID string, err error)
}

// Config wires the house's collaborators.
type Config struct {
	Identity IdentityProvider
	Mover    escrow.FundMover
	Pricing  core.PricingPolicy

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time

	// EscrowOptions apply to every per-item escrow account.
	EscrowOptions []escrow.Option
}

// Listing is a seller's request to put an item up for auction.
type Listing struct {
	Name           string
	Category       string
	StartTime      time.Time
	EndTime        time.Time
	RevealDeadline time.Time
	MinimumPrice   decimal.Decimal
}

// ItemView is a read-only snapshot of one item for display and audit.
type ItemView struct {
	Meta   core.ItemMeta        `json:"meta"`
	State  core.ItemState       `json:"state"`
	Ledger core.LedgerSnapshot  `json:"ledger"`
	Result *core.FinalizeResult `json:"result,omitempty"`
	Escrow *escrow.Info         `json:"escrow,omitempty"`
}

// entry pairs an item with its escrow account under one mutex. Operations on
// the same item are mutually exclusive; different items proceed in parallel.
type entry struct {
	mu      sync.Mutex
	item    *core.Item
	account *escrow.Account
}

// House is the auction marketplace. Safe for concurrent use.
type House struct {
	cfg Config

	mu    sync.RWMutex
	items map[string]*entry
}

func New(cfg Config) (*House, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if cfg.Mover == nil {
		return nil, fmt.Errorf("fund mover is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &House{
		cfg:   cfg,
		items: make(map[string]*entry),
	}, nil
}

func (h *House) entryFor(itemID string) (*entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, core.ErrUnknownItem)
	}
	return e, nil
}

// ListItem creates a new auction item owned by the authenticated seller and
// returns its minted metadata.
func (h *House) ListItem(ctx context.Context, credential string, listing Listing) (core.ItemMeta, error) {
	sellerID, err := h.cfg.Identity.Authenticate(ctx, credential)
	if err != nil {
		return core.ItemMeta{}, fmt.Errorf("seller authentication failed: %w", err)
	}

	meta := core.ItemMeta{
		ItemID:         uuid.NewString(),
		SellerID:       sellerID,
		Name:           listing.Name,
		Category:       listing.Category,
		StartTime:      listing.StartTime,
		EndTime:        listing.EndTime,
		RevealDeadline: listing.RevealDeadline,
		MinimumPrice:   listing.MinimumPrice,
	}
	if meta.Name == "" {
		return core.ItemMeta{}, fmt.Errorf("listing name is empty: %w", core.ErrInvalidWindow)
	}
	item, err := core.NewItem(meta)
	if err != nil {
		return core.ItemMeta{}, err
	}

	h.mu.Lock()
	h.items[meta.ItemID] = &entry{item: item}
	h.mu.Unlock()

	log.Printf("INFO: listed item %s (%s) by seller %s, bidding %s → %s",
		meta.ItemID, meta.Name, sellerID, meta.StartTime.Format(time.RFC3339), meta.EndTime.Format(time.RFC3339))
	return meta, nil
}

// PlaceBid records a sealed commitment and locks the submitted collateral in
// the item's escrow account.
func (h *House) PlaceBid(ctx context.Context, credential, itemID, commitmentValue string, collateral decimal.Decimal) (*core.Commitment, error) {
	bidderID, err := h.cfg.Identity.Authenticate(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("bidder authentication failed: %w", err)
	}
	e, err := h.entryFor(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.item.SubmitCommitment(bidderID, commitmentValue, collateral, h.cfg.Now())
	if err != nil {
		return nil, err
	}
	if e.account == nil {
		e.account = escrow.NewAccount(itemID, h.cfg.Mover, h.cfg.EscrowOptions...)
	}
	if err := e.account.Lock(bidderID, collateral); err != nil {
		return nil, err
	}

	log.Printf("INFO: item %s: bidder %s committed %s collateral %s",
		itemID, bidderID, shortDigest(commitmentValue), collateral)
	return c, nil
}

// RevealBid opens a sealed commitment during the reveal window.
func (h *House) RevealBid(ctx context.Context, credential, itemID string, amount decimal.Decimal, secret string) (*core.RevealedBid, error) {
	bidderID, err := h.cfg.Identity.Authenticate(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("bidder authentication failed: %w", err)
	}
	e, err := h.entryFor(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bid, err := e.item.SubmitReveal(bidderID, amount, secret, h.cfg.Now())
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: item %s: bidder %s revealed %s", itemID, bidderID, amount)
	return bid, nil
}

// Finalize closes the auction and computes the outcome under the configured
// pricing policy.
func (h *House) Finalize(ctx context.Context, credential, itemID string) (*core.FinalizeResult, error) {
	if _, err := h.cfg.Identity.Authenticate(ctx, credential); err != nil {
		return nil, fmt.Errorf("caller authentication failed: %w", err)
	}
	e, err := h.entryFor(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.item.Finalize(h.cfg.Now(), h.cfg.Pricing)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: item %s finalized: %s winner=%s clearing=%s",
		itemID, result.Outcome, result.WinnerID, result.ClearingPrice)
	return result, nil
}

// Settle disburses the item's escrow according to the finalized outcome:
// release to seller on Sold, full refunds on Unsold. Items that attracted no
// commitments settle trivially.
func (h *House) Settle(ctx context.Context, credential, itemID string) error {
	if _, err := h.cfg.Identity.Authenticate(ctx, credential); err != nil {
		return fmt.Errorf("caller authentication failed: %w", err)
	}
	e, err := h.entryFor(itemID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result, ok := e.item.Result()
	if !ok {
		return core.ErrWindowClosed
	}
	if e.account == nil {
		// No commitments were ever placed; nothing is locked.
		return nil
	}

	switch result.Outcome {
	case core.OutcomeSold:
		err = e.account.ReleaseToSeller(ctx, e.item.Meta().SellerID, *result)
	case core.OutcomeUnsold:
		err = e.account.RefundAll(ctx, *result)
	default:
		return core.ErrWindowClosed
	}
	if err != nil {
		return err
	}
	log.Printf("INFO: item %s settled: %s", itemID, result.Outcome)
	return nil
}

// RetrySettlement retries any transfers that failed during Settle.
func (h *House) RetrySettlement(ctx context.Context, itemID string) error {
	e, err := h.entryFor(itemID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account == nil {
		return nil
	}
	return e.account.RetryPending(ctx)
}

// Item returns a read-only snapshot of the item at the current clock.
func (h *House) Item(itemID string) (ItemView, error) {
	e, err := h.entryFor(itemID)
	if err != nil {
		return ItemView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view := ItemView{
		Meta:   e.item.Meta(),
		State:  e.item.StateAt(h.cfg.Now()),
		Ledger: e.item.Snapshot(),
	}
	if result, ok := e.item.Result(); ok {
		view.Result = result
	}
	if e.account != nil {
		info := e.account.Info()
		view.Escrow = &info
	}
	return view, nil
}

// EscrowInfo returns the escrow snapshot for an item, or a zero-value info if
// no commitment has created the account yet.
func (h *House) EscrowInfo(itemID string) (escrow.Info, error) {
	e, err := h.entryFor(itemID)
	if err != nil {
		return escrow.Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account == nil {
		return escrow.Info{ItemID: itemID}, nil
	}
	return e.account.Info(), nil
}

// SettlementJournal returns the committed disbursement plan for an item, for
// receipts and reconciliation. Empty until Settle has planned the transfers.
func (h *House) SettlementJournal(itemID string) ([]escrow.Transfer, error) {
	e, err := h.entryFor(itemID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account == nil {
		return nil, nil
	}
	return e.account.Journal(), nil
}

// Items returns all item IDs in no particular order.
func (h *House) Items() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.items))
	for id := range h.items {
		out = append(out, id)
	}
	return out
}

func shortDigest(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
