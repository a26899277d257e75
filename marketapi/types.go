// Package marketapi defines the JSON wire types served by marketd and the
// CBOR settlement receipt payload verified by the validation package.
package marketapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/sealedbid/core"
	"github.com/cloudx-io/sealedbid/escrow"
)

// ListItemRequest creates a new auction listing.
type ListItemRequest struct {
	Credential     string          `json:"credential"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	RevealDeadline time.Time       `json:"reveal_deadline"`
	MinimumPrice   decimal.Decimal `json:"minimum_price"`
}

// ListItemResponse returns the minted listing metadata.
type ListItemResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Item    core.ItemMeta `json:"item"`
}

// PlaceBidRequest submits a sealed commitment with locked collateral.
type PlaceBidRequest struct {
	Credential string          `json:"credential"`
	Commitment string          `json:"commitment"`
	Collateral decimal.Decimal `json:"collateral"`
}

// PlaceBidResponse acknowledges a recorded commitment.
type PlaceBidResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Commitment *core.Commitment `json:"commitment,omitempty"`
}

// RevealBidRequest opens a sealed commitment.
type RevealBidRequest struct {
	Credential string          `json:"credential"`
	Amount     decimal.Decimal `json:"amount"`
	Secret     string          `json:"secret"`
}

// RevealBidResponse acknowledges a successful reveal.
type RevealBidResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Bid     *core.RevealedBid `json:"bid,omitempty"`
}

// FinalizeRequest closes the auction.
type FinalizeRequest struct {
	Credential string `json:"credential"`
}

// FinalizeResponse reports the sealed outcome.
type FinalizeResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Result  *core.FinalizeResult `json:"result,omitempty"`
}

// SettleRequest disburses escrow after finalization.
type SettleRequest struct {
	Credential string `json:"credential"`
}

// SettleResponse reports the escrow state after disbursement and carries the
// signed settlement receipt.
type SettleResponse struct {
	Success           bool         `json:"success"`
	Message           string       `json:"message,omitempty"`
	Escrow            *escrow.Info `json:"escrow,omitempty"`
	ReceiptCOSEBase64 string       `json:"receipt_cose_base64,omitempty"`
}

// ItemView is the read-only item snapshot served on GET.
type ItemView struct {
	Meta   core.ItemMeta        `json:"meta"`
	State  string               `json:"state"`
	Ledger core.LedgerSnapshot  `json:"ledger"`
	Result *core.FinalizeResult `json:"result,omitempty"`
	Escrow *escrow.Info         `json:"escrow,omitempty"`
}

// ErrorResponse is the uniform failure envelope. Kind carries the protocol
// error taxonomy so callers can apply the retry discipline.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// ReceiptTransfer is one disbursement recorded in a settlement receipt.
// Amounts are canonical fixed-precision strings so independent verifiers
// reproduce identical CBOR.
type ReceiptTransfer struct {
	RecipientID string `cbor:"recipient_id" json:"recipient_id"`
	Amount      string `cbor:"amount" json:"amount"`
	Kind        string `cbor:"kind" json:"kind"`
}

// SettlementReceipt is the CBOR payload signed (COSE Sign1, EdDSA) by marketd
// when an item settles. It binds the finalized outcome to the exact set of
// transfers so third parties can audit that funds moved exactly once.
type SettlementReceipt struct {
	ReceiptID     string            `cbor:"receipt_id" json:"receipt_id"`
	ItemID        string            `cbor:"item_id" json:"item_id"`
	SellerID      string            `cbor:"seller_id" json:"seller_id"`
	Outcome       string            `cbor:"outcome" json:"outcome"`
	WinnerID      string            `cbor:"winner_id,omitempty" json:"winner_id,omitempty"`
	WinningBid    string            `cbor:"winning_bid,omitempty" json:"winning_bid,omitempty"`
	ClearingPrice string            `cbor:"clearing_price,omitempty" json:"clearing_price,omitempty"`
	Transfers     []ReceiptTransfer `cbor:"transfers" json:"transfers"`
	FinalizedAt   int64             `cbor:"finalized_at" json:"finalized_at"`
	IssuedAt      int64             `cbor:"issued_at" json:"issued_at"`
}
