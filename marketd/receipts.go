package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/sealedbid/core"
	"github.com/cloudx-io/sealedbid/escrow"
	"github.com/cloudx-io/sealedbid/marketapi"
)

// BuildSettlementReceipt assembles the receipt payload for a settled item and
// returns it signed as COSE Sign1 over deterministic CBOR. Amounts are
// rendered in the protocol's canonical fixed-precision form so any verifier
// reproduces byte-identical payloads.
func BuildSettlementReceipt(km *KeyManager, meta core.ItemMeta, result core.FinalizeResult, journal []escrow.Transfer) ([]byte, error) {
	receipt := marketapi.SettlementReceipt{
		ReceiptID:   uuid.NewString(),
		ItemID:      meta.ItemID,
		SellerID:    meta.SellerID,
		Outcome:     result.Outcome.String(),
		FinalizedAt: result.FinalizedAt.Unix(),
		IssuedAt:    time.Now().Unix(),
	}
	if result.Outcome == core.OutcomeSold {
		receipt.WinnerID = result.WinnerID
		receipt.WinningBid = core.CanonicalAmount(result.WinningBid)
		receipt.ClearingPrice = core.CanonicalAmount(result.ClearingPrice)
	}
	for _, t := range journal {
		receipt.Transfers = append(receipt.Transfers, marketapi.ReceiptTransfer{
			RecipientID: t.RecipientID,
			Amount:      core.CanonicalAmount(t.Amount),
			Kind:        string(t.Kind),
		})
	}

	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	payload, err := encMode.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt payload: %w", err)
	}

	signer, err := km.Signer()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmEdDSA)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed receipt: %w", err)
	}
	return coseBytes, nil
}
