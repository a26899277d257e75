// Package validation verifies marketd settlement receipts independently of
// the daemon: signature check (COSE Sign1, EdDSA) plus reconciliation of the
// transfer journal against the receipt's own outcome.
package validation

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/sealedbid/marketapi"
)

// ParsePublicKeyPEM decodes the daemon's Ed25519 public key from PEM.
func ParsePublicKeyPEM(pemStr string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not Ed25519")
	}
	return key, nil
}

// VerifySettlementReceipt checks the COSE Sign1 signature over the receipt
// and decodes the payload.
func VerifySettlementReceipt(coseBytes []byte, publicKey ed25519.PublicKey) (*marketapi.SettlementReceipt, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("parse COSE Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("receipt signature verification failed: %w", err)
	}

	var receipt marketapi.SettlementReceipt
	if err := cbor.Unmarshal(msg.Payload, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &receipt, nil
}

// VerifySettlementReceiptBase64 is VerifySettlementReceipt over the base64
// form carried in settle responses.
func VerifySettlementReceiptBase64(coseB64 string, publicKey ed25519.PublicKey) (*marketapi.SettlementReceipt, error) {
	coseBytes, err := base64.StdEncoding.DecodeString(coseB64)
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}
	return VerifySettlementReceipt(coseBytes, publicKey)
}

// ReconcileReceipt checks the receipt's internal accounting: on a sold
// outcome the seller release must equal the clearing price, and every
// transfer amount must be positive. Returns the total value moved.
func ReconcileReceipt(receipt *marketapi.SettlementReceipt) (decimal.Decimal, error) {
	total := decimal.Zero
	releases := 0
	for _, t := range receipt.Transfers {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("transfer to %s has malformed amount %q: %w", t.RecipientID, t.Amount, err)
		}
		if amount.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("transfer to %s has non-positive amount %s", t.RecipientID, amount)
		}
		total = total.Add(amount)
		if t.Kind == "release" {
			releases++
			if t.RecipientID != receipt.SellerID {
				return decimal.Zero, fmt.Errorf("release transfer goes to %s, not seller %s", t.RecipientID, receipt.SellerID)
			}
			clearing, err := decimal.NewFromString(receipt.ClearingPrice)
			if err != nil {
				return decimal.Zero, fmt.Errorf("receipt has malformed clearing price %q: %w", receipt.ClearingPrice, err)
			}
			if !amount.Equal(clearing) {
				return decimal.Zero, fmt.Errorf("release amount %s does not match clearing price %s", amount, clearing)
			}
		}
	}

	switch receipt.Outcome {
	case "sold":
		if releases != 1 {
			return decimal.Zero, fmt.Errorf("sold receipt must contain exactly one release, found %d", releases)
		}
	case "unsold":
		if releases != 0 {
			return decimal.Zero, fmt.Errorf("unsold receipt must contain no releases, found %d", releases)
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown outcome %q", receipt.Outcome)
	}
	return total, nil
}
