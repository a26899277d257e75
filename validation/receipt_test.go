package validation

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/sealedbid/marketapi"
)

func soldReceipt() *marketapi.SettlementReceipt {
	return &marketapi.SettlementReceipt{
		ReceiptID:     "r-1",
		ItemID:        "item-1",
		SellerID:      "seller-1",
		Outcome:       "sold",
		WinnerID:      "bidder_a",
		WinningBid:    "40.000000",
		ClearingPrice: "25.000000",
		Transfers: []marketapi.ReceiptTransfer{
			{RecipientID: "seller-1", Amount: "25.000000", Kind: "release"},
			{RecipientID: "bidder_a", Amount: "25.000000", Kind: "refund"},
			{RecipientID: "bidder_b", Amount: "30.000000", Kind: "refund"},
		},
	}
}

func TestReconcileReceipt_Sold(t *testing.T) {
	total, err := ReconcileReceipt(soldReceipt())
	check.NoError(t, err)
	check.True(t, total.Equal(decimal.NewFromInt(80)))
}

func TestReconcileReceipt_Unsold(t *testing.T) {
	receipt := &marketapi.SettlementReceipt{
		ReceiptID: "r-2",
		ItemID:    "item-1",
		SellerID:  "seller-1",
		Outcome:   "unsold",
		Transfers: []marketapi.ReceiptTransfer{
			{RecipientID: "bidder_a", Amount: "20.000000", Kind: "refund"},
		},
	}
	total, err := ReconcileReceipt(receipt)
	check.NoError(t, err)
	check.True(t, total.Equal(decimal.NewFromInt(20)))
}

func TestReconcileReceipt_Rejections(t *testing.T) {
	t.Run("release not matching clearing price", func(t *testing.T) {
		r := soldReceipt()
		r.Transfers[0].Amount = "26.000000"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("release to non-seller", func(t *testing.T) {
		r := soldReceipt()
		r.Transfers[0].RecipientID = "bidder_b"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("sold without release", func(t *testing.T) {
		r := soldReceipt()
		r.Transfers[0].Kind = "refund"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("unsold with release", func(t *testing.T) {
		r := soldReceipt()
		r.Outcome = "unsold"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("non-positive amount", func(t *testing.T) {
		r := soldReceipt()
		r.Transfers[2].Amount = "0"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("malformed amount", func(t *testing.T) {
		r := soldReceipt()
		r.Transfers[2].Amount = "thirty"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
	t.Run("unknown outcome", func(t *testing.T) {
		r := soldReceipt()
		r.Outcome = "pending"
		_, err := ReconcileReceipt(r)
		check.Error(t, err)
	})
}

func TestParsePublicKeyPEM_Rejections(t *testing.T) {
	_, err := ParsePublicKeyPEM("not pem at all")
	check.Error(t, err)

	// A well-formed PEM block that is not a PKIX key.
	_, err = ParsePublicKeyPEM("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n")
	check.Error(t, err)
}
