// marketd is the sealed-bid marketplace daemon: it serves the auction house
// over HTTP and signs settlement receipts with a per-process Ed25519 key.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/cloudx-io/sealedbid/core"
	"github.com/cloudx-io/sealedbid/house"
)

func getRequiredEnvInt(name string) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s not set", name)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return parsed, nil
}

// walletIdentity treats the presented credential as an opaque wallet account
// identifier supplied by the wallet bridge. The daemon trusts the bridge to
// have authenticated its owner.
type walletIdentity struct{}

func (walletIdentity) Authenticate(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("missing wallet credential: %w", core.ErrUnauthenticated)
	}
	return credential, nil
}

func main() {
	port, err := getRequiredEnvInt("MARKETD_PORT")
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	maxWorkers, err := getRequiredEnvInt("MARKETD_MAX_WORKERS")
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	pricing := core.ParsePricingPolicy(os.Getenv("MARKETD_PRICING"))

	journalPath := os.Getenv("MARKETD_PAYOUT_JOURNAL")
	if journalPath == "" {
		journalPath = "payouts.jsonl"
	}
	mover, err := newJournalMover(journalPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open payout journal: %v", err)
	}

	keyManager, err := NewKeyManager()
	if err != nil {
		log.Fatalf("ERROR: Failed to initialize key manager: %v", err)
	}
	log.Printf("KeyManager initialized")

	h, err := house.New(house.Config{
		Identity: walletIdentity{},
		Mover:    mover,
		Pricing:  pricing,
	})
	if err != nil {
		log.Fatalf("ERROR: Failed to initialize auction house: %v", err)
	}
	log.Printf("INFO: auction house initialized (pricing=%s)", pricing)

	server := NewServer(h, keyManager, maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", maxWorkers)
	if err := server.ListenAndServe(port); err != nil {
		log.Fatalf("ERROR: Server failed: %v", err)
	}
}
