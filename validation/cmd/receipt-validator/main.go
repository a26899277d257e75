package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cloudx-io/sealedbid/validation"
)

func main() {
	var (
		receiptInput = flag.String("receipt", "", "Base64 COSE settlement receipt (file path or inline)")
		keyInput     = flag.String("public-key", "", "Market daemon Ed25519 public key PEM (file path or inline)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *keyInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: Both inputs are required (--receipt, --public-key)\n")
		os.Exit(1)
	}

	receiptB64, err := readInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}
	keyPEM, err := readInput(*keyInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	publicKey, err := validation.ParsePublicKeyPEM(keyPEM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing public key: %v\n", err)
		os.Exit(2)
	}

	receipt, err := validation.VerifySettlementReceiptBase64(strings.TrimSpace(receiptB64), publicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Receipt verification FAILED: %v\n", err)
		os.Exit(1)
	}

	total, err := validation.ReconcileReceipt(receipt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Receipt reconciliation FAILED: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		out, _ := json.MarshalIndent(receipt, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println("Receipt signature: VALID")
	fmt.Printf("Item:          %s\n", receipt.ItemID)
	fmt.Printf("Outcome:       %s\n", receipt.Outcome)
	if receipt.WinnerID != "" {
		fmt.Printf("Winner:        %s\n", receipt.WinnerID)
		fmt.Printf("Clearing:      %s\n", receipt.ClearingPrice)
	}
	fmt.Printf("Transfers:     %d\n", len(receipt.Transfers))
	fmt.Printf("Total moved:   %s\n", total)
}

// readInput reads from a file if the argument names one, otherwise treats the
// argument as inline content.
func readInput(input string) (string, error) {
	if _, err := os.Stat(input); err == nil {
		data, err := os.ReadFile(input)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return input, nil
}

func showUsage() {
	fmt.Println("receipt-validator verifies a marketd settlement receipt offline.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <file|base64> --public-key <file|pem> [--format text|json]")
}
