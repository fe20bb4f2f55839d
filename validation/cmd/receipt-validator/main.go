package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/validation"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	os.Exit(run(os.Args[1:]))
}

// run validates the receipt named by args and returns the process exit code.
func run(args []string) int {
	flags := flag.NewFlagSet("receipt-validator", flag.ContinueOnError)
	var (
		receiptPath   = flags.String("receipt", "", "Path to signed receipt JSON file (required)")
		publicKeyPath = flags.String("public-key", "", "Path to public key PEM or public-key JSON file (required)")
		pcrsPath      = flags.String("pcrs", "", "Path to known PCR sets JSON file")
		feeBPS        = flags.Int("fee-bps", -1, "Expected platform fee in basis points")
		expectWinner  = flags.String("expect-winner", "", "Expected winning bidder")
		expectPrice   = flags.Int64("expect-price", 0, "Expected clearing price")
		outputFormat  = flags.String("format", "text", "Output format: text or json")
		help          = flags.Bool("help", false, "Show usage information")
	)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			showUsage()
			return 0
		}
		return 2
	}

	if *help {
		showUsage()
		return 0
	}
	if *receiptPath == "" || *publicKeyPath == "" {
		showUsage()
		fmt.Fprintln(os.Stderr, "Error: --receipt and --public-key are required")
		return 2
	}

	signed, err := readSignedReceipt(*receiptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		return 2
	}

	publicKey, err := readPublicKey(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		return 2
	}

	input := validation.ReceiptValidationInput{
		Receipt:      signed.COSE,
		PublicKeyPEM: publicKey,
		ExpectWinner: core.Address(*expectWinner),
		ExpectPrice:  *expectPrice,
		Attestation:  signed.Attestation,
	}
	if *feeBPS >= 0 {
		if *feeBPS > core.BPSDenominator {
			fmt.Fprintf(os.Stderr, "Invalid --fee-bps %d: must be at most %d\n", *feeBPS, core.BPSDenominator)
			return 2
		}
		bps := uint32(*feeBPS)
		input.FeeBPS = &bps
	}
	if *pcrsPath != "" {
		input.KnownPCRs, err = validation.LoadPCRsFromFile(*pcrsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading PCR sets: %v\n", err)
			return 2
		}
	}

	result, err := validation.ValidateReceipt(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		return 2
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			return 2
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		return 1
	}
	return 0
}

func showUsage() {
	logger.Info("Auction Settlement Receipt Validator")
	logger.Info("")
	logger.Info("Verifies the signature and settlement figures of an auction receipt,")
	logger.Info("and the enclave attestation issued with it when present.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  receipt-validator --receipt <path> --public-key <path> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --receipt <path>                  Path to signed receipt JSON (GET /receipt)")
	logger.Info("  --public-key <path>               Path to public key PEM or JSON (GET /receipt/public-key)")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --pcrs <path>                     Known PCR sets, required to pass attestation checks")
	logger.Info("  --fee-bps <n>                     Expected platform fee rate")
	logger.Info("  --expect-winner <address>         Expected winning bidder")
	logger.Info("  --expect-price <amount>           Expected clearing price")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  # Validate a receipt")
	logger.Info("  receipt-validator --receipt receipt.json --public-key public_key.pem")
	logger.Info("")
	logger.Info("  # Check the fee rate and winner, JSON output")
	logger.Info("  receipt-validator --receipt receipt.json --public-key key.json --fee-bps 250 --expect-winner bob --format json")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

func readSignedReceipt(path string) (*auctionapi.SignedReceipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var signed auctionapi.SignedReceipt
	if err := json.Unmarshal(data, &signed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if signed.COSE == "" {
		return nil, fmt.Errorf("missing cose field in receipt")
	}

	return &signed, nil
}

// readPublicKey accepts either a PEM file or the JSON served by GET /receipt/public-key.
func readPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return string(data), nil
	}

	var resp auctionapi.PublicKeyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}
	if resp.PublicKey == "" {
		return "", fmt.Errorf("missing public_key field")
	}
	return resp.PublicKey, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	logger.Info("Auction Settlement Receipt Validator")
	logger.Info("====================================")
	logger.Info("")

	if r := result.Receipt; r != nil {
		logger.Info("Receipt:")
		logger.Info("--------")
		logger.Info(fmt.Sprintf("  Auction:         %s", r.AuctionID))
		logger.Info(fmt.Sprintf("  Outcome:         %s", r.Outcome))
		logger.Info(fmt.Sprintf("  Asset:           %s/%s", r.Asset.Custodian, r.Asset.AssetID))
		logger.Info(fmt.Sprintf("  Seller:          %s", r.Seller))
		if r.Winner != "" {
			logger.Info(fmt.Sprintf("  Winner:          %s", r.Winner))
			logger.Info(fmt.Sprintf("  Price:           %d", r.Price))
			logger.Info(fmt.Sprintf("  Platform Fee:    %d (%d bps to %s)", r.PlatformFee, r.FeeBPS, r.FeeRecipient))
			logger.Info(fmt.Sprintf("  Seller Proceeds: %d", r.SellerProceeds))
		}
		logger.Info(fmt.Sprintf("  Issued At:       %s", r.IssuedAt.Format("2006-01-02T15:04:05Z07:00")))
		logger.Info("")
	}

	logger.Info("Validation Results:")
	logger.Info("-------------------")
	for _, detail := range result.ValidationDetails {
		logger.Info("  " + detail)
	}
	if result.Attestation != nil {
		for _, detail := range result.Attestation.ValidationDetails {
			logger.Info("  " + detail)
		}
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signature Valid:    %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Outcome Valid:      %v", result.OutcomeValid))
	logger.Info(fmt.Sprintf("  Fee Valid:          %v", result.FeeValid))
	logger.Info(fmt.Sprintf("  Expectations Met:   %v", result.ExpectationsMet))
	if att := result.Attestation; att != nil {
		logger.Info(fmt.Sprintf("  PCRs Valid:         %v", att.PCRsValid))
		logger.Info(fmt.Sprintf("  Certificate Valid:  %v", att.CertificateValid))
		logger.Info(fmt.Sprintf("  Attestation Signed: %v", att.SignatureValid))
		logger.Info(fmt.Sprintf("  Receipt Bound:      %v", att.ReceiptBound))
	}

	logger.Info("")
	logger.Info("====================================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) error {
	output := map[string]any{
		"valid":            result.IsValid(),
		"signature_valid":  result.SignatureValid,
		"outcome_valid":    result.OutcomeValid,
		"fee_valid":        result.FeeValid,
		"expectations_met": result.ExpectationsMet,
		"receipt":          result.Receipt,
		"details":          result.ValidationDetails,
	}
	if att := result.Attestation; att != nil {
		output["attestation"] = map[string]any{
			"valid":             att.IsValid(),
			"pcrs_valid":        att.PCRsValid,
			"certificate_valid": att.CertificateValid,
			"signature_valid":   att.SignatureValid,
			"receipt_bound":     att.ReceiptBound,
			"details":           att.ValidationDetails,
		}
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
