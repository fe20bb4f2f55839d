package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
)

// VerifyReceipt checks the signature of a receipt and decodes its payload.
func VerifyReceipt(receipt auctionapi.COSE, publicKey *ecdsa.PublicKey) (*auctionapi.Receipt, error) {
	payload, err := VerifyReceiptSignature(receipt, publicKey)
	if err != nil {
		return nil, err
	}
	return auctionapi.DecodeReceipt(payload)
}

// ValidateReceipt verifies a settlement receipt's signature and checks that its figures
// are consistent with its outcome. An error means the input could not be checked at all.
func ValidateReceipt(input ReceiptValidationInput) (*ReceiptValidationResult, error) {
	coseBytes, err := input.Receipt.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	publicKey, err := LoadPublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}

	result := &ReceiptValidationResult{ValidationDetails: []string{}}

	payload, err := VerifyReceiptSignature(coseBytes, publicKey)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt signature verification failed: %v", err))
		return result, nil
	}
	result.SignatureValid = true
	result.ValidationDetails = append(result.ValidationDetails, "Receipt signature verified")

	receipt, err := auctionapi.DecodeReceipt(payload)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt payload invalid: %v", err))
		return result, nil
	}
	result.Receipt = receipt

	checkOutcome(result, receipt)
	checkFee(result, receipt, input.FeeBPS)
	checkExpectations(result, receipt, input)

	if input.Attestation != "" {
		attestation, err := input.Attestation.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode attestation: %w", err)
		}
		attResult, err := ValidateAttestation(attestation, payload, input.KnownPCRs)
		if err != nil {
			return nil, err
		}
		result.Attestation = attResult
	}

	return result, nil
}

func checkOutcome(result *ReceiptValidationResult, r *auctionapi.Receipt) {
	switch r.Outcome {
	case core.StateSuccessful:
		if r.Winner == "" || r.Price <= 0 {
			result.ValidationDetails = append(result.ValidationDetails, "Successful outcome without a winner and positive price")
			return
		}
		if r.PlatformFee < 0 || r.SellerProceeds < 0 || r.PlatformFee+r.SellerProceeds != r.Price {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee %d and proceeds %d do not sum to price %d",
				r.PlatformFee, r.SellerProceeds, r.Price))
			return
		}
	case core.StateFailed:
		if r.Winner != "" || r.Price != 0 || r.PlatformFee != 0 || r.SellerProceeds != 0 {
			result.ValidationDetails = append(result.ValidationDetails, "Failed outcome carries settlement figures")
			return
		}
	default:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Outcome %q is not a finalization", r.Outcome))
		return
	}
	result.OutcomeValid = true
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Outcome %s consistent", r.Outcome))
}

func checkFee(result *ReceiptValidationResult, r *auctionapi.Receipt, expectBPS *uint32) {
	if expectBPS != nil && *expectBPS != r.FeeBPS {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee rate %d bps, expected %d bps", r.FeeBPS, *expectBPS))
		return
	}
	if r.FeeBPS > core.BPSDenominator {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee rate %d bps exceeds %d", r.FeeBPS, core.BPSDenominator))
		return
	}

	fee, proceeds := core.SplitProceeds(r.Price, r.FeeBPS)
	if r.Outcome == core.StateSuccessful && (fee != r.PlatformFee || proceeds != r.SellerProceeds) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee %d does not match %d bps of %d (expected %d)",
			r.PlatformFee, r.FeeBPS, r.Price, fee))
		return
	}
	result.FeeValid = true
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee %d at %d bps verified", r.PlatformFee, r.FeeBPS))
}

func checkExpectations(result *ReceiptValidationResult, r *auctionapi.Receipt, input ReceiptValidationInput) {
	result.ExpectationsMet = true
	if input.ExpectWinner != "" && input.ExpectWinner != r.Winner {
		result.ExpectationsMet = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner %q, expected %q", r.Winner, input.ExpectWinner))
	}
	if input.ExpectPrice != 0 && input.ExpectPrice != r.Price {
		result.ExpectationsMet = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Price %d, expected %d", r.Price, input.ExpectPrice))
	}
}
