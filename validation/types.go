package validation

import (
	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
)

// BaseValidationResult contains the checks common to every Nitro attestation
type BaseValidationResult struct {
	PCRsValid         bool
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

// AttestationValidationResult adds the binding between an attestation and the receipt it covers
type AttestationValidationResult struct {
	BaseValidationResult
	ReceiptBound bool
}

// IsValid returns true if all attestation checks passed
func (r *AttestationValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid && r.ReceiptBound
}

// ReceiptValidationInput is everything a third party needs to check a settlement receipt.
// Zero-valued optional fields are not checked.
type ReceiptValidationInput struct {
	Receipt      auctionapi.COSEBase64
	PublicKeyPEM string

	FeeBPS       *uint32
	ExpectWinner core.Address
	ExpectPrice  int64

	Attestation auctionapi.COSEBase64
	KnownPCRs   []PCRSet
}

// ReceiptValidationResult contains the outcome of every receipt check
type ReceiptValidationResult struct {
	Receipt *auctionapi.Receipt

	SignatureValid  bool
	OutcomeValid    bool
	FeeValid        bool
	ExpectationsMet bool

	// Attestation is nil when no attestation was supplied.
	Attestation *AttestationValidationResult

	ValidationDetails []string
}

// IsValid returns true if all receipt checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	valid := r.SignatureValid && r.OutcomeValid && r.FeeValid && r.ExpectationsMet
	if r.Attestation != nil {
		valid = valid && r.Attestation.IsValid()
	}
	return valid
}

// PCRSet represents a known-good set of PCR measurements
type PCRSet struct {
	PCR0       string `json:"pcr0"`
	PCR1       string `json:"pcr1"`
	PCR2       string `json:"pcr2"`
	CommitHash string `json:"commit_hash"` // repo commit used to build the enclave image
}

// PCRConfig represents the PCR configuration file structure
type PCRConfig struct {
	PCRSets []PCRSet `json:"pcr_sets"`
}
