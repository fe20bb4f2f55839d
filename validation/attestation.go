package validation

import (
	"bytes"
	"fmt"

	"github.com/cloudx-io/assetauction/auctionapi"
)

// ValidateAttestation checks a Nitro attestation issued alongside a receipt: PCRs against
// the known sets, the certificate chain at the attestation timestamp, the COSE signature,
// and that its user data is the digest of receiptPayload.
func ValidateAttestation(attestation auctionapi.COSE, receiptPayload []byte, knownPCRs []PCRSet) (*AttestationValidationResult, error) {
	attestationDoc, userData, err := attestation.ParseAttestationDoc()
	if err != nil {
		return nil, fmt.Errorf("parse attestation document: %w", err)
	}

	result := &AttestationValidationResult{
		BaseValidationResult: BaseValidationResult{ValidationDetails: []string{}},
	}

	pcrMatch, matchedSet := ValidatePCRs(attestationDoc.PCRs, knownPCRs)
	result.PCRsValid = pcrMatch
	switch {
	case len(knownPCRs) == 0:
		result.ValidationDetails = append(result.ValidationDetails, "No known PCR sets supplied")
	case !pcrMatch:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR0: %s (no match)", attestationDoc.PCRs.ImageFileHash))
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR1: %s (no match)", attestationDoc.PCRs.KernelHash))
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR2: %s (no match)", attestationDoc.PCRs.ApplicationHash))
	default:
		result.ValidationDetails = append(result.ValidationDetails, "PCR measurements valid")
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Matched PCR set: #%d (commit: %s)",
			matchedSet, knownPCRs[matchedSet].CommitHash))
	}

	if err := ValidateCertificateChain(attestationDoc); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate chain validation failed: %v", err))
	} else {
		result.CertificateValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Certificate chain verified")
	}

	if err := VerifyAttestationSignature(attestation, attestationDoc.Certificate); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Attestation signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Attestation signature verified")
	}

	if bytes.Equal(userData, auctionapi.ReceiptDigest(receiptPayload)) {
		result.ReceiptBound = true
		result.ValidationDetails = append(result.ValidationDetails, "Attestation bound to receipt")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, "Attestation user data does not match receipt digest")
	}

	return result, nil
}
