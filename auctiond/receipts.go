package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/assetauction/auctionapi"
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

// ReceiptIssuer signs settlement receipts and, when an attester is set, binds them to an attestation.
type ReceiptIssuer struct {
	keys     *KeyManager
	attester EnclaveAttester
}

func NewReceiptIssuer(keys *KeyManager, attester EnclaveAttester) *ReceiptIssuer {
	return &ReceiptIssuer{keys: keys, attester: attester}
}

// Issue signs r as a COSE_Sign1 message with ES256.
func (ri *ReceiptIssuer) Issue(r auctionapi.Receipt) (*auctionapi.SignedReceipt, error) {
	payload, err := auctionapi.EncodeReceipt(r)
	if err != nil {
		return nil, err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, ri.keys.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create receipt signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Protected[cose.HeaderLabelContentType] = "application/cbor"
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}

	signed := auctionapi.COSE(coseBytes)
	compressed, err := signed.CompressGzip()
	if err != nil {
		return nil, fmt.Errorf("compress receipt: %w", err)
	}

	out := &auctionapi.SignedReceipt{
		COSE:     signed.EncodeBase64(),
		COSEGzip: compressed,
	}

	if ri.attester != nil {
		attestation, err := ri.attest(payload)
		if err != nil {
			return nil, err
		}
		out.Attestation = attestation.EncodeBase64()
	}

	log.Printf("INFO: Receipt issued for auction %s (%s, %d bytes)", r.AuctionID, r.Outcome, len(coseBytes))
	return out, nil
}

func (ri *ReceiptIssuer) attest(payload []byte) (auctionapi.COSE, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := ri.attester.Attest(enclave.AttestationOptions{
		UserData: auctionapi.ReceiptDigest(payload),
		Nonce:    []byte(nonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM attestation failed: %v", err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: Receipt attestation generated: %d bytes", len(attestationCBOR))
	return auctionapi.COSE(attestationCBOR), nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
