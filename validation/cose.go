package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/assetauction/auctionapi"
)

// cborTagSign1 is the CBOR tag 18 header byte that marks a tagged COSE_Sign1.
const cborTagSign1 = 0xd2

// LoadPublicKeyPEM parses the PKIX PEM form of a receipt signing key.
func LoadPublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return key, nil
}

// VerifyReceiptSignature checks a tagged ES256 COSE_Sign1 receipt and returns its payload.
func VerifyReceiptSignature(receipt auctionapi.COSE, publicKey *ecdsa.PublicKey) ([]byte, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(receipt); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return msg.Payload, nil
}

// VerifyAttestationSignature verifies a Nitro attestation with the key of its signing certificate.
// Nitro emits untagged COSE_Sign1 signed with ES384.
func VerifyAttestationSignature(attestation auctionapi.COSE, certB64 string) error {
	cert, err := parseCertificate(certB64)
	if err != nil {
		return err
	}
	ecdsaKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key is not ECDSA")
	}

	raw := []byte(attestation)
	if len(raw) > 0 && raw[0] != cborTagSign1 {
		raw = append([]byte{cborTagSign1}, raw...)
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, ecdsaKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
